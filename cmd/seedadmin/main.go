// seedadmin creates an account or resets an existing one's password and role.
// Usage: go run ./cmd/seedadmin -email admin@example.com -password secret
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/config"
	"github.com/aleks2005vk/cheap-gasoline/internal/infra"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "account password (env: SEED_PASSWORD)")
	name := flag.String("name", "Admin", "display name")
	role := flag.String("role", model.RoleSuperadmin, "user | moderator | admin | superadmin")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if strings.TrimSpace(*email) == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	stores, err := infra.OpenStores(cfg.DatabaseURL, cfg.LedgerDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer stores.Close()

	auth := service.NewAuthService(repository.NewUserRepository(stores.Catalog), cfg, nil)
	user, created, err := auth.EnsureUser(context.Background(), *email, *password, *name, *role)
	if err != nil {
		log.Error().Err(err).Msg("seed failed")
		stores.Close()
		os.Exit(1)
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Printf("user %s %s (id=%d, role=%s)\n", user.Email, verb, user.ID, user.Role)
}
