// gasctl runs maintenance commands against the catalog and ledger stores.
//
//	gasctl inspect -limit 10
//	gasctl import-points -file points.json
//	gasctl import-legacy -stations data/stations.db -prices data/prices.db
//	gasctl resync
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/cache"
	"github.com/aleks2005vk/cheap-gasoline/internal/config"
	"github.com/aleks2005vk/cheap-gasoline/internal/fuelconfig"
	"github.com/aleks2005vk/cheap-gasoline/internal/infra"
	"github.com/aleks2005vk/cheap-gasoline/internal/ops"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"
	"github.com/aleks2005vk/cheap-gasoline/internal/router"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { ops.Usage(os.Stderr) }
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	args := flag.Args()
	if len(args) == 0 {
		ops.Usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	stores, err := infra.OpenStores(cfg.DatabaseURL, cfg.LedgerDSN())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open stores:", err)
		os.Exit(1)
	}
	defer stores.Close()

	fuels, err := fuelconfig.Load(cfg.FuelTemplatesFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fuel templates:", err)
		os.Exit(1)
	}

	// Redis only matters here for invalidating the server's stations cache.
	var rdb *redis.Client
	var store cache.Store
	if cfg.RedisURL != "" {
		if rdb, err = infra.NewRedis(cfg.RedisURL); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, stations cache will expire on its own")
			rdb = nil
		} else {
			defer rdb.Close()
			store = cache.NewRedisStore(rdb)
		}
	}

	svc := router.NewServices(cfg, router.Infra{Stores: stores, Redis: rdb, Fuels: fuels})
	env := ops.Env{
		Catalog:  svc.Catalog,
		Ledger:   svc.Ledger,
		Resolver: svc.Resolver,
		Stations: repository.NewStationRepository(stores.Catalog),
		Prices:   repository.NewPriceRepository(stores.Ledger),
		Fuels:    fuels,
		Cache:    store,
		Out:      os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ops.Dispatch(ctx, env, args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		stores.Close()
		os.Exit(1)
	}
}
