// Package ops implements the gasctl maintenance commands.
package ops

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aleks2005vk/cheap-gasoline/internal/cache"
	"github.com/aleks2005vk/cheap-gasoline/internal/fuelconfig"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"
)

// Env carries what the commands operate on. Cache may be nil.
type Env struct {
	Catalog  service.CatalogService
	Ledger   service.LedgerService
	Resolver service.ResolverService
	Stations repository.StationRepository
	Prices   repository.PriceRepository
	Fuels    *fuelconfig.Table
	Cache    cache.Store
	Out      io.Writer
}

func Usage(w io.Writer) {
	fmt.Fprint(w, `gasctl <command> [flags]

Commands:
  inspect        counts and a sample of resolved stations
  import-points  load stations (and optional prices) from a JSON points file
  import-legacy  copy stations and price history from the old SQLite files
  resync         re-derive every station's fuel config from its brand
`)
}

func Dispatch(ctx context.Context, env Env, args []string) error {
	if len(args) == 0 {
		Usage(os.Stderr)
		return errors.New("missing command")
	}
	if env.Out == nil {
		env.Out = os.Stdout
	}
	switch args[0] {
	case "inspect":
		return inspectCmd(ctx, env, args[1:])
	case "import-points":
		return importPointsCmd(ctx, env, args[1:])
	case "import-legacy":
		return importLegacyCmd(ctx, env, args[1:])
	case "resync":
		n, err := env.Catalog.ResyncAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "resynced %d station(s)\n", n)
		return nil
	case "help", "-h", "--help":
		Usage(env.Out)
		return nil
	default:
		Usage(os.Stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("gasctl "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// invalidate drops the resolved-stations cache after a bulk write that went
// around the services.
func (e Env) invalidate(ctx context.Context) {
	service.InvalidateStations(ctx, e.Cache)
}
