package ops

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

func inspectCmd(ctx context.Context, env Env, args []string) error {
	fs := newFlagSet("inspect")
	limit := fs.Int("limit", 5, "number of sample stations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stations, err := env.Stations.Count(ctx)
	if err != nil {
		return fmt.Errorf("count stations: %w", err)
	}
	observations, err := env.Prices.Count(ctx)
	if err != nil {
		return fmt.Errorf("count observations: %w", err)
	}
	fmt.Fprintf(env.Out, "stations:     %d\n", stations)
	fmt.Fprintf(env.Out, "observations: %d\n", observations)
	if env.Fuels != nil {
		fmt.Fprintf(env.Out, "templates:    %s\n", env.Fuels.Version)
	}
	if *limit <= 0 {
		return nil
	}

	sample, err := env.Stations.Sample(ctx, *limit)
	if err != nil {
		return fmt.Errorf("sample stations: %w", err)
	}
	for _, st := range sample {
		resolved, err := env.Resolver.ResolveCurrentPrices(ctx, st.ID)
		if err != nil {
			return err
		}
		parts := make([]string, len(resolved.Prices))
		for i, p := range resolved.Prices {
			v := "-"
			if p.Price != nil {
				v = strconv.FormatFloat(*p.Price, 'f', -1, 64)
			}
			parts[i] = p.FuelTypeID + "=" + v
		}
		brand := st.BrandName()
		if env.Fuels != nil && !env.Fuels.Has(brand) {
			brand += ", fallback template"
		}
		fmt.Fprintf(env.Out, "#%d %s [%s] %s\n", resolved.ID, resolved.Name, brand, strings.Join(parts, " "))
	}
	return nil
}
