package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/rs/zerolog/log"
)

// Point is one entry of a points file.
type Point struct {
	Name        string            `json:"name"`
	Lat         *float64          `json:"lat"`
	Lng         *float64          `json:"lng"`
	Brand       string            `json:"brand,omitempty"`
	Description string            `json:"description,omitempty"`
	Prices      map[string]string `json:"prices,omitempty"`
}

type PointsReport struct {
	Created        int
	Skipped        int
	PricesAccepted int
	PricesFailed   int
}

func importPointsCmd(ctx context.Context, env Env, args []string) error {
	fs := newFlagSet("import-points")
	file := fs.String("file", "", "JSON array of points")
	source := fs.String("source", model.SourceInitialImport, "provenance tag for imported prices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" {
		return errors.New("-file required")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var points []Point
	if err := json.Unmarshal(raw, &points); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}

	rep, err := ImportPoints(ctx, env, points, *source)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "created %d, skipped %d, prices accepted %d, failed %d\n",
		rep.Created, rep.Skipped, rep.PricesAccepted, rep.PricesFailed)
	return nil
}

// ImportPoints creates one station per point. Points with missing or
// out-of-range coordinates are skipped; any other error aborts the import.
// When a point has no brand, one is detected from its name.
func ImportPoints(ctx context.Context, env Env, points []Point, source string) (PointsReport, error) {
	var rep PointsReport
	for i, p := range points {
		req := dto.CreateStationRequest{Name: p.Name, Lat: p.Lat, Lng: p.Lng}
		brand := strings.TrimSpace(p.Brand)
		if brand == "" && env.Fuels != nil {
			brand = env.Fuels.DetectBrand(p.Name)
		}
		if brand != "" {
			req.Brand = &brand
		}
		if d := strings.TrimSpace(p.Description); d != "" {
			req.Address = &d
		}

		st, err := env.Catalog.CreateStation(ctx, req, nil)
		if errors.Is(err, service.ErrValidation) {
			log.Warn().Err(err).Int("index", i).Str("name", p.Name).Msg("import: point skipped")
			rep.Skipped++
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("point %d: %w", i, err)
		}
		rep.Created++

		if len(p.Prices) == 0 {
			continue
		}
		res, err := env.Ledger.RecordBatch(ctx, st.ID, p.Prices, source, nil)
		if err != nil {
			return rep, fmt.Errorf("point %d prices: %w", i, err)
		}
		rep.PricesAccepted += len(res.Accepted)
		rep.PricesFailed += len(res.Failed)
	}
	return rep, nil
}
