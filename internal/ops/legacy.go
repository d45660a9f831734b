package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/fuelconfig"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const legacyBatchSize = 500

// LegacyStation is a row of the old `station` table.
type LegacyStation struct {
	ID         int64
	Name       string
	Brand      string
	Lat        float64
	Lng        float64
	FuelConfig []model.FuelType
}

// LegacyPrice is a row of the old `priceupdate` table.
type LegacyPrice struct {
	ID        int64
	StationID int64
	FuelType  string
	Price     float64
	Timestamp time.Time
	Source    string
}

type LegacyReport struct {
	Stations        int
	StationsSkipped int
	Prices          int
	PricesSkipped   int
}

func importLegacyCmd(ctx context.Context, env Env, args []string) error {
	fs := newFlagSet("import-legacy")
	stationsPath := fs.String("stations", "", "path to the old stations.db")
	pricesPath := fs.String("prices", "", "path to the old prices.db (defaults to -stations)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*stationsPath) == "" {
		return errors.New("-stations required")
	}
	if strings.TrimSpace(*pricesPath) == "" {
		*pricesPath = *stationsPath
	}

	sdb, err := OpenLegacy(*stationsPath)
	if err != nil {
		return err
	}
	defer sdb.Close()
	pdb := sdb
	if *pricesPath != *stationsPath {
		if pdb, err = OpenLegacy(*pricesPath); err != nil {
			return err
		}
		defer pdb.Close()
	}

	rep, err := ImportLegacy(ctx, env, sdb, pdb)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "stations %d (skipped %d), prices %d (skipped %d)\n",
		rep.Stations, rep.StationsSkipped, rep.Prices, rep.PricesSkipped)
	return nil
}

// OpenLegacy opens an old SQLite file read-only.
func OpenLegacy(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

func ReadLegacyStations(ctx context.Context, db *sql.DB) ([]LegacyStation, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, brand, lat, lng, fuel_config FROM station ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read station: %w", err)
	}
	defer rows.Close()

	var out []LegacyStation
	for rows.Next() {
		var (
			s                  LegacyStation
			name, brand, fuels sql.NullString
			lat, lng           sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &name, &brand, &lat, &lng, &fuels); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		s.Name, s.Brand, s.Lat, s.Lng = name.String, brand.String, lat.Float64, lng.Float64
		if fuels.Valid && fuels.String != "" {
			// A malformed config falls back to the brand template.
			if err := json.Unmarshal([]byte(fuels.String), &s.FuelConfig); err != nil {
				s.FuelConfig = nil
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func ReadLegacyPrices(ctx context.Context, db *sql.DB) ([]LegacyPrice, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, station_id, fuel_type, price, timestamp, source FROM priceupdate ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read priceupdate: %w", err)
	}
	defer rows.Close()

	var out []LegacyPrice
	for rows.Next() {
		var (
			p          LegacyPrice
			fuel, ts   sql.NullString
			source     sql.NullString
			price      sql.NullFloat64
			stationRef sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &stationRef, &fuel, &price, &ts, &source); err != nil {
			return nil, fmt.Errorf("scan priceupdate: %w", err)
		}
		t, err := parseLegacyTime(ts.String)
		if err != nil {
			log.Warn().Int64("id", p.ID).Str("timestamp", ts.String).Msg("legacy: unreadable timestamp, row skipped")
			continue
		}
		p.StationID, p.FuelType, p.Price, p.Timestamp, p.Source = stationRef.Int64, fuel.String, price.Float64, t, source.String
		out = append(out, p)
	}
	return out, rows.Err()
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseLegacyTime reads the naive UTC timestamps the old backend wrote.
func parseLegacyTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ImportLegacy creates a catalog station per legacy station, then appends
// the legacy price rows against the new ids keeping their original
// timestamps. Legacy user ids are not carried over.
func ImportLegacy(ctx context.Context, env Env, stationsDB, pricesDB *sql.DB) (LegacyReport, error) {
	var rep LegacyReport

	stations, err := ReadLegacyStations(ctx, stationsDB)
	if err != nil {
		return rep, err
	}
	ids := make(map[int64]uint, len(stations))
	for _, ls := range stations {
		lat, lng := ls.Lat, ls.Lng
		req := dto.CreateStationRequest{Name: ls.Name, Lat: &lat, Lng: &lng}
		if b := strings.TrimSpace(ls.Brand); b != "" {
			req.Brand = &b
		}
		if len(ls.FuelConfig) > 0 && fuelconfig.Validate(ls.FuelConfig) == nil {
			req.FuelConfig = make([]dto.FuelTypeDTO, len(ls.FuelConfig))
			for i, f := range ls.FuelConfig {
				req.FuelConfig[i] = dto.FuelTypeDTO{ID: f.ID, Label: f.Label}
			}
		}
		st, err := env.Catalog.CreateStation(ctx, req, nil)
		if errors.Is(err, service.ErrValidation) {
			log.Warn().Err(err).Int64("legacy_id", ls.ID).Msg("legacy: station skipped")
			rep.StationsSkipped++
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("legacy station %d: %w", ls.ID, err)
		}
		ids[ls.ID] = st.ID
		rep.Stations++
	}

	prices, err := ReadLegacyPrices(ctx, pricesDB)
	if err != nil {
		return rep, err
	}
	batch := make([]model.PriceObservation, 0, legacyBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := env.Prices.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("append legacy prices: %w", err)
		}
		rep.Prices += len(batch)
		batch = batch[:0]
		return nil
	}
	for _, lp := range prices {
		stationID, ok := ids[lp.StationID]
		fuel := strings.TrimSpace(lp.FuelType)
		source := strings.TrimSpace(lp.Source)
		if source == "" {
			source = model.SourceManualUpdate
		}
		if !ok || fuel == "" || len(fuel) > service.MaxFuelTypeIDLen || len(source) > service.MaxSourceLen {
			rep.PricesSkipped++
			continue
		}
		price, err := service.ParsePrice(fuel, strconv.FormatFloat(lp.Price, 'f', -1, 64))
		if err != nil {
			rep.PricesSkipped++
			continue
		}
		batch = append(batch, model.PriceObservation{
			StationID:  stationID,
			FuelTypeID: fuel,
			Price:      price,
			ObservedAt: lp.Timestamp,
			Source:     source,
		})
		if len(batch) == legacyBatchSize {
			if err := flush(); err != nil {
				return rep, err
			}
		}
	}
	if err := flush(); err != nil {
		return rep, err
	}
	env.invalidate(ctx)
	return rep, nil
}
