package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/cache"
	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// The resolved station list is cached under StationsCacheKey plus the
// current generation. Every write replaces the generation, so a read that
// started before the write can only repopulate a key nobody asks for.
const (
	StationsCacheKey = "stations:resolved"
	StationsGenKey   = "stations:gen"
)

// ResolverService joins the catalog with the ledger. It only reads.
type ResolverService interface {
	// ResolveCurrentPrices returns one line per fuel of the station's
	// fuel config, in config order, each with its latest price or nil.
	ResolveCurrentPrices(ctx context.Context, stationID uint) (*dto.StationWithPrices, error)
	// ResolveAllStations resolves every station, ordered by id.
	ResolveAllStations(ctx context.Context) ([]dto.StationWithPrices, error)
}

type resolverService struct {
	stations repository.StationRepository
	prices   repository.PriceRepository
	cache    cache.Store
	ttl      time.Duration
}

// NewResolverService builds the resolver. A nil store disables caching.
func NewResolverService(stations repository.StationRepository, prices repository.PriceRepository, store cache.Store, ttl time.Duration) ResolverService {
	if store == nil {
		store = cache.Noop{}
	}
	return &resolverService{stations: stations, prices: prices, cache: store, ttl: ttl}
}

func (s *resolverService) ResolveCurrentPrices(ctx context.Context, stationID uint) (*dto.StationWithPrices, error) {
	st, err := s.stations.FindByID(ctx, stationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("station %d not found", stationID)
		}
		return nil, err
	}
	rows, err := s.prices.LatestForStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	latest := pickLatest(rows)[stationID]
	out := stationWithPrices(st, resolve(st.FuelConfig, latest))
	return &out, nil
}

func (s *resolverService) ResolveAllStations(ctx context.Context) ([]dto.StationWithPrices, error) {
	key, cacheable := stationsListKey(ctx, s.cache)
	if cacheable {
		if raw, ok, err := s.cache.Get(ctx, key); err != nil {
			log.Warn().Err(err).Msg("resolver: cache read failed")
		} else if ok {
			var cached []dto.StationWithPrices
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			log.Warn().Msg("resolver: discarding undecodable cache entry")
		}
	}

	stations, err := s.stations.List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.prices.LatestAll(ctx)
	if err != nil {
		return nil, err
	}
	latest := pickLatest(rows)

	out := make([]dto.StationWithPrices, len(stations))
	for i := range stations {
		out[i] = stationWithPrices(&stations[i], resolve(stations[i].FuelConfig, latest[stations[i].ID]))
	}

	if !cacheable {
		return out, nil
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			log.Warn().Err(err).Msg("resolver: cache write failed")
		}
	}
	return out, nil
}

// pickLatest groups rows by station and fuel type, keeping the newest row
// of each group. Equal timestamps go to the highest id.
func pickLatest(rows []model.PriceObservation) map[uint]map[string]model.PriceObservation {
	out := make(map[uint]map[string]model.PriceObservation)
	for _, r := range rows {
		byFuel, ok := out[r.StationID]
		if !ok {
			byFuel = make(map[string]model.PriceObservation)
			out[r.StationID] = byFuel
		}
		cur, ok := byFuel[r.FuelTypeID]
		if !ok || newer(r, cur) {
			byFuel[r.FuelTypeID] = r
		}
	}
	return out
}

func newer(a, b model.PriceObservation) bool {
	if a.ObservedAt.Equal(b.ObservedAt) {
		return a.ID > b.ID
	}
	return a.ObservedAt.After(b.ObservedAt)
}

// resolve walks the fuel config in order. Observations for fuel ids the
// config does not list are ignored.
func resolve(fuels []model.FuelType, latest map[string]model.PriceObservation) []dto.ResolvedPrice {
	out := make([]dto.ResolvedPrice, len(fuels))
	for i, f := range fuels {
		out[i] = dto.ResolvedPrice{FuelTypeID: f.ID, Label: f.Label}
		if obs, ok := latest[f.ID]; ok {
			price := obs.Price.InexactFloat64()
			at := formatTime(obs.ObservedAt)
			out[i].Price = &price
			out[i].UpdatedAt = &at
		}
	}
	return out
}

func stationWithPrices(st *model.Station, prices []dto.ResolvedPrice) dto.StationWithPrices {
	return dto.StationWithPrices{
		ID:      st.ID,
		Name:    st.Name,
		Brand:   st.Brand,
		Lat:     st.Lat,
		Lng:     st.Lng,
		Address: st.Address,
		Prices:  prices,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// stationsListKey returns the cache key of the current generation. A store
// that cannot be read is not used at all for this request.
func stationsListKey(ctx context.Context, store cache.Store) (string, bool) {
	raw, ok, err := store.Get(ctx, StationsGenKey)
	if err != nil {
		log.Warn().Err(err).Msg("resolver: cache generation read failed")
		return "", false
	}
	gen := "0"
	if ok {
		gen = string(raw)
	}
	return StationsCacheKey + ":" + gen, true
}

// InvalidateStations starts a new generation of the resolved list after a
// catalog or ledger write. Failure only delays freshness until the TTL
// expires.
func InvalidateStations(ctx context.Context, store cache.Store) {
	if store == nil {
		return
	}
	if key, ok := stationsListKey(ctx, store); ok {
		if err := store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Msg("cache: drop resolved stations failed")
		}
	}
	if err := store.Set(ctx, StationsGenKey, []byte(uuid.NewString()), 0); err != nil {
		log.Warn().Err(err).Msg("cache: bump stations generation failed")
	}
}
