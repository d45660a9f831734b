package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/cache"
	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	// PricePlaceholder is what clients send for "no price on the board".
	PricePlaceholder = "—"

	// Column widths of price_observations.
	MaxFuelTypeIDLen = 60
	MaxSourceLen     = 40
)

// Prices are stored as decimal(10,3).
var maxPrice = decimal.New(10_000_000, 0)

// LedgerService appends price observations. Nothing here updates or
// deletes a row.
type LedgerService interface {
	RecordObservation(ctx context.Context, stationID uint, fuelTypeID string, price decimal.Decimal, source string, userID *uint) (*dto.ObservationResponse, error)
	// RecordBatch appends one observation per usable entry of prices, all
	// with the same timestamp, in a single transaction. Empty and
	// placeholder values are skipped; unparsable or non-positive values
	// are reported as failed without affecting the other entries.
	RecordBatch(ctx context.Context, stationID uint, prices map[string]string, source string, userID *uint) (*dto.BatchResult, error)
	// HistoryFor lists observations newest first.
	HistoryFor(ctx context.Context, stationID uint, fuelTypeID string, limit int) ([]dto.ObservationResponse, error)
}

type ledgerService struct {
	prices   repository.PriceRepository
	stations repository.StationRepository
	cache    cache.Store
	notifier PriceNotifier
	now      func() time.Time
}

func NewLedgerService(prices repository.PriceRepository, stations repository.StationRepository, store cache.Store, notifier PriceNotifier) LedgerService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ledgerService{prices: prices, stations: stations, cache: store, notifier: notifier, now: time.Now}
}

func (s *ledgerService) RecordObservation(ctx context.Context, stationID uint, fuelTypeID string, price decimal.Decimal, source string, userID *uint) (*dto.ObservationResponse, error) {
	fuelTypeID = strings.TrimSpace(fuelTypeID)
	if err := checkFuelTypeID(fuelTypeID); err != nil {
		return nil, err
	}
	price = price.Round(3)
	if err := checkPrice(fuelTypeID, price); err != nil {
		return nil, err
	}
	src, err := checkSource(source)
	if err != nil {
		return nil, err
	}
	if err := s.requireStation(ctx, stationID); err != nil {
		return nil, err
	}

	obs := model.PriceObservation{
		StationID:  stationID,
		FuelTypeID: fuelTypeID,
		Price:      price,
		ObservedAt: s.timestamp(),
		Source:     src,
		UserID:     userID,
	}
	if err := s.prices.Create(ctx, &obs); err != nil {
		return nil, err
	}
	s.afterCommit(ctx, []model.PriceObservation{obs})

	resp := observationToResponse(obs)
	return &resp, nil
}

func (s *ledgerService) RecordBatch(ctx context.Context, stationID uint, prices map[string]string, source string, userID *uint) (*dto.BatchResult, error) {
	src, err := checkSource(source)
	if err != nil {
		return nil, err
	}
	if err := s.requireStation(ctx, stationID); err != nil {
		return nil, err
	}

	result := &dto.BatchResult{
		Accepted: []dto.ObservationResponse{},
		Skipped:  []dto.SkippedEntry{},
		Failed:   []dto.FailedEntry{},
	}

	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	at := s.timestamp()
	rows := make([]model.PriceObservation, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		raw := strings.TrimSpace(prices[key])
		fuelTypeID := strings.TrimSpace(key)

		switch {
		case raw == "":
			result.Skipped = append(result.Skipped, dto.SkippedEntry{FuelTypeID: fuelTypeID, Reason: "empty"})
			continue
		case raw == PricePlaceholder:
			result.Skipped = append(result.Skipped, dto.SkippedEntry{FuelTypeID: fuelTypeID, Reason: "placeholder"})
			continue
		case seen[fuelTypeID]:
			result.Failed = append(result.Failed, dto.FailedEntry{FuelTypeID: fuelTypeID, Value: raw, Error: "duplicate fuel_type_id in batch"})
			continue
		}
		if err := checkFuelTypeID(fuelTypeID); err != nil {
			result.Failed = append(result.Failed, dto.FailedEntry{FuelTypeID: key, Value: raw, Error: err.Error()})
			continue
		}
		seen[fuelTypeID] = true

		price, err := ParsePrice(fuelTypeID, raw)
		if err != nil {
			result.Failed = append(result.Failed, dto.FailedEntry{FuelTypeID: fuelTypeID, Value: raw, Error: err.Error()})
			continue
		}
		rows = append(rows, model.PriceObservation{
			StationID:  stationID,
			FuelTypeID: fuelTypeID,
			Price:      price,
			ObservedAt: at,
			Source:     src,
			UserID:     userID,
		})
	}

	if len(rows) > 0 {
		if err := s.prices.CreateBatch(ctx, rows); err != nil {
			return nil, err
		}
		s.afterCommit(ctx, rows)
	}
	for _, r := range rows {
		result.Accepted = append(result.Accepted, observationToResponse(r))
	}

	log.Info().
		Uint("station_id", stationID).
		Int("accepted", len(result.Accepted)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Str("source", src).
		Msg("ledger: batch recorded")
	return result, nil
}

func (s *ledgerService) HistoryFor(ctx context.Context, stationID uint, fuelTypeID string, limit int) ([]dto.ObservationResponse, error) {
	fuelTypeID = strings.TrimSpace(fuelTypeID)
	if fuelTypeID == "" {
		return nil, invalid("fuel_type_id is required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if err := s.requireStation(ctx, stationID); err != nil {
		return nil, err
	}
	rows, err := s.prices.ListHistory(ctx, stationID, fuelTypeID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ObservationResponse, len(rows))
	for i, r := range rows {
		out[i] = observationToResponse(r)
	}
	return out, nil
}

// ParsePrice parses a price string as entered by a user or read off a board.
// The range check applies to the stored, rounded value.
func ParsePrice(fuelTypeID, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, &ParseError{FuelTypeID: fuelTypeID, Value: raw, Err: err}
	}
	d = d.Round(3)
	if err := checkPrice(fuelTypeID, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func checkFuelTypeID(fuelTypeID string) error {
	if fuelTypeID == "" {
		return invalid("fuel_type_id is required")
	}
	if len(fuelTypeID) > MaxFuelTypeIDLen {
		return invalid("fuel_type_id is longer than %d bytes", MaxFuelTypeIDLen)
	}
	return nil
}

// checkSource applies the default and the column width.
func checkSource(source string) (string, error) {
	src := sourceOrDefault(source)
	if len(src) > MaxSourceLen {
		return "", invalid("source is longer than %d bytes", MaxSourceLen)
	}
	return src, nil
}

func checkPrice(fuelTypeID string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return invalid("fuel %q: price must be positive", fuelTypeID)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return invalid("fuel %q: price is out of range", fuelTypeID)
	}
	return nil
}

func (s *ledgerService) requireStation(ctx context.Context, stationID uint) error {
	ok, err := s.stations.Exists(ctx, stationID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("station %d not found", stationID)
	}
	return nil
}

// timestamp is truncated to what the database keeps so the returned rows
// match what a later read sees.
func (s *ledgerService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *ledgerService) afterCommit(ctx context.Context, rows []model.PriceObservation) {
	InvalidateStations(ctx, s.cache)
	s.notifier.PricesRecorded(ctx, rows)
}

func sourceOrDefault(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return model.SourceManualUpdate
	}
	return source
}

func observationToResponse(o model.PriceObservation) dto.ObservationResponse {
	return dto.ObservationResponse{
		ID:         o.ID,
		StationID:  o.StationID,
		FuelTypeID: o.FuelTypeID,
		Price:      o.Price.InexactFloat64(),
		Source:     o.Source,
		UserID:     o.UserID,
		ObservedAt: formatTime(o.ObservedAt),
	}
}
