package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/cache"
	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/fuelconfig"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultStationName is used when a station is created without a name.
const DefaultStationName = "Unknown Station"

// CatalogService owns stations and their fuel configuration.
type CatalogService interface {
	CreateStation(ctx context.Context, req dto.CreateStationRequest, actorID *uint) (*dto.StationResponse, error)
	GetStation(ctx context.Context, id uint) (*dto.StationResponse, error)
	ListStations(ctx context.Context) ([]dto.StationResponse, error)
	// ResyncFuelConfig re-derives a station's fuel config from its brand.
	// Price history is not touched; observations for fuel ids that drop out
	// of the config stay in the ledger and simply stop being shown.
	ResyncFuelConfig(ctx context.Context, id uint, actorID *uint) (*dto.StationResponse, error)
	// ResyncAll resyncs every station and returns how many changed.
	ResyncAll(ctx context.Context) (int, error)
}

type catalogService struct {
	repo  repository.StationRepository
	fuels *fuelconfig.Table
	cache cache.Store
	audit AuditSink
}

func NewCatalogService(repo repository.StationRepository, fuels *fuelconfig.Table, store cache.Store, audit AuditSink) CatalogService {
	if fuels == nil {
		fuels = fuelconfig.Builtin()
	}
	if audit == nil {
		audit = LogAuditSink{}
	}
	return &catalogService{repo: repo, fuels: fuels, cache: store, audit: audit}
}

func (s *catalogService) CreateStation(ctx context.Context, req dto.CreateStationRequest, actorID *uint) (*dto.StationResponse, error) {
	if req.Lat == nil || req.Lng == nil {
		return nil, invalid("lat and lng are required")
	}
	if err := checkCoordinates(*req.Lat, *req.Lng); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultStationName
	}
	brand := trimmedOrNil(req.Brand)
	address := trimmedOrNil(req.Address)

	var fuels []model.FuelType
	if len(req.FuelConfig) > 0 {
		fuels = make([]model.FuelType, len(req.FuelConfig))
		for i, f := range req.FuelConfig {
			fuels[i] = model.FuelType{ID: strings.TrimSpace(f.ID), Label: strings.TrimSpace(f.Label)}
			if fuels[i].Label == "" {
				fuels[i].Label = fuels[i].ID
			}
		}
		if err := fuelconfig.Validate(fuels); err != nil {
			return nil, invalid("fuel_config: %s", err.Error())
		}
	} else {
		fuels = s.fuels.For(deref(brand))
	}

	st := &model.Station{
		Name:       name,
		Brand:      brand,
		Lat:        *req.Lat,
		Lng:        *req.Lng,
		Address:    address,
		FuelConfig: fuels,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	InvalidateStations(ctx, s.cache)

	s.audit.Record(ctx, AuditEntry{
		ActorID:  actorID,
		Action:   ActionStationCreated,
		TargetID: targetID(st.ID),
		Details:  map[string]any{"name": st.Name, "brand": st.BrandName(), "fuel_count": len(fuels)},
		IP:       ClientIP(ctx),
		At:       time.Now(),
	})
	log.Info().Uint("station_id", st.ID).Str("brand", st.BrandName()).Msg("catalog: station created")

	resp := stationToResponse(st)
	return &resp, nil
}

func (s *catalogService) GetStation(ctx context.Context, id uint) (*dto.StationResponse, error) {
	st, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := stationToResponse(st)
	return &resp, nil
}

func (s *catalogService) ListStations(ctx context.Context) ([]dto.StationResponse, error) {
	stations, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StationResponse, len(stations))
	for i := range stations {
		out[i] = stationToResponse(&stations[i])
	}
	return out, nil
}

func (s *catalogService) ResyncFuelConfig(ctx context.Context, id uint, actorID *uint) (*dto.StationResponse, error) {
	st, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := s.resync(ctx, st)
	if err != nil {
		return nil, err
	}
	if changed {
		InvalidateStations(ctx, s.cache)
		s.audit.Record(ctx, AuditEntry{
			ActorID:  actorID,
			Action:   ActionFuelConfigResynced,
			TargetID: targetID(st.ID),
			Details:  map[string]any{"brand": st.BrandName(), "template_version": s.fuels.Version},
			IP:       ClientIP(ctx),
			At:       time.Now(),
		})
	}
	resp := stationToResponse(st)
	return &resp, nil
}

func (s *catalogService) ResyncAll(ctx context.Context) (int, error) {
	stations, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for i := range stations {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		changed, err := s.resync(ctx, &stations[i])
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}
	if updated > 0 {
		InvalidateStations(ctx, s.cache)
		s.audit.Record(ctx, AuditEntry{
			Action:  ActionFuelConfigResynced,
			Details: map[string]any{"updated": updated, "template_version": s.fuels.Version},
			IP:      ClientIP(ctx),
			At:      time.Now(),
		})
	}
	log.Info().Int("stations", len(stations)).Int("updated", updated).
		Str("template_version", s.fuels.Version).Msg("catalog: fuel configs resynced")
	return updated, nil
}

// resync writes the brand template onto st when it differs. st is updated
// in place.
func (s *catalogService) resync(ctx context.Context, st *model.Station) (bool, error) {
	want := s.fuels.For(st.BrandName())
	if fuelconfig.Equal(st.FuelConfig, want) {
		return false, nil
	}
	if err := s.repo.UpdateFuelConfig(ctx, st.ID, want); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, notFound("station %d not found", st.ID)
		}
		return false, err
	}
	st.FuelConfig = want
	return true, nil
}

func (s *catalogService) find(ctx context.Context, id uint) (*model.Station, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("station %d not found", id)
		}
		return nil, err
	}
	return st, nil
}

func checkCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return invalid("lat and lng must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return invalid("lat must be within [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		return invalid("lng must be within [-180, 180]")
	}
	return nil
}

func stationToResponse(st *model.Station) dto.StationResponse {
	fuels := make([]dto.FuelTypeDTO, len(st.FuelConfig))
	for i, f := range st.FuelConfig {
		fuels[i] = dto.FuelTypeDTO{ID: f.ID, Label: f.Label}
	}
	return dto.StationResponse{
		ID:         st.ID,
		Name:       st.Name,
		Brand:      st.Brand,
		Lat:        st.Lat,
		Lng:        st.Lng,
		Address:    st.Address,
		FuelConfig: fuels,
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
