package repository

import (
	"context"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StationRepository defines the data access contract for the station catalog.
// Services depend on this interface, not on the concrete GORM implementation.
type StationRepository interface {
	Create(ctx context.Context, s *model.Station) error
	FindByID(ctx context.Context, id uint) (*model.Station, error)
	Exists(ctx context.Context, id uint) (bool, error)
	// List returns every station ordered by id.
	List(ctx context.Context) ([]model.Station, error)
	Sample(ctx context.Context, limit int) ([]model.Station, error)
	UpdateFuelConfig(ctx context.Context, id uint, fuels []model.FuelType) error
	Count(ctx context.Context) (int64, error)
}

type stationRepo struct{ db *gorm.DB }

func NewStationRepository(db *gorm.DB) StationRepository { return &stationRepo{db: db} }

func (r *stationRepo) Create(ctx context.Context, s *model.Station) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *stationRepo) FindByID(ctx context.Context, id uint) (*model.Station, error) {
	var s model.Station
	err := r.db.WithContext(ctx).First(&s, id).Error
	return &s, err
}

func (r *stationRepo) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Station{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *stationRepo) List(ctx context.Context) ([]model.Station, error) {
	var stations []model.Station
	err := r.db.WithContext(ctx).Order("id ASC").Find(&stations).Error
	return stations, err
}

func (r *stationRepo) Sample(ctx context.Context, limit int) ([]model.Station, error) {
	var stations []model.Station
	err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Find(&stations).Error
	return stations, err
}

// UpdateFuelConfig overwrites only fuel_config (and updated_at); the ledger is untouched.
func (r *stationRepo) UpdateFuelConfig(ctx context.Context, id uint, fuels []model.FuelType) error {
	res := r.db.WithContext(ctx).Model(&model.Station{}).Where("id = ?", id).
		Update("fuel_config", datatypes.JSONSlice[model.FuelType](fuels))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *stationRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Station{}).Count(&n).Error
	return n, err
}
