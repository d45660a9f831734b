package repository

import (
	"context"
	"fmt"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"gorm.io/gorm"
)

// PriceRepository is the append-only price ledger. It exposes no update or
// delete: history is never rewritten.
type PriceRepository interface {
	Create(ctx context.Context, o *model.PriceObservation) error
	// CreateBatch inserts all rows in a single transaction.
	CreateBatch(ctx context.Context, rows []model.PriceObservation) error
	ListHistory(ctx context.Context, stationID uint, fuelTypeID string, limit int) ([]model.PriceObservation, error)
	// LatestForStation returns one row per fuel type: the newest observation,
	// ties on observed_at going to the highest id.
	LatestForStation(ctx context.Context, stationID uint) ([]model.PriceObservation, error)
	// LatestAll is LatestForStation over the whole ledger in one query.
	LatestAll(ctx context.Context) ([]model.PriceObservation, error)
	Count(ctx context.Context) (int64, error)
}

type priceRepo struct{ db *gorm.DB }

func NewPriceRepository(db *gorm.DB) PriceRepository { return &priceRepo{db: db} }

const latestPerGroupSQL = `
SELECT DISTINCT ON (station_id, fuel_type_id)
       id, station_id, fuel_type_id, price, observed_at, source, user_id
FROM price_observations
%s
ORDER BY station_id, fuel_type_id, observed_at DESC, id DESC`

func (r *priceRepo) Create(ctx context.Context, o *model.PriceObservation) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *priceRepo) CreateBatch(ctx context.Context, rows []model.PriceObservation) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}

// ListHistory returns observations newest-first (the table is append-only,
// so observed_at DESC, id DESC reflects reverse insert order).
func (r *priceRepo) ListHistory(ctx context.Context, stationID uint, fuelTypeID string, limit int) ([]model.PriceObservation, error) {
	var rows []model.PriceObservation
	err := r.db.WithContext(ctx).
		Where("station_id = ? AND fuel_type_id = ?", stationID, fuelTypeID).
		Order("observed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *priceRepo) LatestForStation(ctx context.Context, stationID uint) ([]model.PriceObservation, error) {
	var rows []model.PriceObservation
	err := r.db.WithContext(ctx).
		Raw(fmt.Sprintf(latestPerGroupSQL, "WHERE station_id = ?"), stationID).
		Scan(&rows).Error
	return rows, err
}

func (r *priceRepo) LatestAll(ctx context.Context) ([]model.PriceObservation, error) {
	var rows []model.PriceObservation
	err := r.db.WithContext(ctx).
		Raw(fmt.Sprintf(latestPerGroupSQL, "")).
		Scan(&rows).Error
	return rows, err
}

func (r *priceRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PriceObservation{}).Count(&n).Error
	return n, err
}
