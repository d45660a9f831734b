package repository

import (
	"context"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SiteInfoRepository interface {
	List(ctx context.Context) ([]model.SiteInfo, error)
	Upsert(ctx context.Context, item *model.SiteInfo) error
}

type siteInfoRepo struct{ db *gorm.DB }

func NewSiteInfoRepository(db *gorm.DB) SiteInfoRepository { return &siteInfoRepo{db: db} }

func (r *siteInfoRepo) List(ctx context.Context) ([]model.SiteInfo, error) {
	var items []model.SiteInfo
	err := r.db.WithContext(ctx).Order("key ASC").Find(&items).Error
	return items, err
}

// Upsert inserts the key or overwrites its value. A nil description keeps
// the stored one.
func (r *siteInfoRepo) Upsert(ctx context.Context, item *model.SiteInfo) error {
	cols := []string{"value", "updated_at"}
	if item.Description != nil {
		cols = append(cols, "description")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(item).Error
}
