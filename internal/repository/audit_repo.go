package repository

import (
	"context"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, e *model.AuditLog) error
	// List returns the newest entries first.
	List(ctx context.Context, limit int) ([]model.AuditLog, error)
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, e *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *auditRepo) List(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	var rows []model.AuditLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
