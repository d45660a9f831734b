package model

import "time"

// SiteInfo holds public key/value settings shown by the client (title, currency...).
type SiteInfo struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Key         string `gorm:"type:varchar(80);uniqueIndex;not null"`
	Value       string `gorm:"not null"`
	Description *string
	UpdatedAt   time.Time
}

func (SiteInfo) TableName() string { return "site_info" }
