package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is a best-effort record of an administrative or account action.
// Action: station_created | fuel_config_resynced | user_registered | site_info_updated | ...
type AuditLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	ActorID   *uint          `gorm:"index"`
	Action    string         `gorm:"type:varchar(60);not null"`
	TargetID  *string        `gorm:"type:varchar(60)"`
	Details   datatypes.JSON `gorm:"type:jsonb"`
	IPAddress *string        `gorm:"type:varchar(64)"`
	CreatedAt time.Time      `gorm:"index"`
}

func (AuditLog) TableName() string { return "audit_logs" }
