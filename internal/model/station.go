package model

import (
	"time"

	"gorm.io/datatypes"
)

// FuelType is one entry of a station's fuel configuration.
type FuelType struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Label string `json:"label" yaml:"label" mapstructure:"label"`
}

// Station is a catalog entry. Stations are never deleted; FuelConfig may be
// re-derived from Brand without touching the price ledger.
type Station struct {
	ID         uint                          `gorm:"primaryKey;autoIncrement"`
	Name       string                        `gorm:"not null"`
	Brand      *string                       `gorm:"type:varchar(60);index"`
	Lat        float64                       `gorm:"not null"`
	Lng        float64                       `gorm:"not null"`
	Address    *string
	FuelConfig datatypes.JSONSlice[FuelType] `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Station) TableName() string { return "stations" }

// BrandName returns the brand or "" when absent.
func (s *Station) BrandName() string {
	if s.Brand == nil {
		return ""
	}
	return *s.Brand
}
