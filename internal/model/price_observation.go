package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance tags for PriceObservation.Source. Any other free-text value is accepted.
const (
	SourceManualUpdate  = "manual_update"
	SourceUserPhoto     = "user_photo"
	SourceInitialImport = "initial_import"
)

// PriceObservation is one immutable ledger row. Rows are only ever appended;
// the current price of (station, fuel type) is the row with the latest
// ObservedAt, ties going to the highest ID.
//
// StationID carries no foreign key: the ledger may live in a separate
// database from the catalog.
type PriceObservation struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	StationID  uint            `gorm:"not null;index"`
	FuelTypeID string          `gorm:"type:varchar(60);not null"`
	Price      decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	ObservedAt time.Time       `gorm:"not null"`
	Source     string          `gorm:"type:varchar(40);not null;default:'manual_update'"`
	UserID     *uint           `gorm:"index"`
}

func (PriceObservation) TableName() string { return "price_observations" }
