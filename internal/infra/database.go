package infra

import (
	"fmt"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Stores groups the catalog and ledger handles. Both point at the same *gorm.DB
// unless the ledger was configured with its own DSN.
type Stores struct {
	Catalog *gorm.DB
	Ledger  *gorm.DB
}

// Separate reports whether the ledger has its own connection.
func (s *Stores) Separate() bool { return s.Catalog != s.Ledger }

// Close releases the underlying connections.
func (s *Stores) Close() {
	closeDB(s.Catalog)
	if s.Separate() {
		closeDB(s.Ledger)
	}
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// OpenStores connects the catalog (stations, users, audit, site info) and the
// price ledger. An empty or identical ledgerDSN shares the catalog connection.
// On error every handle opened so far is closed.
func OpenStores(catalogDSN, ledgerDSN string) (*Stores, error) {
	return defaultOpener.open(catalogDSN, ledgerDSN)
}

type storeOpener struct {
	connect        func(dsn string) (*gorm.DB, error)
	migrateCatalog func(*gorm.DB) error
	migrateLedger  func(*gorm.DB) error
	close          func(*gorm.DB)
}

var defaultOpener = storeOpener{
	connect:        NewDatabase,
	migrateCatalog: MigrateCatalog,
	migrateLedger:  MigrateLedger,
	close:          closeDB,
}

func (o storeOpener) open(catalogDSN, ledgerDSN string) (*Stores, error) {
	catalog, err := o.connect(catalogDSN)
	if err != nil {
		return nil, fmt.Errorf("catalog db: %w", err)
	}
	if err := o.migrateCatalog(catalog); err != nil {
		o.close(catalog)
		return nil, err
	}

	ledger := catalog
	if ledgerDSN != "" && ledgerDSN != catalogDSN {
		if ledger, err = o.connect(ledgerDSN); err != nil {
			o.close(catalog)
			return nil, fmt.Errorf("ledger db: %w", err)
		}
	}
	if err := o.migrateLedger(ledger); err != nil {
		o.close(catalog)
		if ledger != catalog {
			o.close(ledger)
		}
		return nil, err
	}
	return &Stores{Catalog: catalog, Ledger: ledger}, nil
}

// NewDatabase establishes a GORM connection backed by pgx.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return db, nil
}

// MigrateCatalog creates / updates the catalog-side tables.
func MigrateCatalog(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Station{},
		&model.User{},
		&model.AuditLog{},
		&model.SiteInfo{},
	); err != nil {
		return fmt.Errorf("catalog AutoMigrate: %w", err)
	}
	return nil
}

// MigrateLedger creates the price ledger table, then applies the index GORM
// tags cannot express: the DESC composite that serves DISTINCT ON lookups.
func MigrateLedger(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.PriceObservation{}); err != nil {
		return fmt.Errorf("ledger AutoMigrate: %w", err)
	}
	return applyLedgerPatches(db)
}

func applyLedgerPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE INDEX IF NOT EXISTS idx_price_obs_latest
		    ON price_observations (station_id, fuel_type_id, observed_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_price_obs_observed_at
		    ON price_observations (observed_at DESC)`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
