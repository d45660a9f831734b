package infra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeOpener hands out distinct *gorm.DB values per DSN and records which
// ones were closed. No connection is made.
type fakeOpener struct {
	dbs    map[string]*gorm.DB
	closed map[*gorm.DB]bool
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{dbs: map[string]*gorm.DB{}, closed: map[*gorm.DB]bool{}}
}

func (f *fakeOpener) opener(catalogErr, ledgerErr error) storeOpener {
	return storeOpener{
		connect: func(dsn string) (*gorm.DB, error) {
			db := &gorm.DB{Config: &gorm.Config{}}
			f.dbs[dsn] = db
			return db, nil
		},
		migrateCatalog: func(*gorm.DB) error { return catalogErr },
		migrateLedger:  func(*gorm.DB) error { return ledgerErr },
		close:          func(db *gorm.DB) { f.closed[db] = true },
	}
}

func TestOpenStores_SharedLedger(t *testing.T) {
	f := newFakeOpener()
	stores, err := f.opener(nil, nil).open("postgres://main", "postgres://main")
	require.NoError(t, err)
	assert.False(t, stores.Separate())
	assert.Empty(t, f.closed)
}

func TestOpenStores_CatalogMigrationFailureClosesCatalog(t *testing.T) {
	f := newFakeOpener()
	_, err := f.opener(errors.New("boom"), nil).open("postgres://main", "postgres://ledger")
	require.Error(t, err)
	assert.True(t, f.closed[f.dbs["postgres://main"]])
	assert.NotContains(t, f.dbs, "postgres://ledger")
}

func TestOpenStores_LedgerMigrationFailureClosesBoth(t *testing.T) {
	f := newFakeOpener()
	_, err := f.opener(nil, errors.New("boom")).open("postgres://main", "postgres://ledger")
	require.Error(t, err)
	assert.True(t, f.closed[f.dbs["postgres://main"]])
	assert.True(t, f.closed[f.dbs["postgres://ledger"]])
}

func TestOpenStores_SharedLedgerMigrationFailureClosesOnce(t *testing.T) {
	f := newFakeOpener()
	_, err := f.opener(nil, errors.New("boom")).open("postgres://main", "")
	require.Error(t, err)
	assert.Len(t, f.closed, 1)
}
