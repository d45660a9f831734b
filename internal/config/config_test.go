package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("LEDGER_DATABASE_URL", "postgres://ledger@localhost/ledger")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 168, cfg.JWTExpirationHours)
	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.LedgerDSN())
}

func TestLedgerDSN_FallsBackToCatalog(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://main"}

	assert.Equal(t, "postgres://main", cfg.LedgerDSN())
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Env: "production"}).IsProduction())
	assert.False(t, (&Config{Env: "development"}).IsProduction())
}
