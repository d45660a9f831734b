//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/infra"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *infra.Stores {
	t.Helper()
	ctx := context.Background()
	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("gasoline_test"),
		tcPostgres.WithUsername("gasoline"),
		tcPostgres.WithPassword("gasoline"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	stores, err := infra.OpenStores(url, "")
	require.NoError(t, err)
	t.Cleanup(stores.Close)
	return stores
}

func obs(stationID uint, fuel, price string, at time.Time) model.PriceObservation {
	return model.PriceObservation{
		StationID:  stationID,
		FuelTypeID: fuel,
		Price:      decimal.RequireFromString(price),
		ObservedAt: at,
		Source:     model.SourceManualUpdate,
	}
}

func TestPostgres_Ledger(t *testing.T) {
	stores := startPostgres(t)
	ctx := context.Background()
	stations := NewStationRepository(stores.Catalog)
	prices := NewPriceRepository(stores.Ledger)

	brand := "SOCAR"
	a := &model.Station{Name: "A", Brand: &brand, Lat: 41.7, Lng: 44.8,
		FuelConfig: []model.FuelType{{ID: "n95", Label: "NANO 95"}, {ID: "diesel", Label: "NANO DT"}}}
	b := &model.Station{Name: "B", Lat: 41.8, Lng: 44.9, FuelConfig: []model.FuelType{{ID: "regular", Label: "Regular"}}}
	require.NoError(t, stations.Create(ctx, a))
	require.NoError(t, stations.Create(ctx, b))

	t0 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, prices.CreateBatch(ctx, []model.PriceObservation{
		obs(a.ID, "n95", "2.800", t0),
		obs(a.ID, "n95", "2.900", t0.Add(time.Hour)),
		obs(a.ID, "diesel", "2.500", t0),
		obs(b.ID, "regular", "2.100", t0),
	}))
	// Same timestamp as the newest n95 row: the higher id wins.
	require.NoError(t, prices.Create(ctx, ptrObs(obs(a.ID, "n95", "2.950", t0.Add(time.Hour)))))

	latest, err := prices.LatestForStation(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	byFuel := map[string]string{}
	for _, o := range latest {
		byFuel[o.FuelTypeID] = o.Price.StringFixed(3)
	}
	assert.Equal(t, map[string]string{"n95": "2.950", "diesel": "2.500"}, byFuel)

	all, err := prices.LatestAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	history, err := prices.ListHistory(ctx, a.ID, "n95", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2.95", history[0].Price.String())
	assert.Equal(t, "2.8", history[2].Price.String())

	n, err := prices.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// Re-deriving the fuel config leaves the ledger alone.
	require.NoError(t, stations.UpdateFuelConfig(ctx, a.ID, []model.FuelType{{ID: "n92", Label: "NANO 92"}}))
	got, err := stations.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.FuelType{{ID: "n92", Label: "NANO 92"}}, []model.FuelType(got.FuelConfig))
	n, _ = prices.Count(ctx)
	assert.Equal(t, int64(5), n)
}

func ptrObs(o model.PriceObservation) *model.PriceObservation { return &o }

func TestPostgres_SiteInfoUpsert(t *testing.T) {
	stores := startPostgres(t)
	ctx := context.Background()
	repo := NewSiteInfoRepository(stores.Catalog)

	desc := "shown in the footer"
	require.NoError(t, repo.Upsert(ctx, &model.SiteInfo{Key: "contact", Value: "a@example.com", Description: &desc}))
	require.NoError(t, repo.Upsert(ctx, &model.SiteInfo{Key: "contact", Value: "b@example.com"}))

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b@example.com", items[0].Value)
	require.NotNil(t, items[0].Description)
	assert.Equal(t, desc, *items[0].Description)
}

func TestPostgres_UsersAndAudit(t *testing.T) {
	stores := startPostgres(t)
	ctx := context.Background()
	users := NewUserRepository(stores.Catalog)
	audit := NewAuditRepository(stores.Catalog)

	u := &model.User{Email: "x@example.com", Name: "X", PasswordHash: "hash", Role: model.RoleUser}
	require.NoError(t, users.Create(ctx, u))
	assert.Error(t, users.Create(ctx, &model.User{Email: "x@example.com", Name: "Y", PasswordHash: "h", Role: model.RoleUser}))

	found, err := users.FindByEmail(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	now := time.Now().UTC()
	require.NoError(t, audit.Create(ctx, &model.AuditLog{Action: "first", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, audit.Create(ctx, &model.AuditLog{Action: "second", CreatedAt: now}))
	rows, err := audit.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].Action)
}
