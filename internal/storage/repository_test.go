package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbudget/internal/core"
	"tripbudget/internal/store"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func exec(t *testing.T, repo *SQLiteRepository, query string, args ...any) {
	t.Helper()
	_, err := repo.db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err, query)
}

func seed(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpsertCurrencies(ctx, []core.Currency{
		{ID: "c-usd", Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRateToUSD: 1},
		{ID: "c-eur", Code: "eur", Name: "Euro", Symbol: "€", ExchangeRateToUSD: 0.92},
	}))

	exec(t, repo, `INSERT INTO trips (id, user_id, name, budget, currency_code) VALUES ('t1', 'u1', 'Italy', 1500, 'USD')`)
	exec(t, repo, `INSERT INTO trips (id, user_id, name, currency_code, total_estimated_cost) VALUES ('t2', 'u1', 'Draft', 'EUR', 300)`)
	exec(t, repo, `INSERT INTO trips (id, user_id, name, currency_code, deleted_at) VALUES ('t3', 'u1', 'Gone', 'USD', CURRENT_TIMESTAMP)`)

	exec(t, repo, `INSERT INTO trip_stops (id, trip_id, city_name, start_date, end_date) VALUES ('s2', 't1', 'Florence', '2025-05-04', '2025-05-07')`)
	exec(t, repo, `INSERT INTO trip_stops (id, trip_id, city_name, start_date, end_date) VALUES ('s1', 't1', 'Rome', '2025-05-01', '2025-05-04')`)

	exec(t, repo, `INSERT INTO trip_category_budgets (trip_id, category, amount) VALUES ('t1', 'Food & Dining', 200), ('t1', 'transport', 700)`)

	exec(t, repo, `INSERT INTO accommodations (id, trip_id, stop_id, name, price_per_night, nights, currency_id, check_in)
		VALUES ('a1', 't1', 's1', 'Hotel Roma', 250, 3, 'c-eur', '2025-05-01')`)
	exec(t, repo, `INSERT INTO accommodations (id, trip_id, nights) VALUES ('a2', 't1', 0)`)

	exec(t, repo, `INSERT INTO transport_legs (id, trip_id, from_stop_id, to_stop_id, mode, cost, currency_id, departure_date)
		VALUES ('l1', 't1', 's1', 's2', 'train', 85, 'c-eur', '2025-05-04')`)

	exec(t, repo, `INSERT INTO activities (id, name, price, currency_id) VALUES ('act1', 'Colosseum', 24, 'c-eur')`)
	exec(t, repo, `INSERT INTO stop_activities (id, stop_id, activity_id, scheduled_date) VALUES ('sa1', 's1', 'act1', '2025-05-02')`)
	exec(t, repo, `INSERT INTO stop_activities (id, stop_id, activity_id, cost_override, currency_id) VALUES ('sa2', 's2', 'act1', 30, 'c-usd')`)
	exec(t, repo, `INSERT INTO stop_activities (id, stop_id) VALUES ('sa3', 's2')`)

	exec(t, repo, `INSERT INTO cost_items (id, trip_id, stop_id, category, description, amount, currency_id, date)
		VALUES ('ci1', 't1', 's2', 'food', 'Dinner', 60, 'c-eur', '2025-05-05')`)
}

func TestMigrationsApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path), "second run must be a no-op")

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestTripQueries(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo)
	ctx := context.Background()

	h, err := repo.GetTripHeader(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, h.Budget)
	assert.Equal(t, 1500.0, *h.Budget)
	assert.Nil(t, h.StoredEstimatedCost)

	_, err = repo.GetTripHeader(ctx, "t3")
	assert.True(t, errors.Is(err, store.ErrNotFound), "soft deleted trip must not be found")
	_, err = repo.GetTripHeader(ctx, "nope")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	trips, err := repo.ListTrips(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "t1", trips[0].ID)
	require.NotNil(t, trips[1].StoredEstimatedCost)
	assert.Equal(t, 300.0, *trips[1].StoredEstimatedCost)

	stops, err := repo.ListStops(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "Rome", stops[0].City)
	assert.Equal(t, core.NewDate(2025, 5, 1), stops[0].StartDate)

	budgets, err := repo.ListCategoryBudgets(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, map[core.Category]float64{
		core.CategoryFoodAndDining: 200,
		core.CategoryTransport:     700,
	}, budgets)
}

func TestCostSourceQueries(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo)
	ctx := context.Background()

	acc, err := repo.ListAccommodations(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, acc, 2)
	var hotel, bare store.AccommodationRow
	for _, a := range acc {
		if a.ID == "a1" {
			hotel = a
		} else {
			bare = a
		}
	}
	require.NotNil(t, hotel.CityName)
	assert.Equal(t, "Rome", *hotel.CityName)
	assert.Equal(t, 3, hotel.Nights)
	assert.Equal(t, 250.0, *hotel.PricePerNight)
	assert.Nil(t, hotel.TotalCost)
	assert.Equal(t, core.NewDate(2025, 5, 1), *hotel.CheckIn)
	assert.Nil(t, bare.Name)
	assert.Nil(t, bare.CityName)
	assert.Nil(t, bare.CurrencyID)

	legs, err := repo.ListTransportLegs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "Rome", *legs[0].FromCity)
	assert.Equal(t, "Florence", *legs[0].ToCity)

	acts, err := repo.ListScheduledActivities(ctx, []string{"s1", "s2"})
	require.NoError(t, err)
	require.Len(t, acts, 3)
	byID := map[string]store.ScheduledActivityRow{}
	for _, a := range acts {
		byID[a.ID] = a
	}
	assert.Equal(t, "c-eur", *byID["sa1"].CurrencyID, "activity currency is inherited")
	assert.Equal(t, "c-usd", *byID["sa2"].CurrencyID, "scheduled currency wins")
	assert.Equal(t, 30.0, *byID["sa2"].CostOverride)
	assert.Nil(t, byID["sa3"].ActivityName)

	none, err := repo.ListScheduledActivities(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	items, err := repo.ListCostItems(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "s2", *items[0].StopID)
	assert.Equal(t, "food", items[0].Category)
}

func TestCurrencyAndUserQueries(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo)
	ctx := context.Background()

	c, err := repo.GetCurrencyByCode(ctx, "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", c.Code)

	_, err = repo.GetCurrencyByID(ctx, "c-gbp")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, repo.UpsertCurrencies(ctx, []core.Currency{{ID: "c-eur", Code: "EUR", Name: "Euro", ExchangeRateToUSD: 0.95}}))
	c, err = repo.GetCurrencyByID(ctx, "c-eur")
	require.NoError(t, err)
	assert.Equal(t, 0.95, c.ExchangeRateToUSD)

	err = repo.UpsertCurrencies(ctx, []core.Currency{{ID: "c-bad", Code: "BAD", ExchangeRateToUSD: -1}})
	assert.True(t, errors.Is(err, core.ErrInvalidRate))

	all, err := repo.ListCurrencies(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	id, err := repo.GetPreferredCurrencyID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, repo.SetPreferredCurrencyID(ctx, "u1", "c-eur"))
	require.NoError(t, repo.SetPreferredCurrencyID(ctx, "u1", "c-usd"))
	id, err = repo.GetPreferredCurrencyID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c-usd", id)
}

func TestSharedLinks(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	expires := created.Add(48 * time.Hour)
	require.NoError(t, repo.CreateSharedLink(ctx, core.SharedLink{Token: "tok-1", TripID: "t1", CreatedAt: created, ExpiresAt: &expires}))
	require.NoError(t, repo.CreateSharedLink(ctx, core.SharedLink{Token: "tok-2", TripID: "t1", CreatedAt: created}))

	link, err := repo.GetSharedLink(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, link.CreatedAt.Equal(created))
	require.NotNil(t, link.ExpiresAt)
	assert.True(t, link.ExpiresAt.Equal(expires))

	link, err = repo.GetSharedLink(ctx, "tok-2")
	require.NoError(t, err)
	assert.Nil(t, link.ExpiresAt)

	require.NoError(t, repo.DeleteSharedLink(ctx, "tok-1"))
	assert.True(t, errors.Is(repo.DeleteSharedLink(ctx, "tok-1"), store.ErrNotFound))
	_, err = repo.GetSharedLink(ctx, "tok-1")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
