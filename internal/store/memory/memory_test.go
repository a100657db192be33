package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbudget/internal/core"
	"tripbudget/internal/store"
)

func TestTripsHideSoftDeleted(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddTrip(core.TripHeader{ID: "t1", UserID: "u1", Name: "Rome"})
	s.AddTrip(core.TripHeader{ID: "t2", UserID: "u1", Name: "Lisbon"})
	s.AddTrip(core.TripHeader{ID: "t3", UserID: "u2", Name: "Oslo"})

	trips, err := s.ListTrips(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Rome", trips[0].Name)
	assert.Equal(t, "Lisbon", trips[1].Name)

	s.SoftDeleteTrip("t1")
	_, err = s.GetTripHeader(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	trips, err = s.ListTrips(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "t2", trips[0].ID)
}

func TestStopsOrderedByStartDate(t *testing.T) {
	s := New()
	s.AddStop(core.TripStop{ID: "s2", TripID: "t1", StartDate: core.NewDate(2026, 5, 4)})
	s.AddStop(core.TripStop{ID: "s1", TripID: "t1", StartDate: core.NewDate(2026, 5, 1)})

	stops, err := s.ListStops(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "s1", stops[0].ID)
	assert.Equal(t, "s2", stops[1].ID)
}

func TestCurrencies(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.UpsertCurrencies(ctx, []core.Currency{{ID: "c-bad", Code: "BAD", ExchangeRateToUSD: 0}})
	require.ErrorIs(t, err, core.ErrInvalidRate)

	require.NoError(t, s.UpsertCurrencies(ctx, []core.Currency{
		{ID: "c-usd", Code: "USD", ExchangeRateToUSD: 1},
		{ID: "c-eur", Code: "EUR", ExchangeRateToUSD: 0.92},
	}))

	all, err := s.ListCurrencies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "EUR", all[0].Code)

	c, err := s.GetCurrencyByCode(ctx, "eur")
	require.NoError(t, err)
	assert.Equal(t, "c-eur", c.ID)

	_, err = s.GetCurrencyByID(ctx, "c-jpy")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestActivitiesByStop(t *testing.T) {
	s := New()
	s.AddScheduledActivity(store.ScheduledActivityRow{ID: "a1", StopID: "s1"})
	s.AddScheduledActivity(store.ScheduledActivityRow{ID: "a2", StopID: "s2"})
	s.AddScheduledActivity(store.ScheduledActivityRow{ID: "a3", StopID: "s3"})

	rows, err := s.ListScheduledActivities(context.Background(), []string{"s1", "s3"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[0].ID)
	assert.Equal(t, "a3", rows[1].ID)
}

func TestSharedLinks(t *testing.T) {
	ctx := context.Background()
	s := New()
	link := core.SharedLink{Token: "tok", TripID: "t1"}

	require.NoError(t, s.CreateSharedLink(ctx, link))
	assert.Error(t, s.CreateSharedLink(ctx, link))

	got, err := s.GetSharedLink(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.TripID)

	require.NoError(t, s.DeleteSharedLink(ctx, "tok"))
	assert.ErrorIs(t, s.DeleteSharedLink(ctx, "tok"), store.ErrNotFound)
}
