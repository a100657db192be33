package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbudget/internal/core"
	"tripbudget/internal/store"
)

func TestShareService(t *testing.T) {
	f := newFixture(t)
	f.seedRomeTrip()
	shares := NewShareService(f.store, f.store, f.service())
	ctx := context.Background()

	_, err := shares.Create(ctx, "t1", "intruder", 0)
	assert.ErrorIs(t, err, ErrNotTripOwner)

	_, err = shares.Create(ctx, "missing", "u1", 0)
	assert.ErrorIs(t, err, core.ErrTripNotFound)

	link, err := shares.Create(ctx, "t1", "u1", 0)
	require.NoError(t, err)
	assert.Len(t, link.Token, 36)
	assert.Nil(t, link.ExpiresAt)

	snap, err := shares.SharedBudget(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, 1557.61, snap.TotalEstimatedCost)

	_, err = shares.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, shares.Revoke(ctx, link.Token, "intruder"), ErrNotTripOwner)
	require.NoError(t, shares.Revoke(ctx, link.Token, "u1"))

	_, err = shares.SharedBudget(ctx, link.Token)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestShareService_Expiry(t *testing.T) {
	f := newFixture(t)
	f.seedRomeTrip()
	shares := NewShareService(f.store, f.store, f.service())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	shares.now = func() time.Time { return now }
	ctx := context.Background()

	link, err := shares.Create(ctx, "t1", "u1", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *link.ExpiresAt)

	_, err = shares.Resolve(ctx, link.Token)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = shares.Resolve(ctx, link.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
