package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbudget/internal/cache"
	"tripbudget/internal/core"
	"tripbudget/internal/store/memory"
)

var (
	usd = core.Currency{ID: "c-usd", Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRateToUSD: 1}
	eur = core.Currency{ID: "c-eur", Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRateToUSD: 0.92}
	gbp = core.Currency{ID: "c-gbp", Code: "GBP", Name: "Pound", Symbol: "£", ExchangeRateToUSD: 0.79}
	jpy = core.Currency{ID: "c-jpy", Code: "JPY", Name: "Yen", Symbol: "¥", ExchangeRateToUSD: 150}
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		from, to *core.Currency
		want     float64
	}{
		{"same currency is identity", 123.456, &eur, &eur, 123.456},
		{"eur to usd", 750, &eur, &usd, 815.22},
		{"small eur to usd", 85, &eur, &usd, 92.39},
		{"usd to eur", 100, &usd, &eur, 92},
		{"usd to jpy", 10, &usd, &jpy, 1500},
		{"eur to gbp", 100, &eur, &gbp, 85.87},
		{"unresolved origin", 42, nil, &usd, 42},
		{"unresolved target", 42, &usd, nil, 42},
		{"zero amount", 0, &eur, &usd, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Convert(tt.amount, tt.from, tt.to))
		})
	}
}

func TestTryConvert(t *testing.T) {
	_, ok := TryConvert(10, nil, &usd)
	assert.False(t, ok)

	bad := core.Currency{ID: "bad", Code: "BAD", ExchangeRateToUSD: 0}
	v, ok := TryConvert(10, &bad, &usd)
	assert.False(t, ok)
	assert.Equal(t, 10.0, v)

	v, ok = TryConvert(10, &usd, &usd)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
}

func TestConvertRoundTrip(t *testing.T) {
	pairs := [][2]*core.Currency{{&usd, &eur}, {&eur, &gbp}, {&gbp, &usd}}
	for _, p := range pairs {
		for _, amount := range []float64{0.5, 1, 19.99, 250, 1234.56} {
			back := Convert(Convert(amount, p[0], p[1]), p[1], p[0])
			assert.InDelta(t, amount, back, 0.015, "%s→%s→%s %v", p[0].Code, p[1].Code, p[0].Code, amount)
		}
	}
}

func TestIndexLookup(t *testing.T) {
	idx := NewIndex([]core.Currency{usd, eur})
	require.NotNil(t, idx.Lookup("c-eur"))
	assert.Equal(t, "EUR", idx.Lookup("c-eur").Code)
	assert.Nil(t, idx.Lookup(""))
	assert.Nil(t, idx.Lookup("c-xxx"))
}

type countingObserver struct{ hits, misses int }

func (o *countingObserver) CacheHit()  { o.hits++ }
func (o *countingObserver) CacheMiss() { o.misses++ }

func newDirectory(t *testing.T) (*Directory, *memory.Store, *countingObserver) {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.UpsertCurrencies(context.Background(), []core.Currency{usd, eur, gbp}))
	obs := &countingObserver{}
	c, err := cache.New[core.Currency](cache.PolicyLRU, 10, 0)
	require.NoError(t, err)
	return NewDirectory(st, st, c, WithObserver(obs)), st, obs
}

func TestDirectoryLookups(t *testing.T) {
	d, _, _ := newDirectory(t)
	ctx := context.Background()

	c, err := d.ByCode(ctx, " eur ")
	require.NoError(t, err)
	assert.Equal(t, "c-eur", c.ID)

	c, err = d.ByID(ctx, "c-gbp")
	require.NoError(t, err)
	assert.Equal(t, "GBP", c.Code)

	_, err = d.ByCode(ctx, "CHF")
	assert.True(t, errors.Is(err, core.ErrCurrencyNotFound))
	_, err = d.ByID(ctx, "")
	assert.True(t, errors.Is(err, core.ErrCurrencyNotFound))

	all, err := d.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDirectoryUserCurrencyCaches(t *testing.T) {
	d, st, obs := newDirectory(t)
	ctx := context.Background()
	require.NoError(t, st.SetPreferredCurrencyID(ctx, "u1", "c-eur"))

	c, err := d.UserCurrency(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", c.Code)
	assert.Equal(t, 1, obs.misses)

	// the store changes but the cached value wins until cleared
	require.NoError(t, st.SetPreferredCurrencyID(ctx, "u1", "c-gbp"))
	c, err = d.UserCurrency(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", c.Code)
	assert.Equal(t, 1, obs.hits)

	d.ClearUser("u1")
	c, err = d.UserCurrency(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "GBP", c.Code)
	assert.Equal(t, 2, obs.misses)

	d.ClearAll()
	assert.Equal(t, 0, d.CachedUsers())
}

func TestDirectoryUserCurrencyMissing(t *testing.T) {
	d, st, _ := newDirectory(t)
	ctx := context.Background()

	_, err := d.UserCurrency(ctx, "nobody")
	assert.True(t, errors.Is(err, core.ErrCurrencyNotFound))

	require.NoError(t, st.SetPreferredCurrencyID(ctx, "u2", "c-gone"))
	_, err = d.UserCurrency(ctx, "u2")
	assert.True(t, errors.Is(err, core.ErrCurrencyNotFound))
	assert.Equal(t, 0, d.CachedUsers())
}
