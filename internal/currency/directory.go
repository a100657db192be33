package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tripbudget/internal/cache"
	"tripbudget/internal/core"
	"tripbudget/internal/store"
)

// CacheObserver is notified of user currency cache lookups.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// Directory answers currency lookups and memoises each user's preferred currency.
type Directory struct {
	currencies store.CurrencyStore
	users      store.UserStore
	cache      cache.Cache[core.Currency]
	observer   CacheObserver
}

// Option configures a Directory.
type Option func(*Directory)

// WithObserver reports cache hits and misses to o.
func WithObserver(o CacheObserver) Option {
	return func(d *Directory) { d.observer = o }
}

func NewDirectory(currencies store.CurrencyStore, users store.UserStore, c cache.Cache[core.Currency], opts ...Option) *Directory {
	if c == nil {
		c = cache.NewLRUCache[core.Currency](0, 0)
	}
	d := &Directory{
		currencies: currencies,
		users:      users,
		cache:      c,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Directory) All(ctx context.Context) ([]core.Currency, error) {
	list, err := d.currencies.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return list, nil
}

func (d *Directory) ByID(ctx context.Context, id string) (core.Currency, error) {
	if strings.TrimSpace(id) == "" {
		return core.Currency{}, core.ErrCurrencyNotFound
	}
	c, err := d.currencies.GetCurrencyByID(ctx, id)
	if err != nil {
		return core.Currency{}, notFound(err, id)
	}
	return c, nil
}

func (d *Directory) ByCode(ctx context.Context, code string) (core.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return core.Currency{}, core.ErrCurrencyNotFound
	}
	c, err := d.currencies.GetCurrencyByCode(ctx, code)
	if err != nil {
		return core.Currency{}, notFound(err, code)
	}
	return c, nil
}

// UserCurrency returns the user's preferred currency. A miss reads the preference
// from the store and caches the resolved currency; an absent or dangling
// preference yields core.ErrCurrencyNotFound and caches nothing.
func (d *Directory) UserCurrency(ctx context.Context, userID string) (core.Currency, error) {
	if c, ok := d.cache.Get(userID); ok {
		if d.observer != nil {
			d.observer.CacheHit()
		}
		return c, nil
	}
	if d.observer != nil {
		d.observer.CacheMiss()
	}

	id, err := d.users.GetPreferredCurrencyID(ctx, userID)
	if err != nil {
		return core.Currency{}, fmt.Errorf("preferred currency of %s: %w", userID, err)
	}
	if id == "" {
		return core.Currency{}, core.ErrCurrencyNotFound
	}
	c, err := d.ByID(ctx, id)
	if err != nil {
		return core.Currency{}, err
	}
	d.cache.Set(userID, c)
	return c, nil
}

// ClearUser drops the cached currency of one user.
func (d *Directory) ClearUser(userID string) {
	d.cache.Delete(userID)
}

// ClearAll drops every cached user currency.
func (d *Directory) ClearAll() {
	d.cache.Clear()
}

// CachedUsers returns the number of cached user currencies.
func (d *Directory) CachedUsers() int {
	return d.cache.Size()
}

func notFound(err error, key string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("currency %s: %w", key, core.ErrCurrencyNotFound)
	}
	return fmt.Errorf("currency %s: %w", key, err)
}
