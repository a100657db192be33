// Package store declares the outbound ports the budget engine reads from. Any
// relational store or API gateway satisfying these interfaces can back the service.
package store

import (
	"context"
	"errors"
	"time"

	"tripbudget/internal/core"
)

// ErrNotFound is returned when a requested row does not exist (or is soft-deleted).
var ErrNotFound = errors.New("not found")

// Raw rows as returned by the cost source queries. Joined or nested fields are
// pointers because the store may not have them.
type (
	AccommodationRow struct {
		ID            string
		StopID        *string
		Name          *string
		ProviderName  *string
		CityName      *string
		TotalCost     *float64
		PricePerNight *float64
		Nights        int
		CurrencyID    *string
		CheckIn       *core.Date
	}

	TransportLegRow struct {
		ID            string
		FromCity      *string
		ToCity        *string
		Mode          *string
		Cost          *float64
		CurrencyID    *string
		DepartureDate *core.Date
	}

	ScheduledActivityRow struct {
		ID            string
		StopID        string
		ActivityName  *string
		ActivityPrice *float64
		CostOverride  *float64
		CurrencyID    *string
		ScheduledDate *core.Date
	}

	CostItemRow struct {
		ID          string
		StopID      *string
		Category    string
		Description *string
		Amount      float64
		CurrencyID  *string
		Date        *core.Date
	}
)

// Ports for outbound adapters.
type (
	TripStore interface {
		// GetTripHeader returns ErrNotFound when the trip is absent or soft-deleted.
		GetTripHeader(ctx context.Context, tripID string) (core.TripHeader, error)
		// ListStops returns the trip's stops ordered by start date.
		ListStops(ctx context.Context, tripID string) ([]core.TripStop, error)
		ListTrips(ctx context.Context, userID string) ([]core.TripHeader, error)
		// ListCategoryBudgets returns planned amounts per category in the trip's currency.
		ListCategoryBudgets(ctx context.Context, tripID string) (map[core.Category]float64, error)
	}

	CurrencyStore interface {
		ListCurrencies(ctx context.Context) ([]core.Currency, error)
		GetCurrencyByID(ctx context.Context, id string) (core.Currency, error)
		GetCurrencyByCode(ctx context.Context, code string) (core.Currency, error)
	}

	CurrencyWriter interface {
		UpsertCurrencies(ctx context.Context, currencies []core.Currency) error
	}

	UserStore interface {
		// GetPreferredCurrencyID returns "" when the user has no preference.
		GetPreferredCurrencyID(ctx context.Context, userID string) (string, error)
		SetPreferredCurrencyID(ctx context.Context, userID, currencyID string) error
	}

	CostSourceStore interface {
		ListAccommodations(ctx context.Context, tripID string) ([]AccommodationRow, error)
		ListTransportLegs(ctx context.Context, tripID string) ([]TransportLegRow, error)
		ListScheduledActivities(ctx context.Context, stopIDs []string) ([]ScheduledActivityRow, error)
		ListCostItems(ctx context.Context, tripID string) ([]CostItemRow, error)
	}

	SharedLinkStore interface {
		CreateSharedLink(ctx context.Context, link core.SharedLink) error
		GetSharedLink(ctx context.Context, token string) (core.SharedLink, error)
		DeleteSharedLink(ctx context.Context, token string) error
	}

	// Store bundles every port; both backends implement it.
	Store interface {
		TripStore
		CurrencyStore
		CurrencyWriter
		UserStore
		CostSourceStore
		SharedLinkStore
		Close() error
	}
)

// Expired reports whether a shared link is past its expiry at now.
func Expired(link core.SharedLink, now time.Time) bool {
	return link.ExpiresAt != nil && !now.Before(*link.ExpiresAt)
}
