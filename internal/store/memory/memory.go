package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"tripbudget/internal/core"
	"tripbudget/internal/store"
)

type trip struct {
	header  core.TripHeader
	deleted bool
}

// Store is an in-memory implementation of store.Store. It is safe for concurrent use.
type Store struct {
	mu              sync.Mutex
	trips           map[string]*trip
	tripOrder       []string
	stops           map[string][]core.TripStop
	categoryBudgets map[string]map[core.Category]float64
	currencies      map[string]core.Currency
	preferences     map[string]string
	accommodations  map[string][]store.AccommodationRow
	transport       map[string][]store.TransportLegRow
	activities      map[string][]store.ScheduledActivityRow // keyed by stop id
	costItems       map[string][]store.CostItemRow
	links           map[string]core.SharedLink
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		trips:           make(map[string]*trip),
		stops:           make(map[string][]core.TripStop),
		categoryBudgets: make(map[string]map[core.Category]float64),
		currencies:      make(map[string]core.Currency),
		preferences:     make(map[string]string),
		accommodations:  make(map[string][]store.AccommodationRow),
		transport:       make(map[string][]store.TransportLegRow),
		activities:      make(map[string][]store.ScheduledActivityRow),
		costItems:       make(map[string][]store.CostItemRow),
		links:           make(map[string]core.SharedLink),
	}
}

// AddTrip stores a trip header.
func (s *Store) AddTrip(h core.TripHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[h.ID]; !ok {
		s.tripOrder = append(s.tripOrder, h.ID)
	}
	s.trips[h.ID] = &trip{header: h}
}

// SoftDeleteTrip hides a trip from every read.
func (s *Store) SoftDeleteTrip(tripID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trips[tripID]; ok {
		t.deleted = true
	}
}

func (s *Store) AddStop(stop core.TripStop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops[stop.TripID] = append(s.stops[stop.TripID], stop)
}

func (s *Store) SetCategoryBudget(tripID string, c core.Category, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryBudgets[tripID] == nil {
		s.categoryBudgets[tripID] = make(map[core.Category]float64)
	}
	s.categoryBudgets[tripID][c] = amount
}

func (s *Store) AddAccommodation(tripID string, row store.AccommodationRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accommodations[tripID] = append(s.accommodations[tripID], row)
}

func (s *Store) AddTransportLeg(tripID string, row store.TransportLegRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport[tripID] = append(s.transport[tripID], row)
}

func (s *Store) AddScheduledActivity(row store.ScheduledActivityRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[row.StopID] = append(s.activities[row.StopID], row)
}

func (s *Store) AddCostItem(tripID string, row store.CostItemRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costItems[tripID] = append(s.costItems[tripID], row)
}

func (s *Store) GetTripHeader(_ context.Context, tripID string) (core.TripHeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok || t.deleted {
		return core.TripHeader{}, store.ErrNotFound
	}
	return t.header, nil
}

func (s *Store) ListStops(_ context.Context, tripID string) ([]core.TripStop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stops := append([]core.TripStop(nil), s.stops[tripID]...)
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].StartDate.Before(stops[j].StartDate.Time)
	})
	return stops, nil
}

func (s *Store) ListTrips(_ context.Context, userID string) ([]core.TripHeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.TripHeader
	for _, id := range s.tripOrder {
		t := s.trips[id]
		if t.deleted || t.header.UserID != userID {
			continue
		}
		out = append(out, t.header)
	}
	return out, nil
}

func (s *Store) ListCategoryBudgets(_ context.Context, tripID string) (map[core.Category]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[core.Category]float64, len(s.categoryBudgets[tripID]))
	for c, v := range s.categoryBudgets[tripID] {
		out[c] = v
	}
	return out, nil
}

func (s *Store) ListCurrencies(_ context.Context) ([]core.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Currency, 0, len(s.currencies))
	for _, c := range s.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) GetCurrencyByID(_ context.Context, id string) (core.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.currencies[id]
	if !ok {
		return core.Currency{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetCurrencyByCode(_ context.Context, code string) (core.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.currencies {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return core.Currency{}, store.ErrNotFound
}

func (s *Store) UpsertCurrencies(_ context.Context, currencies []core.Currency) error {
	for _, c := range currencies {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("currency %q: %w", c.Code, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range currencies {
		s.currencies[c.ID] = c
	}
	return nil
}

func (s *Store) GetPreferredCurrencyID(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences[userID], nil
}

func (s *Store) SetPreferredCurrencyID(_ context.Context, userID, currencyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[userID] = currencyID
	return nil
}

func (s *Store) ListAccommodations(_ context.Context, tripID string) ([]store.AccommodationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.AccommodationRow(nil), s.accommodations[tripID]...), nil
}

func (s *Store) ListTransportLegs(_ context.Context, tripID string) ([]store.TransportLegRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.TransportLegRow(nil), s.transport[tripID]...), nil
}

func (s *Store) ListScheduledActivities(_ context.Context, stopIDs []string) ([]store.ScheduledActivityRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ScheduledActivityRow
	for _, id := range stopIDs {
		out = append(out, s.activities[id]...)
	}
	return out, nil
}

func (s *Store) ListCostItems(_ context.Context, tripID string) ([]store.CostItemRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.CostItemRow(nil), s.costItems[tripID]...), nil
}

func (s *Store) CreateSharedLink(_ context.Context, link core.SharedLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[link.Token]; exists {
		return fmt.Errorf("shared link %s already exists", link.Token)
	}
	s.links[link.Token] = link
	return nil
}

func (s *Store) GetSharedLink(_ context.Context, token string) (core.SharedLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	if !ok {
		return core.SharedLink{}, store.ErrNotFound
	}
	return link, nil
}

func (s *Store) DeleteSharedLink(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[token]; !ok {
		return store.ErrNotFound
	}
	delete(s.links, token)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
