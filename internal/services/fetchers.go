package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tripbudget/internal/core"
	"tripbudget/internal/store"
)

const unknownLabel = "Unknown"

// Fetcher loads the cost records of one source for a trip.
type Fetcher interface {
	Kind() core.SourceKind
	Fetch(ctx context.Context, tripID string) ([]core.CostRecord, error)
}

// AccommodationFetcher reads booked accommodations.
type AccommodationFetcher struct {
	costs store.CostSourceStore
}

func NewAccommodationFetcher(costs store.CostSourceStore) *AccommodationFetcher {
	return &AccommodationFetcher{costs: costs}
}

func (f *AccommodationFetcher) Kind() core.SourceKind { return core.SourceAccommodation }

func (f *AccommodationFetcher) Fetch(ctx context.Context, tripID string) ([]core.CostRecord, error) {
	rows, err := f.costs.ListAccommodations(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}

	records := make([]core.CostRecord, 0, len(rows))
	for _, row := range rows {
		amount := 0.0
		switch {
		case row.TotalCost != nil:
			amount = *row.TotalCost
		case row.PricePerNight != nil:
			amount = *row.PricePerNight * float64(row.Nights)
		}

		label := firstNonEmpty(row.Name, row.ProviderName)
		if city := deref(row.CityName); city != "" {
			label += ", " + city
		}

		records = append(records, core.CostRecord{
			Source:     core.SourceAccommodation,
			EntityID:   row.ID,
			Label:      label,
			Amount:     amount,
			CurrencyID: deref(row.CurrencyID),
			StopID:     deref(row.StopID),
			Date:       row.CheckIn,
			Category:   core.SourceAccommodation.Category(),
		})
	}
	return records, nil
}

// TransportFetcher reads transport legs between stops.
type TransportFetcher struct {
	costs store.CostSourceStore
}

func NewTransportFetcher(costs store.CostSourceStore) *TransportFetcher {
	return &TransportFetcher{costs: costs}
}

func (f *TransportFetcher) Kind() core.SourceKind { return core.SourceTransport }

func (f *TransportFetcher) Fetch(ctx context.Context, tripID string) ([]core.CostRecord, error) {
	rows, err := f.costs.ListTransportLegs(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list transport legs: %w", err)
	}

	records := make([]core.CostRecord, 0, len(rows))
	for _, row := range rows {
		label := firstNonEmpty(row.FromCity) + " → " + firstNonEmpty(row.ToCity)
		if mode := deref(row.Mode); mode != "" {
			label += " (" + mode + ")"
		}

		amount := 0.0
		if row.Cost != nil {
			amount = *row.Cost
		}

		records = append(records, core.CostRecord{
			Source:     core.SourceTransport,
			EntityID:   row.ID,
			Label:      label,
			Amount:     amount,
			CurrencyID: deref(row.CurrencyID),
			Date:       row.DepartureDate,
			Category:   core.SourceTransport.Category(),
		})
	}
	return records, nil
}

// ActivityFetcher reads activities scheduled on the trip's stops.
type ActivityFetcher struct {
	trips store.TripStore
	costs store.CostSourceStore
}

func NewActivityFetcher(trips store.TripStore, costs store.CostSourceStore) *ActivityFetcher {
	return &ActivityFetcher{trips: trips, costs: costs}
}

func (f *ActivityFetcher) Kind() core.SourceKind { return core.SourceActivity }

func (f *ActivityFetcher) Fetch(ctx context.Context, tripID string) ([]core.CostRecord, error) {
	stops, err := f.trips.ListStops(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}
	if len(stops) == 0 {
		return []core.CostRecord{}, nil
	}

	stopIDs := make([]string, len(stops))
	for i, s := range stops {
		stopIDs[i] = s.ID
	}

	rows, err := f.costs.ListScheduledActivities(ctx, stopIDs)
	if err != nil {
		return nil, fmt.Errorf("list scheduled activities: %w", err)
	}

	records := make([]core.CostRecord, 0, len(rows))
	for _, row := range rows {
		amount := 0.0
		switch {
		case row.CostOverride != nil:
			amount = *row.CostOverride
		case row.ActivityPrice != nil:
			amount = *row.ActivityPrice
		}

		records = append(records, core.CostRecord{
			Source:     core.SourceActivity,
			EntityID:   row.ID,
			Label:      firstNonEmpty(row.ActivityName),
			Amount:     amount,
			CurrencyID: deref(row.CurrencyID),
			StopID:     row.StopID,
			Date:       row.ScheduledDate,
			Category:   core.SourceActivity.Category(),
		})
	}
	return records, nil
}

// CostItemFetcher reads ad-hoc cost items entered by the user.
type CostItemFetcher struct {
	costs store.CostSourceStore
}

func NewCostItemFetcher(costs store.CostSourceStore) *CostItemFetcher {
	return &CostItemFetcher{costs: costs}
}

func (f *CostItemFetcher) Kind() core.SourceKind { return core.SourceAdHoc }

func (f *CostItemFetcher) Fetch(ctx context.Context, tripID string) ([]core.CostRecord, error) {
	rows, err := f.costs.ListCostItems(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list cost items: %w", err)
	}

	records := make([]core.CostRecord, 0, len(rows))
	for _, row := range rows {
		category := core.MapCategory(row.Category)
		label := deref(row.Description)
		if label == "" {
			label = category.String()
		}

		records = append(records, core.CostRecord{
			Source:     core.SourceAdHoc,
			EntityID:   row.ID,
			Label:      label,
			Amount:     row.Amount,
			CurrencyID: deref(row.CurrencyID),
			StopID:     deref(row.StopID),
			Date:       row.Date,
			Category:   category,
		})
	}
	return records, nil
}

// DefaultFetchers returns the four cost source fetchers backed by st.
func DefaultFetchers(st interface {
	store.TripStore
	store.CostSourceStore
}) []Fetcher {
	return []Fetcher{
		NewAccommodationFetcher(st),
		NewTransportFetcher(st),
		NewActivityFetcher(st, st),
		NewCostItemFetcher(st),
	}
}

type fetchResult struct {
	records []core.CostRecord
	err     error
}

// collect runs one fetcher under the fetch timeout. Any failure, including the
// timeout, is logged and counted, and the source contributes no records.
func (s *BudgetService) collect(ctx context.Context, f Fetcher, tripID string) []core.CostRecord {
	source := string(f.Kind())
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		records, err := f.Fetch(ctx, tripID)
		done <- fetchResult{records: records, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("fetch %s: %w", source, ctx.Err())
	}
	s.recorder.ObserveFetch(source, time.Since(start))

	if res.err != nil {
		slog.WarnContext(ctx, "Cost source fetch failed, continuing without it",
			"trip_id", tripID,
			"source", source,
			"error", res.err)
		s.recorder.FetchFailed(source)
		return []core.CostRecord{}
	}
	if res.records == nil {
		return []core.CostRecord{}
	}
	return res.records
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if s := deref(v); s != "" {
			return s
		}
	}
	return unknownLabel
}
