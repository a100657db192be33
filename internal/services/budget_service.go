package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tripbudget/internal/amqp"
	"tripbudget/internal/core"
	"tripbudget/internal/currency"
	"tripbudget/internal/metrics"
	"tripbudget/internal/store"
)

// Recorder receives operational measurements. *metrics.Metrics implements it.
type Recorder interface {
	FetchFailed(source string)
	ObserveFetch(source string, d time.Duration)
	RecordsUnconverted(n int)
	BudgetComputed(outcome string, d time.Duration)
	CacheInvalidated(origin string)
}

// InvalidationPublisher fans cache invalidations out to other replicas.
// *amqp.Client implements it.
type InvalidationPublisher interface {
	PublishCacheInvalidation(ctx context.Context, msg *amqp.CacheInvalidationMessage) error
}

// BudgetServiceConfig holds configuration for the budget service
type BudgetServiceConfig struct {
	// DefaultCurrencyCode is used when the user has no usable preference (default: USD)
	DefaultCurrencyCode string

	// FetchTimeout bounds each cost source and store call (default: 5s)
	FetchTimeout time.Duration
}

// DefaultBudgetServiceConfig returns sensible defaults
func DefaultBudgetServiceConfig() BudgetServiceConfig {
	return BudgetServiceConfig{
		DefaultCurrencyCode: "USD",
		FetchTimeout:        5 * time.Second,
	}
}

// BudgetService computes trip budget snapshots and manages the currency settings
// they depend on.
type BudgetService struct {
	trips     store.TripStore
	users     store.UserStore
	writer    store.CurrencyWriter
	directory *currency.Directory
	fetchers  []Fetcher
	publisher InvalidationPublisher
	recorder  Recorder
	config    BudgetServiceConfig
}

// Option configures a BudgetService.
type Option func(*BudgetService)

// WithPublisher broadcasts cache invalidations through p.
func WithPublisher(p InvalidationPublisher) Option {
	return func(s *BudgetService) { s.publisher = p }
}

// WithRecorder records metrics into r.
func WithRecorder(r Recorder) Option {
	return func(s *BudgetService) { s.recorder = r }
}

// WithFetchers replaces the default cost source fetchers.
func WithFetchers(fetchers ...Fetcher) Option {
	return func(s *BudgetService) { s.fetchers = fetchers }
}

func NewBudgetService(st store.Store, directory *currency.Directory, config BudgetServiceConfig, opts ...Option) *BudgetService {
	defaults := DefaultBudgetServiceConfig()
	if config.DefaultCurrencyCode == "" {
		config.DefaultCurrencyCode = defaults.DefaultCurrencyCode
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}

	s := &BudgetService{
		trips:     st,
		users:     st,
		writer:    st,
		directory: directory,
		fetchers:  DefaultFetchers(st),
		recorder:  nopRecorder{},
		config:    config,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeBudget aggregates every cost of a trip into a snapshot expressed in the
// user's preferred currency. Only a missing trip or an unresolvable target
// currency fail the call; every other problem degrades the snapshot.
func (s *BudgetService) ComputeBudget(ctx context.Context, tripID, userID string) (core.BudgetSnapshot, error) {
	start := time.Now()

	header, err := s.trips.GetTripHeader(ctx, tripID)
	if err != nil {
		s.recorder.BudgetComputed(metrics.OutcomeTripNotFound, time.Since(start))
		return core.BudgetSnapshot{}, &core.TripNotFoundError{TripID: tripID, Err: err}
	}

	target, err := s.targetCurrency(ctx, userID)
	if err != nil {
		s.recorder.BudgetComputed(metrics.OutcomeCurrencyUnresolved, time.Since(start))
		return core.BudgetSnapshot{}, err
	}

	currencies, err := s.directory.All(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Currency list unavailable, foreign costs stay unconverted",
			"trip_id", tripID, "error", err)
		currencies = nil
	}
	index := currency.NewIndex(currencies)
	if _, ok := index[target.ID]; !ok {
		index[target.ID] = &target
	}

	var (
		g               errgroup.Group
		results         = make([][]core.CostRecord, len(s.fetchers))
		stops           []core.TripStop
		categoryBudgets map[core.Category]float64
	)
	for i, f := range s.fetchers {
		g.Go(func() error {
			results[i] = s.collect(ctx, f, tripID)
			return nil
		})
	}
	g.Go(func() error {
		stops = s.loadStops(ctx, tripID)
		return nil
	})
	g.Go(func() error {
		categoryBudgets = s.loadCategoryBudgets(ctx, tripID)
		return nil
	})
	_ = g.Wait()

	tripCurrency := findByCode(currencies, header.CurrencyCode)
	if tripCurrency == nil && header.CurrencyCode != "" && strings.EqualFold(header.CurrencyCode, target.Code) {
		tripCurrency = &target
	}
	if tripCurrency == nil && (header.Budget != nil || len(categoryBudgets) > 0) {
		slog.WarnContext(ctx, "Trip currency unresolved, budget shown as stored",
			"trip_id", tripID, "currency_code", header.CurrencyCode)
	}

	snapshot := core.NewBudgetSnapshot(tripID, target)
	snapshot.StoredBudget = header.Budget
	snapshot.StoredCurrencyCode = header.CurrencyCode
	if header.Budget != nil {
		b := currency.Convert(*header.Budget, tripCurrency, &target)
		snapshot.Budget = &b
	}

	for c, amount := range categoryBudgets {
		cb, ok := snapshot.Categories[c]
		if !ok {
			continue
		}
		cb.Budgeted = currency.Convert(amount, tripCurrency, &target)
		snapshot.Categories[c] = cb
	}

	unconverted := 0
	perStop := make(map[string]float64)
	for _, records := range results {
		for _, r := range records {
			origin := index.Lookup(r.CurrencyID)
			amount, ok := currency.TryConvert(r.Amount, origin, &target)
			if !ok {
				unconverted++
			}
			snapshot.Costs.Add(core.ConvertedCostRecord{
				CostRecord:       r,
				ConvertedAmount:  amount,
				OriginalCurrency: origin,
				Unconverted:      !ok,
			})

			cb := snapshot.Categories[r.Category]
			cb.Estimated += amount
			snapshot.Categories[r.Category] = cb

			if r.Source == core.SourceAdHoc && r.StopID != "" {
				perStop[r.StopID] += amount
			}
		}
	}
	if unconverted > 0 {
		slog.WarnContext(ctx, "Some costs could not be converted",
			"trip_id", tripID, "unconverted", unconverted, "currency_code", target.Code)
		s.recorder.RecordsUnconverted(unconverted)
	}

	total := 0.0
	for _, c := range core.Categories {
		cb := snapshot.Categories[c]
		cb.Estimated = core.Round2(cb.Estimated)
		snapshot.Categories[c] = cb
		total += cb.Estimated
	}
	snapshot.TotalEstimatedCost = core.Round2(total)
	if snapshot.TotalEstimatedCost == 0 && header.StoredEstimatedCost != nil && *header.StoredEstimatedCost > 0 {
		snapshot.TotalEstimatedCost = currency.Convert(*header.StoredEstimatedCost, tripCurrency, &target)
		snapshot.EstimatedFromStored = true
	}

	snapshot.Days = dailyBreakdown(stops, snapshot.Budget, perStop)
	snapshot.Alerts = budgetAlerts(snapshot)

	s.recorder.BudgetComputed(metrics.OutcomeOK, time.Since(start))
	slog.DebugContext(ctx, "Budget computed",
		"trip_id", tripID,
		"user_id", userID,
		"currency_code", target.Code,
		"total_estimated_cost", snapshot.TotalEstimatedCost,
		"alerts", len(snapshot.Alerts))

	return snapshot, nil
}

// ListTripBudgetSummaries classifies every trip of a user from its stored fields,
// without converting anything.
func (s *BudgetService) ListTripBudgetSummaries(ctx context.Context, userID string) ([]core.TripBudgetSummary, error) {
	trips, err := s.trips.ListTrips(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}

	summaries := make([]core.TripBudgetSummary, 0, len(trips))
	for _, t := range trips {
		summaries = append(summaries, core.SummarizeTrip(t))
	}
	return summaries, nil
}

// TargetCurrency resolves the currency a user's budgets are shown in.
func (s *BudgetService) TargetCurrency(ctx context.Context, userID string) (core.Currency, error) {
	return s.targetCurrency(ctx, userID)
}

func (s *BudgetService) targetCurrency(ctx context.Context, userID string) (core.Currency, error) {
	c, err := s.directory.UserCurrency(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, core.ErrCurrencyNotFound) {
		slog.WarnContext(ctx, "User currency lookup failed, using default",
			"user_id", userID, "error", err)
	}

	c, err = s.directory.ByCode(ctx, s.config.DefaultCurrencyCode)
	if err != nil {
		return core.Currency{}, &core.CurrencyResolutionError{
			UserID:       userID,
			FallbackCode: s.config.DefaultCurrencyCode,
			Err:          err,
		}
	}
	return c, nil
}

func (s *BudgetService) loadStops(ctx context.Context, tripID string) []core.TripStop {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	stops, err := s.trips.ListStops(ctx, tripID)
	if err != nil {
		slog.WarnContext(ctx, "Trip stops unavailable, no daily breakdown",
			"trip_id", tripID, "error", err)
		return nil
	}
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].StartDate.Before(stops[j].StartDate.Time)
	})
	return stops
}

func (s *BudgetService) loadCategoryBudgets(ctx context.Context, tripID string) map[core.Category]float64 {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	budgets, err := s.trips.ListCategoryBudgets(ctx, tripID)
	if err != nil {
		slog.WarnContext(ctx, "Category budgets unavailable, categories untracked",
			"trip_id", tripID, "error", err)
		return nil
	}
	return budgets
}

// dailyBreakdown splits the budget evenly over the stops and attributes ad-hoc
// costs to the stop they were entered on.
func dailyBreakdown(stops []core.TripStop, budget *float64, perStop map[string]float64) []core.DayBreakdown {
	days := make([]core.DayBreakdown, 0, len(stops))
	if len(stops) == 0 {
		return days
	}

	share := 0.0
	if budget != nil {
		share = core.Round2(*budget / float64(len(stops)))
	}
	for i, stop := range stops {
		days = append(days, core.DayBreakdown{
			DayIndex:  i + 1,
			Date:      stop.StartDate,
			City:      stop.City,
			Budgeted:  share,
			Estimated: core.Round2(perStop[stop.ID]),
		})
	}
	return days
}

// budgetAlerts lists the trip-level overage followed by category overages in
// display order. A category budgeted at zero is untracked and never alerts.
func budgetAlerts(snapshot core.BudgetSnapshot) []string {
	alerts := []string{}

	if snapshot.Budget != nil && snapshot.TotalEstimatedCost > *snapshot.Budget {
		if *snapshot.Budget > 0 {
			alerts = append(alerts, fmt.Sprintf("Trip is over budget by %s",
				core.FormatPercent(core.OverPercent(snapshot.TotalEstimatedCost, *snapshot.Budget))))
		} else {
			alerts = append(alerts, "Trip is over budget")
		}
	}

	for _, c := range core.Categories {
		cb := snapshot.Categories[c]
		if cb.Budgeted > 0 && cb.Estimated > cb.Budgeted {
			alerts = append(alerts, fmt.Sprintf("%s is %s over budget",
				c, core.FormatPercent(core.OverPercent(cb.Estimated, cb.Budgeted))))
		}
	}
	return alerts
}

func findByCode(currencies []core.Currency, code string) *core.Currency {
	for i := range currencies {
		if strings.EqualFold(currencies[i].Code, code) {
			c := currencies[i]
			return &c
		}
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) FetchFailed(string) {}
func (nopRecorder) ObserveFetch(string, time.Duration) {}
func (nopRecorder) RecordsUnconverted(int) {}
func (nopRecorder) BudgetComputed(string, time.Duration) {}
func (nopRecorder) CacheInvalidated(string) {}
