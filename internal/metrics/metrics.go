// Package metrics holds the Prometheus collectors of the budget service.
//
// Collectors are registered on a private registry so several instances can coexist
// (tests, CLI one-shots) without duplicate registration panics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tripbudget"

// Budget computation outcomes.
const (
	OutcomeOK                 = "ok"
	OutcomeTripNotFound       = "trip_not_found"
	OutcomeCurrencyUnresolved = "currency_unresolved"
	OutcomeError              = "error"
)

// Metrics groups every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	fetchFailures   *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	unconverted     prometheus.Counter
	budgetsComputed *prometheus.CounterVec
	budgetDuration  prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	invalidations   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	securityEvents  *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "failures_total",
			Help:      "Cost source fetches that failed or timed out and were degraded to empty.",
		}, []string{"source"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "duration_seconds",
			Help:      "Duration of cost source fetches.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		unconverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "unconverted_records_total",
			Help:      "Cost records whose currency could not be resolved.",
		}),
		budgetsComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "computations_total",
			Help:      "Budget snapshot computations by outcome.",
		}, []string{"outcome"}),
		budgetDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "computation_duration_seconds",
			Help:      "Duration of budget snapshot computations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "currency_cache",
			Name:      "hits_total",
			Help:      "User currency cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "currency_cache",
			Name:      "misses_total",
			Help:      "User currency cache misses.",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "currency_cache",
			Name:      "invalidations_total",
			Help:      "User currency cache invalidations by origin (local or bus).",
		}, []string{"origin"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "security_events_total",
			Help:      "Rate limited and suspicious requests by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.fetchFailures,
		m.fetchDuration,
		m.unconverted,
		m.budgetsComputed,
		m.budgetDuration,
		m.cacheHits,
		m.cacheMisses,
		m.invalidations,
		m.httpRequests,
		m.httpDuration,
		m.securityEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

func (m *Metrics) FetchFailed(source string) {
	m.fetchFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	m.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) RecordsUnconverted(n int) {
	if n > 0 {
		m.unconverted.Add(float64(n))
	}
}

func (m *Metrics) BudgetComputed(outcome string, d time.Duration) {
	m.budgetsComputed.WithLabelValues(outcome).Inc()
	m.budgetDuration.Observe(d.Seconds())
}

// CacheHit and CacheMiss satisfy currency.CacheObserver.
func (m *Metrics) CacheHit()  { m.cacheHits.Inc() }
func (m *Metrics) CacheMiss() { m.cacheMisses.Inc() }

func (m *Metrics) CacheInvalidated(origin string) {
	m.invalidations.WithLabelValues(origin).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SecurityEvent counts a rate limited or suspicious request.
func (m *Metrics) SecurityEvent(kind string) {
	m.securityEvents.WithLabelValues(kind).Inc()
}
