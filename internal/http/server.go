// Package http exposes the budget engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tripbudget/internal/log"
	"tripbudget/internal/metrics"
	"tripbudget/internal/services"
)

// UserHeader carries the caller identity. Authentication happens upstream.
const UserHeader = "X-User-ID"

// Config holds the server's ambient dependencies.
type Config struct {
	Addr              string
	AllowedOrigins    []string
	RequestsPerMinute int
	Logger            *log.Logger
	Metrics           *metrics.Metrics
	// Ready reports whether the backing store is reachable. Nil means always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	router      *chi.Mux
	budget      *services.BudgetService
	shares      *services.ShareService
	logger      *log.Logger
	metrics     *metrics.Metrics
	rateLimiter *rateLimiter
	ready       func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures middleware and routes, returning a ready-to-run server.
func NewServer(cfg Config, budget *services.BudgetService, shares *services.ShareService) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		router:      chi.NewRouter(),
		budget:      budget,
		shares:      shares,
		logger:      logger,
		metrics:     m,
		rateLimiter: newRateLimiter(cfg.RequestsPerMinute),
		ready:       cfg.Ready,
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(log.Middleware(s.logger))
	s.router.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))

	if len(allowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", UserHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.router.Use(s.withSecurity)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/currencies", s.handleListCurrencies)
		r.Get("/shared/{token}/budget", s.handleSharedBudget)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/trips/budgets", s.handleListBudgets)
			r.Get("/trips/{tripID}/budget", s.handleTripBudget)
			r.Post("/trips/{tripID}/shared-links", s.handleCreateSharedLink)
			r.Delete("/shared-links/{token}", s.handleRevokeSharedLink)

			r.Put("/users/me/currency", s.handleSetUserCurrency)
			r.Delete("/currency-cache", s.handleInvalidateCache)
			r.Delete("/currency-cache/{userID}", s.handleInvalidateCache)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// withSecurity adds security headers, rate limits mutating requests per client IP,
// and records access logs and metrics.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)

		applySecurityHeaders(w, r)

		if detectSuspiciousRequest(r) {
			s.metrics.SecurityEvent("suspicious")
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			s.metrics.SecurityEvent("rate_limited")
			ww.Header().Set("Retry-After", "60")
			writeError(ww, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
		} else {
			next.ServeHTTP(ww, r)
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, routePattern(r), status, duration)
		log.NewStructuredLogger(log.FromContext(ctx)).LogHTTPEnd(ctx, r, status, duration.Milliseconds(), clientIP)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// routePattern returns the matched chi pattern so metrics are not labelled by ids.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
