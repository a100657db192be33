package cli

import (
	"fmt"

	"tripbudget/internal/backend"
	"tripbudget/internal/cache"
	"tripbudget/internal/config"
	"tripbudget/internal/core"
	"tripbudget/internal/currency"
	"tripbudget/internal/log"
	"tripbudget/internal/metrics"
	"tripbudget/internal/services"
	"tripbudget/internal/store"
)

// app bundles everything a command needs once configuration is loaded.
type app struct {
	cfg           *config.Config
	logger        *log.Logger
	store         store.Store
	ready         backend.ReadyFunc
	metrics       *metrics.Metrics
	currencyCache *cache.LRUCache[core.Currency]
	budget        *services.BudgetService
	shares        *services.ShareService
}

func newApp(logger *log.Logger, cfg *config.Config, opts ...services.Option) (*app, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	opened, err := backend.Open(logger.Logger, backendCfg)
	if err != nil {
		return nil, err
	}
	st := opened.Store

	currencyCache, err := cache.New[core.Currency](cfg.CurrencyCachePolicy, cfg.CurrencyCacheSize, cfg.CurrencyCacheTTL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build currency cache: %w", err)
	}

	m := metrics.New()
	directory := currency.NewDirectory(st, st, currencyCache, currency.WithObserver(m))
	opts = append([]services.Option{services.WithRecorder(m)}, opts...)
	budget := services.NewBudgetService(st, directory, services.BudgetServiceConfig{
		DefaultCurrencyCode: cfg.DefaultCurrencyCode,
		FetchTimeout:        cfg.FetchTimeout,
	}, opts...)

	return &app{
		cfg:           cfg,
		logger:        logger,
		store:         st,
		ready:         opened.Ready,
		metrics:       m,
		currencyCache: currencyCache,
		budget:        budget,
		shares:        services.NewShareService(st, st, budget),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
