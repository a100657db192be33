package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"tripbudget/internal/amqp"
	"tripbudget/internal/cache"
	apphttp "tripbudget/internal/http"
	"tripbudget/internal/log"
	"tripbudget/internal/ratesfile"
	"tripbudget/internal/services"
)

const (
	shutdownTimeout   = 30 * time.Second
	ratesFileDebounce = 500 * time.Millisecond
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	logger, cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger = logger.WithComponent(log.ComponentApp)

	var serviceOpts []services.Option
	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer bus.Close()
		serviceOpts = append(serviceOpts, services.WithPublisher(bus))
		logger.Info("AMQP cache invalidation enabled", "exchange", cfg.AMQPExchange, "instance_id", bus.InstanceID())
	} else {
		logger.Info("AMQP disabled - cache invalidations stay local")
	}

	a, err := newApp(logger, cfg, serviceOpts...)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.CurrencyRatesFile != "" {
		currencies, err := ratesfile.Load(cfg.CurrencyRatesFile)
		if err != nil {
			return err
		}
		if err := a.budget.RefreshCurrencies(parent, currencies); err != nil {
			return fmt.Errorf("import %s: %w", cfg.CurrencyRatesFile, err)
		}
		logger.Info("Currency rates loaded", log.FieldRatesFile, cfg.CurrencyRatesFile, "currencies", len(currencies))
	}

	manager := cache.NewManager()
	manager.Register(a.currencyCache)
	if err := manager.StartCleanup(cfg.CacheCleanupSchedule); err != nil {
		return err
	}
	defer manager.Stop()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
		Metrics:        a.metrics,
		Ready:          a.ready,
	}, a.budget, a.shares)

	ctx, done := GracefulShutdown(parent, logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	if bus != nil {
		go func() {
			err := bus.ConsumeCacheInvalidations(ctx, a.budget.HandleInvalidation)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Cache invalidation consumer stopped", log.FieldError, err)
			}
		}()
	}

	if cfg.CurrencyRatesFile != "" && cfg.WatchRatesFile {
		watcher := ratesfile.NewWatcher(cfg.CurrencyRatesFile, ratesFileDebounce, a.budget.RefreshCurrencies)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("Rates file watcher stopped", log.FieldRatesFile, cfg.CurrencyRatesFile, log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting tripbudget server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error on port %s: %w", cfg.Port, err)
	}

	<-done
	logger.Info("Server stopped gracefully")
	return nil
}
