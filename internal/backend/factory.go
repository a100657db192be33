package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"tripbudget/internal/config"
	"tripbudget/internal/storage"
	"tripbudget/internal/store/memory"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{Type: t, SQLiteDBPath: appConfig.SQLiteDBPath}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}
	return nil
}

// Open creates the store described by cfg. A nil Ready means the backend is
// always ready.
func Open(logger *slog.Logger, cfg Config) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return &Result{Store: memory.New()}, nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository at %s: %w", cfg.SQLiteDBPath, err)
		}
		logger.Debug("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Ready: repo.Ping}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
