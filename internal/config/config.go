package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"tripbudget/internal/cache"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP (cache invalidation bus; empty URL disables it)
	AMQPURL      string
	AMQPExchange string

	// Currency
	DefaultCurrencyCode  string
	CurrencyCachePolicy  string
	CurrencyCacheSize    int
	CurrencyCacheTTL     time.Duration
	CacheCleanupSchedule string
	CurrencyRatesFile    string
	WatchRatesFile       bool

	// Budget
	FetchTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tripbudget.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tripbudget.currency"),

		DefaultCurrencyCode:  strings.ToUpper(getEnv("DEFAULT_CURRENCY_CODE", "USD")),
		CurrencyCachePolicy:  getEnv("CURRENCY_CACHE_POLICY", cache.PolicyLRU),
		CurrencyCacheSize:    getEnvInt("CURRENCY_CACHE_SIZE", 1000),
		CurrencyCacheTTL:     getEnvDuration("CURRENCY_CACHE_TTL", 0),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "*/10 * * * *"),
		CurrencyRatesFile:    getEnv("CURRENCY_RATES_FILE", ""),
		WatchRatesFile:       getEnvBool("WATCH_RATES_FILE", true),

		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 5*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(c.DefaultCurrencyCode) != 3 {
		errors = append(errors, fmt.Sprintf("invalid default currency code '%s': must be a 3-letter ISO code", c.DefaultCurrencyCode))
	}

	switch c.CurrencyCachePolicy {
	case cache.PolicyNone:
	case cache.PolicyTTL:
		if c.CurrencyCacheTTL <= 0 {
			errors = append(errors, "currency cache TTL must be positive when using ttl policy")
		}
	case cache.PolicyLRU:
		if c.CurrencyCacheSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid currency cache size %d: must be at least 1", c.CurrencyCacheSize))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid currency cache policy '%s': must be one of [none ttl lru]", c.CurrencyCachePolicy))
	}
	if c.CurrencyCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid currency cache TTL %v: must not be negative", c.CurrencyCacheTTL))
	}

	if _, err := cron.ParseStandard(c.CacheCleanupSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup schedule '%s': %v", c.CacheCleanupSchedule, err))
	}

	if c.CurrencyRatesFile != "" {
		if _, err := os.Stat(c.CurrencyRatesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("currency rates file does not exist: %s", c.CurrencyRatesFile))
		}
	}

	if c.FetchTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 100ms", c.FetchTimeout))
	} else if c.FetchTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 2 minutes", c.FetchTimeout))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
