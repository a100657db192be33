package services

import (
	"context"
	"fmt"
	"log/slog"

	"tripbudget/internal/amqp"
	"tripbudget/internal/core"
)

// Invalidation origins reported to the recorder.
const (
	originLocal = "local"
	originBus   = "bus"
)

// ListCurrencies returns the currency reference data.
func (s *BudgetService) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	return s.directory.All(ctx)
}

// SetUserCurrency stores the user's preferred currency and drops the cached one on
// every replica.
func (s *BudgetService) SetUserCurrency(ctx context.Context, userID, code string) (core.Currency, error) {
	c, err := s.directory.ByCode(ctx, code)
	if err != nil {
		return core.Currency{}, fmt.Errorf("resolve currency %q: %w", code, err)
	}

	if err := s.users.SetPreferredCurrencyID(ctx, userID, c.ID); err != nil {
		return core.Currency{}, fmt.Errorf("save preferred currency: %w", err)
	}

	s.directory.ClearUser(userID)
	s.recorder.CacheInvalidated(originLocal)
	s.publish(ctx, amqp.NewCacheInvalidationMessage(userID, amqp.ReasonPreferenceChanged))

	slog.InfoContext(ctx, "User currency updated", "user_id", userID, "currency_code", c.Code)
	return c, nil
}

// InvalidateCurrencyCache drops one user's cached currency, or every user's when
// userID is empty, here and on every other replica.
func (s *BudgetService) InvalidateCurrencyCache(ctx context.Context, userID string) {
	s.clearCache(userID)
	s.recorder.CacheInvalidated(originLocal)
	s.publish(ctx, amqp.NewCacheInvalidationMessage(userID, amqp.ReasonManual))
}

// HandleInvalidation applies an invalidation received from another replica.
func (s *BudgetService) HandleInvalidation(msg *amqp.CacheInvalidationMessage) error {
	if msg == nil {
		return fmt.Errorf("nil invalidation message")
	}
	s.clearCache(msg.UserID)
	s.recorder.CacheInvalidated(originBus)
	slog.Debug("Applied remote cache invalidation", "user_id", msg.UserID, "reason", msg.Reason)
	return nil
}

// RefreshCurrencies validates and stores new reference rates, then drops every
// cached user currency since the cached values carry the old rates.
func (s *BudgetService) RefreshCurrencies(ctx context.Context, currencies []core.Currency) error {
	for _, c := range currencies {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("currency %q: %w", c.Code, err)
		}
	}

	if err := s.writer.UpsertCurrencies(ctx, currencies); err != nil {
		return fmt.Errorf("upsert currencies: %w", err)
	}

	s.clearCache("")
	s.recorder.CacheInvalidated(originLocal)
	s.publish(ctx, amqp.NewCacheInvalidationMessage("", amqp.ReasonRatesUpdated))

	slog.InfoContext(ctx, "Currency rates refreshed", "currencies", len(currencies))
	return nil
}

func (s *BudgetService) clearCache(userID string) {
	if userID == "" {
		s.directory.ClearAll()
		return
	}
	s.directory.ClearUser(userID)
}

func (s *BudgetService) publish(ctx context.Context, msg *amqp.CacheInvalidationMessage) {
	if s.publisher == nil {
		return
	}
	// Other replicas keep stale entries until their TTL; the local change stands.
	if err := s.publisher.PublishCacheInvalidation(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish cache invalidation",
			"user_id", msg.UserID, "reason", msg.Reason, "error", err)
	}
}
