package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tripbudget/internal/core"
	"tripbudget/internal/store"
)

// ErrNotTripOwner is returned when a user manages links of a trip they do not own.
var ErrNotTripOwner = errors.New("trip belongs to another user")

// ShareService issues read-only links to a trip's budget.
type ShareService struct {
	trips  store.TripStore
	links  store.SharedLinkStore
	budget *BudgetService
	now    func() time.Time
}

func NewShareService(trips store.TripStore, links store.SharedLinkStore, budget *BudgetService) *ShareService {
	return &ShareService{
		trips:  trips,
		links:  links,
		budget: budget,
		now:    time.Now,
	}
}

// Create issues a link for a trip owned by userID. A non-positive ttl never expires.
func (s *ShareService) Create(ctx context.Context, tripID, userID string, ttl time.Duration) (core.SharedLink, error) {
	header, err := s.trips.GetTripHeader(ctx, tripID)
	if err != nil {
		return core.SharedLink{}, &core.TripNotFoundError{TripID: tripID, Err: err}
	}
	if header.UserID != userID {
		return core.SharedLink{}, ErrNotTripOwner
	}

	now := s.now().UTC()
	link := core.SharedLink{
		Token:     uuid.NewString(),
		TripID:    tripID,
		CreatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		link.ExpiresAt = &expires
	}

	if err := s.links.CreateSharedLink(ctx, link); err != nil {
		return core.SharedLink{}, fmt.Errorf("create shared link: %w", err)
	}

	slog.InfoContext(ctx, "Shared link created", "trip_id", tripID, "user_id", userID)
	return link, nil
}

// Resolve returns the link for token. Unknown, malformed and expired tokens all
// report store.ErrNotFound.
func (s *ShareService) Resolve(ctx context.Context, token string) (core.SharedLink, error) {
	if _, err := uuid.Parse(token); err != nil {
		return core.SharedLink{}, store.ErrNotFound
	}
	link, err := s.links.GetSharedLink(ctx, token)
	if err != nil {
		return core.SharedLink{}, err
	}
	if store.Expired(link, s.now()) {
		return core.SharedLink{}, store.ErrNotFound
	}
	return link, nil
}

// Revoke deletes a link of a trip owned by userID.
func (s *ShareService) Revoke(ctx context.Context, token, userID string) error {
	link, err := s.links.GetSharedLink(ctx, token)
	if err != nil {
		return err
	}
	header, err := s.trips.GetTripHeader(ctx, link.TripID)
	if err != nil {
		return &core.TripNotFoundError{TripID: link.TripID, Err: err}
	}
	if header.UserID != userID {
		return ErrNotTripOwner
	}
	return s.links.DeleteSharedLink(ctx, token)
}

// SharedBudget computes the linked trip's budget as its owner sees it.
func (s *ShareService) SharedBudget(ctx context.Context, token string) (core.BudgetSnapshot, error) {
	link, err := s.Resolve(ctx, token)
	if err != nil {
		return core.BudgetSnapshot{}, err
	}
	header, err := s.trips.GetTripHeader(ctx, link.TripID)
	if err != nil {
		return core.BudgetSnapshot{}, &core.TripNotFoundError{TripID: link.TripID, Err: err}
	}
	return s.budget.ComputeBudget(ctx, link.TripID, header.UserID)
}
