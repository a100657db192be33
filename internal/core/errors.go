package core

import (
	"errors"
	"fmt"
)

var (
	ErrTripNotFound       = errors.New("trip not found")
	ErrCurrencyResolution = errors.New("currency resolution failed")
)

// TripNotFoundError reports that a trip header could not be loaded.
type TripNotFoundError struct {
	TripID string
	Err    error
}

func (e *TripNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("trip %s: %v", e.TripID, ErrTripNotFound)
	}
	return fmt.Sprintf("trip %s: %v: %v", e.TripID, ErrTripNotFound, e.Err)
}

func (e *TripNotFoundError) Unwrap() error { return e.Err }

func (e *TripNotFoundError) Is(target error) bool { return target == ErrTripNotFound }

// CurrencyResolutionError reports that neither the user's preferred currency nor
// the default currency could be resolved.
type CurrencyResolutionError struct {
	UserID       string
	FallbackCode string
	Err          error
}

func (e *CurrencyResolutionError) Error() string {
	return fmt.Sprintf("user %s: %v (fallback %s): %v", e.UserID, ErrCurrencyResolution, e.FallbackCode, e.Err)
}

func (e *CurrencyResolutionError) Unwrap() error { return e.Err }

func (e *CurrencyResolutionError) Is(target error) bool { return target == ErrCurrencyResolution }
