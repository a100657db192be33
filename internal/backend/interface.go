// Package backend opens the data store selected by DATA_BACKEND.
package backend

import (
	"context"

	"tripbudget/internal/store"
)

// ReadyFunc reports whether a backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// Result contains the opened store and its readiness probe.
type Result struct {
	Store store.Store
	Ready ReadyFunc
}

// Config holds configuration for backend creation
type Config struct {
	Type         Type
	SQLiteDBPath string
}

// Type represents the type of backend
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
