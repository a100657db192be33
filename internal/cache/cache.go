package cache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Eviction policies accepted by New.
const (
	PolicyNone = "none"
	PolicyTTL  = "ttl"
	PolicyLRU  = "lru"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear removes every key
	Clear()

	// Size returns the current number of items in the cache
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// New builds a cache for the given eviction policy:
//   - "none": entries live until deleted or cleared
//   - "ttl":  entries expire ttl after being set, no size bound
//   - "lru":  at most maxSize entries, least recently used evicted first; ttl applies if > 0
func New[T any](policy string, maxSize int, ttl time.Duration) (*LRUCache[T], error) {
	switch policy {
	case PolicyNone, "":
		return NewLRUCache[T](0, 0), nil
	case PolicyTTL:
		if ttl <= 0 {
			return nil, fmt.Errorf("ttl policy requires a positive ttl, got %v", ttl)
		}
		return NewLRUCache[T](0, ttl), nil
	case PolicyLRU:
		if maxSize <= 0 {
			return nil, fmt.Errorf("lru policy requires a positive size, got %d", maxSize)
		}
		return NewLRUCache[T](maxSize, ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache policy %q", policy)
	}
}

// Manager runs periodic expiry of registered caches on a cron schedule.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	cron    *cron.Cron
	running bool
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches: make([]Cleaner, 0),
		cron:   cron.New(),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// CleanAll runs CleanExpired on every registered cache and returns the number of
// removed entries.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// StartCleanup schedules CleanAll using a standard cron expression
// (e.g. "*/10 * * * *").
func (m *Manager) StartCleanup(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	if _, err := m.cron.AddFunc(schedule, func() {
		if removed := m.CleanAll(); removed > 0 {
			slog.Debug("Cache cleanup completed", "entries_removed", removed)
		}
	}); err != nil {
		return fmt.Errorf("schedule cache cleanup: %w", err)
	}

	m.cron.Start()
	m.running = true
	return nil
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	// A running job takes m.mu in CleanAll, so wait without holding it.
	<-m.cron.Stop().Done()
}
