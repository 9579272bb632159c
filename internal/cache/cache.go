// Package cache holds one normalized API description with a TTL and
// coalesces concurrent refreshes into a single upstream fetch.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mark3labs/openapi-mcp/internal/spec"
)

// State describes the cache slot.
type State string

const (
	StateEmpty State = "empty"
	StateFresh State = "fresh"
	StateStale State = "stale"
)

// RefreshFunc produces a fresh description, typically by composing fetch and
// parse against the configured spec URL.
type RefreshFunc func(ctx context.Context) (*spec.API, error)

// Config configures the cache.
type Config struct {
	// TTL is how long a cached description stays fresh. It is also the
	// auto-refresh period.
	TTL time.Duration
}

// DefaultConfig returns recommended defaults.
func DefaultConfig() Config {
	return Config{TTL: 5 * time.Minute}
}

// Entry wraps one description with its creation and expiry timestamps.
type Entry struct {
	API       *spec.API
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Status is a point-in-time snapshot of the slot for callers.
type Status struct {
	State      State
	CreatedAt  time.Time
	ExpiresAt  time.Time
	TTL        time.Duration
	// EverFetched distinguishes a never-filled slot from an expired one.
	EverFetched bool
}

// Cache is the single-slot description cache. The slot is the only mutable
// shared state; it is replaced atomically by Set and read under the lock.
type Cache struct {
	mu          sync.RWMutex
	entry       *Entry
	everFetched bool

	cfg     Config
	refresh RefreshFunc
	group   singleflight.Group
	logger  *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Cache. refresh may not be nil. A nil logger is replaced
// with a no-op one.
func New(cfg Config, refresh RefreshFunc, logger *zap.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		cfg:     cfg,
		refresh: refresh,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Get returns the cached description when the slot is fresh. It never
// triggers a fetch.
func (c *Cache) Get() (*spec.API, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || time.Now().After(c.entry.ExpiresAt) {
		return nil, false
	}
	return c.entry.API, true
}

// Set replaces the slot unconditionally and restarts the TTL clock.
func (c *Cache) Set(api *spec.API) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &Entry{API: api, CreatedAt: now, ExpiresAt: now.Add(c.cfg.TTL)}
	c.everFetched = true
}

// IsExpired reports whether the slot is empty or past its expiry.
func (c *Cache) IsExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry == nil || time.Now().After(c.entry.ExpiresAt)
}

// Clear forces the slot back to empty.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
}

// Refresh invokes the refresh producer, coalescing concurrent callers onto a
// single upstream fetch. Every waiter observes the same outcome, success or
// failure.
func (c *Cache) Refresh(ctx context.Context) (*spec.API, error) {
	v, err, _ := c.group.Do("spec", func() (any, error) {
		api, err := c.refresh(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(api)
		return api, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*spec.API), nil
}

// GetOrRefresh returns the fresh cached description, refreshing first when
// the slot is empty or stale.
func (c *Cache) GetOrRefresh(ctx context.Context) (*spec.API, error) {
	if api, ok := c.Get(); ok {
		return api, nil
	}
	return c.Refresh(ctx)
}

// Status snapshots the slot state.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{State: StateEmpty, TTL: c.cfg.TTL, EverFetched: c.everFetched}
	if c.entry == nil {
		return st
	}
	st.CreatedAt = c.entry.CreatedAt
	st.ExpiresAt = c.entry.ExpiresAt
	if time.Now().After(c.entry.ExpiresAt) {
		st.State = StateStale
	} else {
		st.State = StateFresh
	}
	return st
}

// StartAutoRefresh launches a background loop that refreshes every TTL
// period. A failed refresh is logged and leaves the last good entry intact;
// downstream reads keep serving it until a later refresh succeeds.
func (c *Cache) StartAutoRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.cfg.TTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				if _, err := c.Refresh(ctx); err != nil {
					c.logger.Warn("auto-refresh failed, keeping last good entry", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the auto-refresh loop. Safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
