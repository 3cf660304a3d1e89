// Package cache provides the tiered, TTL-based context cache used by the
// duplicate analysis pipeline. Project metadata and prior search results are
// read through this cache so repeated analyses stay fast and within upstream
// rate limits.
//
// Population is single-flight: concurrent callers for the same uncached key
// block on one in-flight populate instead of issuing duplicate upstream
// fetches. An error value is never cached: a failed populate leaves a
// never-populated key absent, and an expired key with its last good payload
// intact so PeekStale can serve degraded reads while the next Get retries.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// PopulationState tracks the lifecycle of a cache entry
type PopulationState string

const (
	StateEmpty      PopulationState = "empty"
	StatePopulating PopulationState = "populating"
	StateReady      PopulationState = "ready"
)

// PopulateFunc fetches the payload for a key on a cache miss
type PopulateFunc func(ctx context.Context) (any, error)

// Config holds cache configuration
type Config struct {
	// MetadataTTL is how long project metadata entries stay fresh
	// Default: 30 minutes
	MetadataTTL time.Duration

	// SearchTTL is how long search-result entries stay fresh. Shorter than
	// metadata: the tracker changes under us.
	// Default: 5 minutes
	SearchTTL time.Duration

	// MaxEntries bounds the number of ready entries held in memory. When
	// exceeded, the least recently used entry is evicted.
	// Default: 1024
	MaxEntries int
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		MetadataTTL: 30 * time.Minute,
		SearchTTL:   5 * time.Minute,
		MaxEntries:  1024,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MetadataTTL <= 0 {
		return fmt.Errorf("metadata_ttl must be positive (got %v)", c.MetadataTTL)
	}
	if c.SearchTTL <= 0 {
		return fmt.Errorf("search_ttl must be positive (got %v)", c.SearchTTL)
	}
	if c.MaxEntries <= 0 {
		return fmt.Errorf("max_entries must be positive (got %d)", c.MaxEntries)
	}
	return nil
}

// Stats holds cache operation counters
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Populates   int64 `json:"populates"`
	Failures    int64 `json:"failures"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// HitRate returns the fraction of lookups served from cache
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// entry is a single cached payload. Owned exclusively by the cache; payloads
// handed to callers must be treated as read-only.
type entry struct {
	key       string
	payload   any
	hasValue  bool // a successful populate happened at some point
	fetchedAt time.Time
	expiresAt time.Time
	state     PopulationState
	lruElem   *list.Element

	// flight coordinates single-flight population. Closed when the
	// in-flight populate finishes (success or failure).
	flight *flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Cache is an explicitly owned, lifecycle-scoped context cache. Create one
// at service start and share it; there is no ambient global instance.
type Cache struct {
	mu      sync.Mutex
	config  Config
	entries map[string]*entry
	lru     *list.List // front = most recently used
	stats   Stats

	// now is overridable for TTL tests
	now func() time.Time
}

// New creates a cache with the given configuration
func New(config Config) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	return &Cache{
		config:  config,
		entries: make(map[string]*entry),
		lru:     list.New(),
		now:     time.Now,
	}, nil
}

// Get returns the cached payload for key, populating it with populate on a
// miss. ttl bounds the freshness of a newly populated entry. Concurrent
// callers for the same key share a single populate invocation; every caller
// of a failed flight receives the populate error and nothing is cached.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, populate PopulateFunc) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]

	// Ready and fresh: serve from cache
	if ok && e.state == StateReady && c.now().Before(e.expiresAt) {
		c.stats.Hits++
		c.lru.MoveToFront(e.lruElem)
		payload := e.payload
		c.mu.Unlock()
		return payload, nil
	}

	// Someone else is populating: wait for their flight
	if ok && e.state == StatePopulating {
		fl := e.flight
		c.mu.Unlock()
		select {
		case <-fl.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if fl.err != nil {
			return nil, fl.err
		}
		return fl.val, nil
	}

	// Miss or lazy TTL expiry: start a new flight. An expired entry keeps
	// its last payload so PeekStale can serve degraded reads if this
	// populate fails.
	c.stats.Misses++
	if ok && e.state == StateReady {
		c.stats.Expirations++
	}
	fl := &flight{done: make(chan struct{})}
	if !ok {
		e = &entry{key: key}
		c.entries[key] = e
	}
	e.state = StatePopulating
	e.flight = fl
	c.mu.Unlock()

	val, err := populate(ctx)

	c.mu.Lock()
	fl.val = val
	fl.err = err
	if err != nil {
		c.stats.Failures++
		e.flight = nil
		if e.hasValue {
			// Keep the stale payload around for degraded reads; the
			// entry stays expired so the next Get retries the populate.
			e.state = StateReady
		} else {
			// Never successfully populated: revert to absent so a hit
			// is never served for this key.
			if c.entries[key] == e {
				delete(c.entries, key)
			}
			e.state = StateEmpty
		}
		c.mu.Unlock()
		close(fl.done)
		return nil, err
	}

	c.stats.Populates++
	fetched := c.now()
	e.payload = val
	e.hasValue = true
	e.fetchedAt = fetched
	e.expiresAt = fetched.Add(ttl)
	e.state = StateReady
	e.flight = nil
	if e.lruElem == nil {
		e.lruElem = c.lru.PushFront(e)
	} else {
		c.lru.MoveToFront(e.lruElem)
	}
	c.evictLocked()
	c.mu.Unlock()
	close(fl.done)
	return val, nil
}

// Peek returns the cached payload without triggering population. Used for
// degraded analyses that must not touch the upstream at all.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.state != StateReady || !e.hasValue {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		return nil, false
	}
	c.lru.MoveToFront(e.lruElem)
	return e.payload, true
}

// PeekStale returns a ready payload even past its TTL. Stale data is better
// than no data when the upstream is down; the caller marks the result
// partial.
func (c *Cache) PeekStale(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.payload, true
}

// Invalidate drops the entry for key if present
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.state == StateReady {
		c.removeLocked(e)
	}
}

// State reports the population state for key (for monitoring and tests)
func (c *Cache) State(key string) PopulationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return StateEmpty
	}
	return e.state
}

// Len returns the number of ready entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// GetStats returns a snapshot of the cache counters
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// removeLocked drops a ready entry. Caller must hold c.mu.
func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)
	if e.lruElem != nil {
		c.lru.Remove(e.lruElem)
		e.lruElem = nil
	}
	e.state = StateEmpty
	e.payload = nil
}

// evictLocked enforces the capacity bound by dropping the least recently
// used ready entries. Caller must hold c.mu.
func (c *Cache) evictLocked() {
	for c.lru.Len() > c.config.MaxEntries {
		back := c.lru.Back()
		if back == nil {
			return
		}
		evicted := back.Value.(*entry)
		log.Printf("[CACHE] Evicting %s (capacity %d reached)", evicted.key, c.config.MaxEntries)
		c.stats.Evictions++
		c.removeLocked(evicted)
	}
}
