// Package cache implements the TTL caches used by repository discovery (30s)
// and staged-content detection (5s). Caches are explicit objects with an
// injectable clock so expiry behavior is deterministic under test.
package cache

import (
	"sync"
	"time"
)

// Entry is a single cached result with its expiry metadata.
type Entry[T any] struct {
	Result    T
	Timestamp time.Time
	TTL       time.Duration
	Key       string
}

// Cache is a mutex-guarded TTL cache. Entries are populated only on success;
// a miss or an expired entry means the caller re-detects, never a stale read.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]Entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithClock overrides the cache's time source.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		c.now = now
	}
}

// New creates a cache whose entries expire after ttl.
func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		entries: make(map[string]Entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for key if present and unexpired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().Sub(entry.Timestamp) >= entry.TTL {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return entry.Result, true
}

// Put stores a result for key and lazily sweeps expired entries.
func (c *Cache[T]) Put(key string, result T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.Timestamp) >= e.TTL {
			delete(c.entries, k)
		}
	}

	c.entries[key] = Entry[T]{
		Result:    result,
		Timestamp: now,
		TTL:       c.ttl,
		Key:       key,
	}
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry[T])
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
