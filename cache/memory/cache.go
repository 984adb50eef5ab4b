// Package memory provides an in-process implementation of cache.Cache with optional
// TTL and size bounds. It is the default cache when no networked cache is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore/cache"
)

var _ cache.Cache = (*Cache)(nil)

// entry represents a single cached item with its expiration time.
// A zero expiration never expires.
type entry struct {
	data       []byte
	expiration time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// Cache provides a thread-safe in-memory byte cache.
type Cache struct {
	// entries holds the cached values with their expiration times
	entries map[string]*entry

	// maxSize limits the number of entries in the cache (0 = unlimited)
	maxSize int

	// ttl is the time-to-live applied to new entries (0 = never expire)
	ttl time.Duration

	// now returns the current time; replaced in tests
	now func() time.Time

	// mu protects concurrent access to the entries map
	mu sync.RWMutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long entries live. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxSize bounds the number of entries. When the cache is full, the entry that
// expires first is evicted. Zero or negative means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(c *Cache) {
		if maxSize > 0 {
			c.maxSize = maxSize
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the bytes stored under key.
// Expired entries are removed and reported as missing.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("cache get cancelled: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, false, nil
	}

	if e.isExpired(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}

	return append([]byte(nil), e.data...), true, nil
}

// Set stores a copy of data under key.
func (c *Cache) Set(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache set cancelled: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expiration time.Time
	if c.ttl > 0 {
		expiration = now.Add(c.ttl)
	}

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}

	c.entries[key] = &entry{
		data:       append([]byte(nil), data...),
		expiration: expiration,
	}
	return nil
}

// evictLocked drops expired entries, then the entry closest to expiry if still full.
// Entries without expiry are evicted last. Callers must hold mu.
func (c *Cache) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	var victim string
	var victimExpiry time.Time
	for k, e := range c.entries {
		switch {
		case victim == "":
			victim, victimExpiry = k, e.expiration
		case victimExpiry.IsZero() && !e.expiration.IsZero():
			victim, victimExpiry = k, e.expiration
		case !e.expiration.IsZero() && e.expiration.Before(victimExpiry):
			victim, victimExpiry = k, e.expiration
		}
	}

	if victim != "" {
		delete(c.entries, victim)
	}
}

// Delete removes a specific key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache delete cancelled: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Size returns the number of live entries, purging expired ones.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
		} else {
			count++
		}
	}

	return count
}
