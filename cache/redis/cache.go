// Package redis provides a networked implementation of cache.Cache backed by Redis.
//
// The cache accepts any redis.UniversalClient, so a single node, a sentinel failover group
// or a cluster can back the secret store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore/cache"
)

var _ cache.Cache = (*Cache)(nil)

// Options describes how to reach a Redis deployment.
type Options struct {
	// Addrs lists host:port pairs. One address selects a single-node client,
	// several select a cluster client unless MasterName is set.
	Addrs []string

	// MasterName selects a sentinel-backed failover client.
	MasterName string

	Username string
	Password string
	DB       int
}

// NewClient builds a redis.UniversalClient from opts.
//
//nolint:ireturn // go-redis exposes topology-independent clients through UniversalClient
func NewClient(opts Options) (redis.UniversalClient, error) {
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      opts.Addrs,
		MasterName: opts.MasterName,
		Username:   opts.Username,
		Password:   opts.Password,
		DB:         opts.DB,
	}), nil
}

// Cache stores byte values in Redis.
//
// Thread Safety: the go-redis client is safe for concurrent use and the remaining
// fields are immutable after construction.
type Cache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithKeyPrefix namespaces every key written by this cache.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		c.keyPrefix = prefix
	}
}

// WithTTL sets the expiry applied to every write. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger configures structured logging. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New wraps client as a cache.Cache.
func New(client redis.UniversalClient, opts ...Option) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	c := &Cache{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cache) key(key string) string {
	return c.keyPrefix + key
}

// Get returns the bytes stored under key. redis.Nil is reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "redis get failed",
				"cache_key", key,
				"error", err)
		}
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores data under key, overwriting any previous value.
func (c *Cache) Set(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "redis set failed",
				"cache_key", key,
				"error", err)
		}
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}
	return nil
}

// Ping verifies connectivity to Redis.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
