package secretstore

import (
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore/cache"
)

// DefaultOriginator tags errors raised by a Store unless WithOriginator overrides it.
const DefaultOriginator = "SecretStore"

// storeOptions holds configuration options for a Store.
type storeOptions struct {
	cache      cache.Cache
	logger     *slog.Logger
	originator string
	now        func() time.Time
}

// Option is a functional option for configuring a Store.
type Option func(*storeOptions)

// WithCache places c in front of the repository.
// If c is nil, the store passes every call straight to the repository.
func WithCache(c cache.Cache) Option {
	return func(opts *storeOptions) {
		opts.cache = c
	}
}

// WithLogger configures the store with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *storeOptions) {
		opts.logger = logger
	}
}

// WithOriginator sets the tag recorded on every StoreError raised by the store.
func WithOriginator(originator string) Option {
	return func(opts *storeOptions) {
		if originator != "" {
			opts.originator = originator
		}
	}
}

// withClock replaces the time source used to stamp errors. Used by tests.
func withClock(now func() time.Time) Option {
	return func(opts *storeOptions) {
		opts.now = now
	}
}

// defaultOptions returns the default configuration options.
func defaultOptions() *storeOptions {
	return &storeOptions{
		cache:      nil, // Cache-less unless configured
		logger:     nil, // No default logger
		originator: DefaultOriginator,
		now:        time.Now,
	}
}

// applyOptions applies the given options to the store options.
func applyOptions(opts *storeOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
}
