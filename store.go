package secretstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore/cache"
	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
)

// Store operation names recorded on StoreError.
const (
	OpGetByName = "GetByName"
	OpSetByName = "SetByName"
)

var _ SecretStore = (*Store)(nil)

// Store serves secrets cache-aside: reads check the cache before the repository and
// backfill it on a miss, writes go to the repository and then overwrite the cache.
// Without a cache the store is a pass-through to the repository.
//
// Thread Safety: a Store holds only immutable references to its collaborators and is
// safe for concurrent use provided they are. Concurrent misses on the same name each
// read the repository and each write the cache; the last write wins.
type Store struct {
	repo       Repository
	cache      cache.Cache
	logger     *slog.Logger
	originator string
	now        func() time.Time
}

// New creates a Store over repo.
//
// Example usage:
//
//	store, err := secretstore.New(repo,
//	    secretstore.WithCache(memory.New()),
//	    secretstore.WithLogger(slog.Default()),
//	)
func New(repo Repository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, storeerrors.NewValidationError("repo", "cannot be nil")
	}

	options := defaultOptions()
	applyOptions(options, opts)

	return &Store{
		repo:       repo,
		cache:      options.cache,
		logger:     options.logger,
		originator: options.originator,
		now:        options.now,
	}, nil
}

// Cached reports whether the store has a cache in front of its repository.
func (s *Store) Cached() bool {
	return s.cache != nil
}

// GetByName returns the secret with the given name.
//
// A cache hit is returned without consulting the repository. On a miss the repository is
// read once and a found secret is written to the cache before it is returned. A secret the
// repository does not have is returned as nil and is not cached.
func (s *Store) GetByName(ctx context.Context, name string) (*Secret, error) {
	if err := validate(ctx, name); err != nil {
		return nil, err
	}

	const failure = "failed to query the value of a secret, by name"

	if s.cache != nil {
		cached, found, err := cache.Get[*Secret](ctx, s.cache, name)
		if err != nil {
			return nil, s.fail(ctx, OpGetByName, name, failure, err)
		}
		if found {
			if cached == nil || cached.Name == "" {
				return nil, s.fail(ctx, OpGetByName, name, failure,
					fmt.Errorf("cache entry: %w", errMalformedSecret))
			}
			s.debug(ctx, "secret served from cache", name, true)
			return cached, nil
		}
		s.debug(ctx, "secret not in cache", name, false)
	}

	secret, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, s.fail(ctx, OpGetByName, name, failure, err)
	}
	if secret == nil {
		return nil, nil
	}
	if secret.Name == "" {
		return nil, s.fail(ctx, OpGetByName, name, failure,
			fmt.Errorf("repository result: %w", errMalformedSecret))
	}

	if s.cache != nil {
		if err := cache.Put(ctx, s.cache, name, secret); err != nil {
			return nil, s.fail(ctx, OpGetByName, name, failure, err)
		}
		s.debug(ctx, "secret cached after repository read", name, false)
	}

	return secret, nil
}

// SetByName writes value to the repository and, when the repository reports a written
// secret, overwrites the cache entry with that canonical secret.
//
// A rejected write (nil from the repository) leaves any existing cache entry untouched.
func (s *Store) SetByName(ctx context.Context, name, value string) (*Secret, error) {
	if err := validate(ctx, name); err != nil {
		return nil, err
	}

	const failure = "failed to set the value of a secret, by name"

	secret, err := s.repo.SetByName(ctx, name, value)
	if err != nil {
		return nil, s.fail(ctx, OpSetByName, name, failure, err)
	}
	if secret == nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "repository did not write secret",
				"secret_name", name)
		}
		return nil, nil
	}
	if secret.Name == "" {
		return nil, s.fail(ctx, OpSetByName, name, failure,
			fmt.Errorf("repository result: %w", errMalformedSecret))
	}

	if s.cache != nil {
		if err := cache.Put(ctx, s.cache, name, secret); err != nil {
			return nil, s.fail(ctx, OpSetByName, name, failure, err)
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "secret stored",
			"secret_name", name,
			"cached", s.cache != nil)
	}

	return secret, nil
}

// validate checks the arguments shared by every operation.
func validate(ctx context.Context, name string) error {
	if ctx == nil {
		return storeerrors.NewValidationError("ctx", "cannot be nil")
	}
	return storeerrors.RequireNotEmpty("name", name)
}

// fail wraps a collaborator error into a StoreError and logs it.
func (s *Store) fail(ctx context.Context, op, name, message string, err error) error {
	storeErr := &StoreError{
		Op:         op,
		Originator: s.originator,
		Time:       s.now(),
		Message:    message,
		Err:        err,
	}

	if s.logger != nil {
		s.logger.ErrorContext(ctx, message,
			"operation", op,
			"secret_name", name,
			"error", err)
	}

	return storeErr
}

func (s *Store) debug(ctx context.Context, msg, name string, hit bool) {
	if s.logger == nil {
		return
	}
	s.logger.DebugContext(ctx, msg,
		"secret_name", name,
		"cache_hit", hit)
}
