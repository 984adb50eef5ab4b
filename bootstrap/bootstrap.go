// Package bootstrap assembles a secret store from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore"
	"github.com/input-output-hk/catalyst-forge-libs/secretstore/cache"
	memcache "github.com/input-output-hk/catalyst-forge-libs/secretstore/cache/memory"
	rediscache "github.com/input-output-hk/catalyst-forge-libs/secretstore/cache/redis"
	"github.com/input-output-hk/catalyst-forge-libs/secretstore/config"
	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
	"github.com/input-output-hk/catalyst-forge-libs/secretstore/repository/awssm"
	"github.com/input-output-hk/catalyst-forge-libs/secretstore/repository/memory"
	"github.com/input-output-hk/catalyst-forge-libs/secretstore/repository/sqlrepo"
)

// closers releases resources in reverse order of acquisition.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewStore builds the repository and cache selected by cfg and returns a store over
// them. The returned closer releases database and redis connections; it is never nil
// when err is nil. A cache backend of "none" yields a cache-less store.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*secretstore.Store, io.Closer, error) {
	if cfg == nil {
		return nil, nil, storeerrors.NewValidationError("cfg", "cannot be nil")
	}

	var opened closers

	repo, err := newRepository(ctx, cfg.Repository, logger, &opened)
	if err != nil {
		_ = opened.Close()
		return nil, nil, err
	}

	c, err := newCache(ctx, cfg.Cache, logger, &opened)
	if err != nil {
		_ = opened.Close()
		return nil, nil, err
	}

	opts := []secretstore.Option{
		secretstore.WithLogger(logger),
		secretstore.WithOriginator(cfg.Originator),
	}
	if c != nil {
		opts = append(opts, secretstore.WithCache(c))
	}

	store, err := secretstore.New(repo, opts...)
	if err != nil {
		_ = opened.Close()
		return nil, nil, err
	}

	if logger != nil {
		logger.InfoContext(ctx, "secret store ready",
			"repository", cfg.Repository.Backend,
			"cache", cfg.Cache.Backend)
	}

	return store, opened, nil
}

//nolint:ireturn // the backend is chosen at runtime
func newRepository(
	ctx context.Context,
	cfg config.RepositoryConfig,
	logger *slog.Logger,
	opened *closers,
) (secretstore.Repository, error) {
	switch cfg.Backend {
	case config.RepositoryMemory:
		return memory.New(), nil

	case config.RepositorySQLite:
		var opts []sqlrepo.Option
		if cfg.SQLite.ReadOnly {
			opts = append(opts, sqlrepo.WithReadOnly())
		}
		repo, err := sqlrepo.Open(ctx, cfg.SQLite.DSN, opts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		*opened = append(*opened, repo)
		return repo, nil

	case config.RepositoryAWS:
		opts := []awssm.Option{
			awssm.WithRetryer(awssm.NewRetryer(cfg.AWS.MaxAttempts)),
			awssm.WithLogger(logger),
		}
		if cfg.AWS.Region != "" {
			opts = append(opts, awssm.WithRegion(cfg.AWS.Region))
		}
		if cfg.AWS.Endpoint != "" {
			opts = append(opts, awssm.WithEndpoint(cfg.AWS.Endpoint))
		}
		if cfg.AWS.KMSKeyID != "" {
			opts = append(opts, awssm.WithKMSKeyID(cfg.AWS.KMSKeyID))
		}
		if cfg.AWS.Anonymous {
			opts = append(opts, awssm.WithAnonymousCredentials())
		}
		repo, err := awssm.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create secrets manager repository: %w", err)
		}
		return repo, nil

	default:
		return nil, storeerrors.New(storeerrors.CodeInvalidConfig,
			fmt.Sprintf("unknown repository backend %q", cfg.Backend))
	}
}

//nolint:ireturn // the backend is chosen at runtime
func newCache(
	ctx context.Context,
	cfg config.CacheConfig,
	logger *slog.Logger,
	opened *closers,
) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return nil, nil

	case config.CacheMemory:
		return memcache.New(
			memcache.WithTTL(cfg.Memory.TTL),
			memcache.WithMaxSize(cfg.Memory.MaxSize),
		), nil

	case config.CacheRedis:
		client, err := rediscache.NewClient(rediscache.Options{
			Addrs:      cfg.Redis.Addrs,
			MasterName: cfg.Redis.MasterName,
			Username:   cfg.Redis.Username,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis client: %w", err)
		}
		c, err := rediscache.New(client,
			rediscache.WithKeyPrefix(cfg.Redis.KeyPrefix),
			rediscache.WithTTL(cfg.Redis.TTL),
			rediscache.WithLogger(logger),
		)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		*opened = append(*opened, c)
		if err := c.Ping(ctx); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, storeerrors.New(storeerrors.CodeInvalidConfig,
			fmt.Sprintf("unknown cache backend %q", cfg.Backend))
	}
}
