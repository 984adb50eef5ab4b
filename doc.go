// Package secretstore provides cache-aside access to named secrets.
//
// A Store sits in front of a durable Repository and, optionally, a byte-oriented
// cache.Cache. Reads check the cache first and fall back to the repository, populating
// the cache with whatever the repository returns. Writes go to the repository first and
// then overwrite the cache with the canonical secret the repository reports.
//
// # Basic Usage
//
//	repo := memory.New()
//	store, err := secretstore.New(repo,
//		secretstore.WithCache(memcache.New()),
//		secretstore.WithLogger(slog.Default()),
//	)
//	if err != nil {
//		return err
//	}
//
//	if _, err := store.SetByName(ctx, "db-password", "s3cr3t"); err != nil {
//		return err
//	}
//	secret, err := store.GetByName(ctx, "db-password") // served from the cache
//
// Omitting WithCache yields a pass-through store with the same contract.
//
// # Consistency
//
// Cache keys are secret names, unprefixed. The store sets no TTL and never invalidates
// entries: expiry is the cache implementation's policy. A repository that rejects a write
// leaves any existing cache entry in place. Concurrent misses on the same name are not
// coalesced.
//
// # Error Handling
//
//	secret, err := store.GetByName(ctx, name)
//	switch {
//	case errors.Is(err, secretstore.ErrArgumentInvalid):
//		// empty name, nothing was called
//	case errors.Is(err, secretstore.ErrStoreOperationFailed):
//		// cache or repository failure; errors.Unwrap gives the cause
//	case secret == nil:
//		// not found
//	}
//
// Secret values are never logged; Secret implements fmt.Stringer and slog.LogValuer
// with the value redacted.
package secretstore
