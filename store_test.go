package secretstore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
)

// spyRepository implements Repository over a map and records calls.
type spyRepository struct {
	mu       sync.Mutex
	secrets  map[string]string
	getCalls int
	setCalls int

	getFunc func(ctx context.Context, name string) (*Secret, error)
	setFunc func(ctx context.Context, name, value string) (*Secret, error)
}

func newSpyRepository(seed map[string]string) *spyRepository {
	secrets := make(map[string]string)
	for k, v := range seed {
		secrets[k] = v
	}
	return &spyRepository{secrets: secrets}
}

func (r *spyRepository) GetByName(ctx context.Context, name string) (*Secret, error) {
	r.mu.Lock()
	r.getCalls++
	r.mu.Unlock()

	if r.getFunc != nil {
		return r.getFunc(ctx, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.secrets[name]
	if !ok {
		return nil, nil
	}
	return &Secret{Name: name, Value: value}, nil
}

func (r *spyRepository) SetByName(ctx context.Context, name, value string) (*Secret, error) {
	r.mu.Lock()
	r.setCalls++
	r.mu.Unlock()

	if r.setFunc != nil {
		return r.setFunc(ctx, name, value)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets[name] = value
	return &Secret{Name: name, Value: value}, nil
}

func (r *spyRepository) calls() (gets, sets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls, r.setCalls
}

// spyCache implements cache.Cache over a map and records calls.
type spyCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	getCalls int
	setCalls int
	getErr   error
	setErr   error
}

func newSpyCache() *spyCache {
	return &spyCache{entries: make(map[string][]byte)}
}

func (c *spyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, ok := c.entries[key]
	return data, ok, nil
}

func (c *spyCache) Set(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.entries[key] = append([]byte(nil), data...)
	return nil
}

func (c *spyCache) entry(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok
}

func (c *spyCache) calls() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getCalls, c.setCalls
}

func newCachedStore(t *testing.T, repo Repository, c *spyCache, opts ...Option) *Store {
	t.Helper()
	store, err := New(repo, append([]Option{WithCache(c)}, opts...)...)
	require.NoError(t, err)
	return store
}

func TestNew(t *testing.T) {
	t.Run("nil repository", func(t *testing.T) {
		_, err := New(nil)
		assert.True(t, IsArgumentInvalid(err))
	})

	t.Run("cache-less by default", func(t *testing.T) {
		store, err := New(newSpyRepository(nil))
		require.NoError(t, err)
		assert.False(t, store.Cached())
		assert.Equal(t, DefaultOriginator, store.originator)
	})

	t.Run("with cache", func(t *testing.T) {
		store, err := New(newSpyRepository(nil), WithCache(newSpyCache()), WithOriginator("billing"))
		require.NoError(t, err)
		assert.True(t, store.Cached())
		assert.Equal(t, "billing", store.originator)
	})

	t.Run("nil cache option disables caching", func(t *testing.T) {
		store, err := New(newSpyRepository(nil), WithCache(nil))
		require.NoError(t, err)
		assert.False(t, store.Cached())
	})
}

func TestStore_GetByName_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := newSpyRepository(map[string]string{"db-password": "s3cr3t"})
	c := newSpyCache()
	store := newCachedStore(t, repo, c)

	secret, err := store.GetByName(ctx, "db-password")
	require.NoError(t, err)
	assert.Equal(t, &Secret{Name: "db-password", Value: "s3cr3t"}, secret)

	data, ok := c.entry("db-password")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"db-password","value":"s3cr3t"}`, string(data))

	again, err := store.GetByName(ctx, "db-password")
	require.NoError(t, err)
	assert.Equal(t, secret, again)

	gets, _ := repo.calls()
	assert.Equal(t, 1, gets, "second read must be served from the cache")
}

func TestStore_GetByName_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newSpyRepository(nil)
	c := newSpyCache()
	store := newCachedStore(t, repo, c)

	for _, name := range []string{"missing", "also-missing", "x"} {
		secret, err := store.GetByName(ctx, name)
		require.NoError(t, err)
		assert.Nil(t, secret)
	}

	_, sets := c.calls()
	assert.Equal(t, 0, sets, "absent secrets must not be cached")

	_, _ = store.GetByName(ctx, "missing")
	gets, _ := repo.calls()
	assert.Equal(t, 4, gets, "no negative caching")
}

func TestStore_GetByName_CacheHitSkipsRepository(t *testing.T) {
	ctx := context.Background()
	repo := newSpyRepository(map[string]string{"k": "from-repo"})
	c := newSpyCache()
	c.entries["k"] = []byte(`{"name":"k","value":"from-cache"}`)
	store := newCachedStore(t, repo, c)

	secret, err := store.GetByName(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-cache", secret.Value)

	gets, sets := repo.calls()
	assert.Zero(t, gets)
	assert.Zero(t, sets)
}

func TestStore_SetByName_ThenGetServedFromCache(t *testing.T) {
	ctx := context.Background()
	repo := newSpyRepository(nil)
	c := newSpyCache()
	store := newCachedStore(t, repo, c)

	written, err := store.SetByName(ctx, "api-key", "abc123")
	require.NoError(t, err)
	assert.Equal(t, &Secret{Name: "api-key", Value: "abc123"}, written)

	got, err := store.GetByName(ctx, "api-key")
	require.NoError(t, err)
	assert.Equal(t, written, got)

	gets, sets := repo.calls()
	assert.Zero(t, gets, "read after write must come from the cache")
	assert.Equal(t, 1, sets)
}

func TestStore_SetByName_CachesCanonicalValue(t *testing.T) {
	ctx := context.Background()
	repo := newSpyRepository(nil)
	repo.setFunc = func(ctx context.Context, name, value string) (*Secret, error) {
		return &Secret{Name: name, Value: strings.TrimSpace(value)}, nil
	}
	c := newSpyCache()
	store := newCachedStore(t, repo, c)

	written, err := store.SetByName(ctx, "token", "  padded  ")
	require.NoError(t, err)
	assert.Equal(t, "padded", written.Value)

	got, err := store.GetByName(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "padded", got.Value)
}

func TestStore_SetByName_EmptyValue(t *testing.T) {
	ctx := context.Background()
	store := newCachedStore(t, newSpyRepository(nil), newSpyCache())

	written, err := store.SetByName(ctx, "blank", "")
	require.NoError(t, err)
	assert.Equal(t, &Secret{Name: "blank", Value: ""}, written)

	got, err := store.GetByName(ctx, "blank")
	require.NoError(t, err)
	assert.Equal(t, written, got)
}

func TestStore_SetByName_RejectedWriteLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	repo := newSpyRepository(map[string]string{"k": "old"})
	c := newSpyCache()
	store := newCachedStore(t, repo, c)

	_, err := store.GetByName(ctx, "k")
	require.NoError(t, err)
	_, setsBefore := c.calls()

	repo.setFunc = func(ctx context.Context, name, value string) (*Secret, error) {
		return nil, nil
	}

	written, err := store.SetByName(ctx, "k", "new")
	require.NoError(t, err)
	assert.Nil(t, written)

	_, setsAfter := c.calls()
	assert.Equal(t, setsBefore, setsAfter)

	got, err := store.GetByName(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "old", got.Value, "stale entry is preserved on a rejected write")
}

func TestStore_InvalidArguments(t *testing.T) {
	repo := newSpyRepository(map[string]string{"k": "v"})
	c := newSpyCache()
	store := newCachedStore(t, repo, c)
	var nilCtx context.Context

	tests := []struct {
		name string
		call func() (*Secret, error)
	}{
		{name: "get empty name", call: func() (*Secret, error) { return store.GetByName(context.Background(), "") }},
		{name: "set empty name", call: func() (*Secret, error) { return store.SetByName(context.Background(), "", "v") }},
		{name: "get nil context", call: func() (*Secret, error) { return store.GetByName(nilCtx, "k") }},
		{name: "set nil context", call: func() (*Secret, error) { return store.SetByName(nilCtx, "k", "v") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := tt.call()
			assert.Nil(t, secret)
			assert.True(t, errors.Is(err, ErrArgumentInvalid))
			assert.False(t, IsStoreOperationFailed(err))
			assert.Equal(t, storeerrors.CodeInvalidInput, storeerrors.CodeOf(err))
		})
	}

	repoGets, repoSets := repo.calls()
	cacheGets, cacheSets := c.calls()
	assert.Zero(t, repoGets+repoSets+cacheGets+cacheSets, "no collaborator may be called")
}

func TestStore_RepositoryFailureOnGet(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	repo := newSpyRepository(nil)
	repo.getFunc = func(ctx context.Context, name string) (*Secret, error) {
		return nil, boom
	}
	c := newSpyCache()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newCachedStore(t, repo, c, withClock(func() time.Time { return fixed }), WithOriginator("vault-shim"))

	secret, err := store.GetByName(ctx, "db-password")
	assert.Nil(t, secret)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrStoreOperationFailed))
	assert.True(t, errors.Is(err, boom))
	assert.False(t, IsArgumentInvalid(err))

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, OpGetByName, storeErr.Op)
	assert.Equal(t, "vault-shim", storeErr.Originator)
	assert.Equal(t, fixed, storeErr.Time)
	assert.Equal(t, storeerrors.CodeStoreOperationFailed, storeErr.Code())
	assert.Contains(t, err.Error(), "connection reset")

	_, sets := c.calls()
	assert.Zero(t, sets, "cache must not be written after a repository failure")
}

func TestStore_CollaboratorFailuresAreWrappedUniformly(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name   string
		setup  func(repo *spyRepository, c *spyCache)
		call   func(s *Store) (*Secret, error)
		wantOp string
	}{
		{
			name:   "cache get fails",
			setup:  func(repo *spyRepository, c *spyCache) { c.getErr = boom },
			call:   func(s *Store) (*Secret, error) { return s.GetByName(ctx, "k") },
			wantOp: OpGetByName,
		},
		{
			name:   "cache backfill fails",
			setup:  func(repo *spyRepository, c *spyCache) { repo.secrets["k"] = "v"; c.setErr = boom },
			call:   func(s *Store) (*Secret, error) { return s.GetByName(ctx, "k") },
			wantOp: OpGetByName,
		},
		{
			name: "repository set fails",
			setup: func(repo *spyRepository, c *spyCache) {
				repo.setFunc = func(context.Context, string, string) (*Secret, error) { return nil, boom }
			},
			call:   func(s *Store) (*Secret, error) { return s.SetByName(ctx, "k", "v") },
			wantOp: OpSetByName,
		},
		{
			name:   "cache write after set fails",
			setup:  func(repo *spyRepository, c *spyCache) { c.setErr = boom },
			call:   func(s *Store) (*Secret, error) { return s.SetByName(ctx, "k", "v") },
			wantOp: OpSetByName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newSpyRepository(nil)
			c := newSpyCache()
			tt.setup(repo, c)
			store := newCachedStore(t, repo, c)

			secret, err := tt.call(store)
			assert.Nil(t, secret)
			assert.ErrorIs(t, err, ErrStoreOperationFailed)
			assert.ErrorIs(t, err, boom)

			var storeErr *StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, tt.wantOp, storeErr.Op)
			assert.Equal(t, DefaultOriginator, storeErr.Originator)
			assert.False(t, storeErr.Time.IsZero())
		})
	}
}

func TestStore_CorruptCacheEntryFails(t *testing.T) {
	repo := newSpyRepository(map[string]string{"k": "v"})
	c := newSpyCache()
	c.entries["k"] = []byte("{not json")
	store := newCachedStore(t, repo, c)

	_, err := store.GetByName(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreOperationFailed)

	gets, _ := repo.calls()
	assert.Zero(t, gets)
}

func TestStore_UnnamedSecretsAreRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("from repository", func(t *testing.T) {
		repo := newSpyRepository(nil)
		repo.getFunc = func(context.Context, string) (*Secret, error) { return &Secret{Value: "v"}, nil }
		c := newSpyCache()
		store := newCachedStore(t, repo, c)

		_, err := store.GetByName(ctx, "k")
		assert.ErrorIs(t, err, errMalformedSecret)
		assert.ErrorIs(t, err, ErrStoreOperationFailed)
		_, sets := c.calls()
		assert.Zero(t, sets)
	})

	t.Run("from cache", func(t *testing.T) {
		c := newSpyCache()
		c.entries["k"] = []byte(`{"name":"","value":"v"}`)
		store := newCachedStore(t, newSpyRepository(nil), c)

		_, err := store.GetByName(ctx, "k")
		assert.ErrorIs(t, err, errMalformedSecret)
	})

	t.Run("null cache entry", func(t *testing.T) {
		repo := newSpyRepository(map[string]string{"k": "v"})
		c := newSpyCache()
		c.entries["k"] = []byte("null")
		store := newCachedStore(t, repo, c)

		got, err := store.GetByName(ctx, "k")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, errMalformedSecret)
		assert.ErrorIs(t, err, ErrStoreOperationFailed)

		gets, _ := repo.calls()
		assert.Zero(t, gets)
	})
}

func TestStore_Cancellation(t *testing.T) {
	repo := newSpyRepository(map[string]string{"k": "v"})
	c := newSpyCache()
	store := newCachedStore(t, repo, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetByName(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreOperationFailed)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.SetByName(ctx, "k", "v2")
	assert.ErrorIs(t, err, ErrStoreOperationFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_CancelledBetweenRepositoryWriteAndBackfill(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := newSpyRepository(map[string]string{"k": "old"})
	repo.setFunc = func(_ context.Context, name, value string) (*Secret, error) {
		repo.mu.Lock()
		repo.secrets[name] = value
		repo.mu.Unlock()
		cancel()
		return &Secret{Name: name, Value: value}, nil
	}
	c := newSpyCache()
	c.entries["k"] = []byte(`{"name":"k","value":"old"}`)
	store := newCachedStore(t, repo, c)

	_, err := store.SetByName(ctx, "k", "new")
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, "new", repo.secrets["k"], "repository write is not rolled back")
	got, err := store.GetByName(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "old", got.Value, "cache stays stale until the next read-through")
}

func TestStore_CacheLess(t *testing.T) {
	ctx := context.Background()
	repo := newSpyRepository(map[string]string{"db-password": "s3cr3t"})
	store, err := New(repo)
	require.NoError(t, err)

	secret, err := store.GetByName(ctx, "db-password")
	require.NoError(t, err)
	assert.Equal(t, &Secret{Name: "db-password", Value: "s3cr3t"}, secret)

	_, err = store.GetByName(ctx, "db-password")
	require.NoError(t, err)

	missing, err := store.GetByName(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	written, err := store.SetByName(ctx, "api-key", "abc123")
	require.NoError(t, err)
	assert.Equal(t, &Secret{Name: "api-key", Value: "abc123"}, written)

	gets, sets := repo.calls()
	assert.Equal(t, 3, gets, "every read goes to the repository")
	assert.Equal(t, 1, sets)

	_, err = store.GetByName(ctx, "")
	assert.ErrorIs(t, err, ErrArgumentInvalid)

	repo.getFunc = func(context.Context, string) (*Secret, error) { return nil, errors.New("down") }
	_, err = store.GetByName(ctx, "db-password")
	assert.ErrorIs(t, err, ErrStoreOperationFailed)
}

func TestStore_ConcurrentMissesEachReadRepository(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	repo := newSpyRepository(nil)
	repo.getFunc = func(ctx context.Context, name string) (*Secret, error) {
		<-release
		return &Secret{Name: name, Value: "v"}, nil
	}
	c := newSpyCache()
	store := newCachedStore(t, repo, c)

	const callers = 5
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			secret, err := store.GetByName(ctx, "shared")
			assert.NoError(t, err)
			assert.Equal(t, "v", secret.Value)
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	gets, _ := repo.calls()
	assert.GreaterOrEqual(t, gets, 1)
	assert.LessOrEqual(t, gets, callers)
	_, sets := c.calls()
	assert.Equal(t, gets, sets, "every repository read backfills the cache")
}

func TestStore_LogsNeverContainValues(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	repo := newSpyRepository(nil)
	store := newCachedStore(t, repo, newSpyCache(), WithLogger(logger))

	_, err := store.SetByName(ctx, "db-password", "hunter2-very-secret")
	require.NoError(t, err)
	_, err = store.GetByName(ctx, "db-password")
	require.NoError(t, err)

	repo.getFunc = func(context.Context, string) (*Secret, error) { return nil, errors.New("down") }
	failing, err := New(repo, WithLogger(logger))
	require.NoError(t, err)
	_, err = failing.GetByName(ctx, "db-password")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"secret_name":"db-password"`)
	assert.Contains(t, out, `"cache_hit":true`)
	assert.NotContains(t, out, "hunter2-very-secret")
}
