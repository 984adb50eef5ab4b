// Package sqlrepo implements a secret repository on a SQL database.
//
// Local databases use the pure-Go SQLite driver; remote libSQL databases (Turso) use
// the libSQL client. Both speak the same SQLite dialect, so the schema and queries are
// shared.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Registers "libsql" with database/sql for libsql://, https:// and wss:// URLs.
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	// Registers "sqlite" with database/sql for local files.
	_ "modernc.org/sqlite"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore"
	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
)

const (
	libsqlDriver = "libsql"
	sqliteDriver = "sqlite"
)

var _ secretstore.Repository = (*Repository)(nil)

// Repository stores secrets in a single SQL table keyed by name.
type Repository struct {
	db       *sql.DB
	owned    bool
	readOnly bool
	now      func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithReadOnly makes SetByName reject every write by returning nil.
func WithReadOnly() Option {
	return func(r *Repository) {
		r.readOnly = true
	}
}

// DriverFor returns the database/sql driver name used for dsn.
func DriverFor(dsn string) string {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, scheme) {
			return libsqlDriver
		}
	}
	return sqliteDriver
}

// Open connects to dsn, verifies the connection and prepares the schema. The
// returned repository owns the connection and closes it on Close.
//
// Supported DSNs:
//
//	Local file:   "file:secrets.db" or "secrets.db"
//	Remote Turso: "libsql://[db-name].turso.io?authToken=[token]"
func Open(ctx context.Context, dsn string, opts ...Option) (*Repository, error) {
	if err := storeerrors.RequireNotEmpty("dsn", dsn); err != nil {
		return nil, err
	}

	driver := DriverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == sqliteDriver {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY under concurrency.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	r, err := New(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.owned = true
	return r, nil
}

// New wraps an existing connection and creates the secrets table if needed. The
// caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, storeerrors.NewValidationError("db", "cannot be nil")
	}

	r := &Repository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.migrate(ctx); err != nil {
		return nil, fmt.Errorf("sqlrepo migrate: %w", err)
	}
	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS secrets (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	return err
}

// GetByName returns the named secret, or nil if there is no row for it.
func (r *Repository) GetByName(ctx context.Context, name string) (*secretstore.Secret, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM secrets WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query secret: %w", err)
	}
	return &secretstore.Secret{Name: name, Value: value}, nil
}

// SetByName inserts or replaces the named secret. A read-only repository returns nil.
func (r *Repository) SetByName(ctx context.Context, name, value string) (*secretstore.Secret, error) {
	if r.readOnly {
		return nil, nil
	}

	// The row written by this statement is the canonical secret, even under concurrent writers.
	var stored string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO secrets (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		RETURNING value
	`, name, value, r.now().UnixNano()).Scan(&stored)
	if err != nil {
		return nil, fmt.Errorf("upsert secret: %w", err)
	}

	return &secretstore.Secret{Name: name, Value: stored}, nil
}

// UpdatedAt returns when the named secret was last written.
func (r *Repository) UpdatedAt(ctx context.Context, name string) (time.Time, bool, error) {
	var nanos int64
	err := r.db.QueryRowContext(ctx, "SELECT updated_at FROM secrets WHERE name = ?", name).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query secret timestamp: %w", err)
	}
	return time.Unix(0, nanos), true, nil
}

// Delete removes the named secret. Missing names are not an error.
func (r *Repository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM secrets WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// Close closes the connection if the repository opened it.
func (r *Repository) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}
