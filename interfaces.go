package secretstore

import "context"

// Repository is the durable source of truth for secrets.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetByName returns the secret with the given name.
	// A missing secret returns nil and a nil error.
	GetByName(ctx context.Context, name string) (*Secret, error)

	// SetByName writes value under name and returns the secret as persisted,
	// which may differ from the input if the repository normalizes it.
	// A rejected write returns nil and a nil error.
	SetByName(ctx context.Context, name, value string) (*Secret, error)
}

// SecretStore serves secret lookups and writes for callers.
//
// Absence is never an error: a nil secret with a nil error means "not found" on read and
// "not written" on write. Failures are either argument errors (ErrArgumentInvalid) or
// wrapped collaborator failures (ErrStoreOperationFailed).
type SecretStore interface {
	// GetByName returns the secret with the given name, or nil if none exists.
	GetByName(ctx context.Context, name string) (*Secret, error)

	// SetByName stores value under name and returns the canonical secret,
	// or nil if the repository rejected the write.
	SetByName(ctx context.Context, name, value string) (*Secret, error)
}
