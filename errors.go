package secretstore

import (
	"errors"
	"fmt"
	"time"

	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
)

// Standard error types for store operations.
// These errors are defined as variables to enable error comparison using errors.Is().
var (
	// ErrArgumentInvalid indicates a caller supplied an empty or unset required argument.
	// It is returned before any cache or repository call is made.
	ErrArgumentInvalid = storeerrors.ErrArgumentInvalid

	// ErrStoreOperationFailed indicates a cache or repository call failed during an operation.
	// The concrete error is a *StoreError wrapping the collaborator's error.
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// errMalformedSecret is the cause recorded when a collaborator hands back a secret
// without a name.
var errMalformedSecret = errors.New("secret has no name")

// StoreError wraps a collaborator failure with the context of the store operation
// during which it happened. It matches ErrStoreOperationFailed and unwraps to the cause.
type StoreError struct {
	Op         string    // Store operation that failed, e.g. "GetByName"
	Originator string    // Identifies the store instance that raised the error
	Time       time.Time // When the failure was observed
	Message    string    // Human-readable summary
	Err        error     // The collaborator's error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s (originator=%s, time=%s): %v",
		e.Op,
		e.Message,
		e.Originator,
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Err,
	)
}

// Unwrap returns the underlying error for error chain traversal.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStoreOperationFailed.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreOperationFailed
}

// Code returns CodeStoreOperationFailed.
func (e *StoreError) Code() storeerrors.ErrorCode {
	return storeerrors.CodeStoreOperationFailed
}

// IsArgumentInvalid reports whether err is or wraps ErrArgumentInvalid.
func IsArgumentInvalid(err error) bool {
	return storeerrors.IsArgumentInvalid(err)
}

// IsStoreOperationFailed reports whether err is or wraps a *StoreError.
func IsStoreOperationFailed(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
