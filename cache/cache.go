// Package cache defines the byte-oriented cache contract used by the secret store and the
// helpers that map typed values to cache bytes.
//
// Values are stored as UTF-8 encoded JSON. The helpers never apply a TTL or a key prefix;
// both are the policy of the Cache implementation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
)

// Cache is a byte-oriented key/value cache.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the bytes stored under key.
	// A missing key returns nil, false and a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key, overwriting any existing entry.
	Set(ctx context.Context, key string, data []byte) error
}

// Put serializes value to JSON and stores it under key.
// It fails with an argument error if c or value is unset or key is empty.
func Put[T any](ctx context.Context, c Cache, key string, value T) error {
	if isNil(c) {
		return storeerrors.NewValidationError("cache", "cannot be nil")
	}
	if isNil(value) {
		return storeerrors.NewValidationError("value", "cannot be nil")
	}
	if err := storeerrors.RequireNotEmpty("key", key); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}

	return c.Set(ctx, key, data)
}

// Get loads the entry stored under key and decodes it into a T.
// A miss returns the zero value, false and a nil error. A decode failure is returned as an error.
func Get[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var zero T

	if isNil(c) {
		return zero, false, storeerrors.NewValidationError("cache", "cannot be nil")
	}
	if err := storeerrors.RequireNotEmpty("key", key); err != nil {
		return zero, false, err
	}

	data, found, err := c.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to decode cache entry %q: %w", key, err)
	}

	return value, true, nil
}

// isNil reports whether v is nil or a typed nil pointer, map, slice or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
