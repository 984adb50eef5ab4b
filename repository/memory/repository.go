// Package memory provides an in-memory secret repository for testing and development.
// It has no persistence and is safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore"
)

var _ secretstore.Repository = (*Repository)(nil)

// Validator decides whether a write is accepted. Rejected writes are reported as absent.
type Validator func(name, value string) bool

// Repository implements an in-memory secret store.
type Repository struct {
	// secrets holds values keyed by secret name
	secrets map[string]string
	// validator rejects writes when it returns false; nil accepts everything
	validator Validator
	// mu protects concurrent access to secrets
	mu sync.RWMutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithValidator installs a write validator.
func WithValidator(v Validator) Option {
	return func(r *Repository) {
		r.validator = v
	}
}

// WithSecrets seeds the repository.
func WithSecrets(seed map[string]string) Option {
	return func(r *Repository) {
		for name, value := range seed {
			r.secrets[name] = value
		}
	}
}

// New creates an empty repository.
func New(opts ...Option) *Repository {
	r := &Repository{
		secrets: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetByName returns a copy of the named secret, or nil if it does not exist.
func (r *Repository) GetByName(ctx context.Context, name string) (*secretstore.Secret, error) {
	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get operation cancelled: %w", ctx.Err())
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, exists := r.secrets[name]
	if !exists {
		return nil, nil
	}

	return &secretstore.Secret{Name: name, Value: value}, nil
}

// SetByName stores value under name. It returns nil when the validator rejects the write.
func (r *Repository) SetByName(ctx context.Context, name, value string) (*secretstore.Secret, error) {
	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("set operation cancelled: %w", ctx.Err())
	default:
	}

	if r.validator != nil && !r.validator(name, value) {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.secrets[name] = value
	return &secretstore.Secret{Name: name, Value: value}, nil
}

// Delete removes the named secret. Missing names are not an error.
func (r *Repository) Delete(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete operation cancelled: %w", ctx.Err())
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.secrets, name)
	return nil
}

// Len returns the number of stored secrets.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.secrets)
}

// Close clears all stored secrets.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets = make(map[string]string)
	return nil
}
