package awssm

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// repositoryOptions holds configuration options for the repository.
type repositoryOptions struct {
	region    string
	endpoint  string
	retryer   aws.Retryer
	anonymous bool
	kmsKeyID  string
	logger    *slog.Logger
}

// Option is a functional option for configuring a Repository.
type Option func(*repositoryOptions)

// WithRegion overrides the region resolved from the environment.
func WithRegion(region string) Option {
	return func(opts *repositoryOptions) {
		opts.region = region
	}
}

// WithEndpoint sends requests to a custom base endpoint, e.g. LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(opts *repositoryOptions) {
		opts.endpoint = endpoint
	}
}

// WithRetryer configures the repository with a custom retryer.
// If retryer is nil, default AWS SDK retry behavior will be used.
func WithRetryer(retryer aws.Retryer) Option {
	return func(opts *repositoryOptions) {
		opts.retryer = retryer
	}
}

// WithAnonymousCredentials skips request signing. Only useful against emulators.
func WithAnonymousCredentials() Option {
	return func(opts *repositoryOptions) {
		opts.anonymous = true
	}
}

// WithKMSKeyID encrypts secrets created by SetByName with the given key.
func WithKMSKeyID(keyID string) Option {
	return func(opts *repositoryOptions) {
		opts.kmsKeyID = keyID
	}
}

// WithLogger configures the repository with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *repositoryOptions) {
		opts.logger = logger
	}
}

func defaultOptions() *repositoryOptions {
	return &repositoryOptions{}
}

func applyOptions(opts *repositoryOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
}
