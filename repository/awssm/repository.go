// Package awssm implements a secret repository backed by AWS Secrets Manager.
//
// # IAM Permissions
//
//   - secretsmanager:GetSecretValue for GetByName
//   - secretsmanager:PutSecretValue and secretsmanager:CreateSecret for SetByName
//   - kms:Decrypt and kms:GenerateDataKey when a customer-managed KMS key is used
//
// A secret missing from Secrets Manager is reported as absent (nil, nil), not as an
// error. SetByName creates the secret when it does not exist yet.
//
// Only secret names and operation metadata are ever logged.
//
// Thread Safety: all Repository methods are safe for concurrent use. The AWS SDK v2
// client is thread-safe and the repository holds no other mutable state.
package awssm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/secretstore"
	storeerrors "github.com/input-output-hk/catalyst-forge-libs/secretstore/errors"
)

var _ secretstore.Repository = (*Repository)(nil)

// ManagerAPI is the subset of the Secrets Manager client used by the repository.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)

	PutSecretValue(
		ctx context.Context,
		params *secretsmanager.PutSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.PutSecretValueOutput, error)

	CreateSecret(
		ctx context.Context,
		params *secretsmanager.CreateSecretInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.CreateSecretOutput, error)
}

// Repository stores secrets in AWS Secrets Manager.
type Repository struct {
	// api is the underlying Secrets Manager client (thread-safe)
	api ManagerAPI

	// kmsKeyID encrypts newly created secrets when set
	kmsKeyID string

	// logger is used for structured logging of operations (thread-safe)
	logger *slog.Logger
}

// New creates a repository using the default AWS configuration chain, adjusted by opts.
//
// Example usage:
//
//	repo, err := awssm.New(ctx,
//	    awssm.WithRegion("eu-central-1"),
//	    awssm.WithRetryer(awssm.NewRetryer(5)),
//	)
func New(ctx context.Context, opts ...Option) (*Repository, error) {
	if ctx == nil {
		return nil, storeerrors.NewValidationError("ctx", "cannot be nil")
	}

	options := defaultOptions()
	applyOptions(options, opts)

	var loadOpts []func(*config.LoadOptions) error
	if options.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(options.region))
	}
	if options.retryer != nil {
		retryer := options.retryer
		loadOpts = append(loadOpts, config.WithRetryer(func() aws.Retryer { return retryer }))
	}
	if options.anonymous {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if options.endpoint != "" {
			o.BaseEndpoint = aws.String(options.endpoint)
		}
	})

	return newRepository(api, options), nil
}

// NewWithAPI creates a repository over an existing client. Region, endpoint,
// retryer and credential options are ignored.
func NewWithAPI(api ManagerAPI, opts ...Option) (*Repository, error) {
	if api == nil {
		return nil, storeerrors.NewValidationError("api", "cannot be nil")
	}

	options := defaultOptions()
	applyOptions(options, opts)

	return newRepository(api, options), nil
}

func newRepository(api ManagerAPI, options *repositoryOptions) *Repository {
	return &Repository{
		api:      api,
		kmsKeyID: options.kmsKeyID,
		logger:   options.logger,
	}
}

// GetByName returns the current version of the named secret, or nil if Secrets
// Manager has no such secret. Binary secrets are returned as their raw bytes.
func (r *Repository) GetByName(ctx context.Context, name string) (*secretstore.Secret, error) {
	if err := storeerrors.RequireNotEmpty("name", name); err != nil {
		return nil, err
	}

	r.debug(ctx, "retrieving secret", name)

	output, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		if errorCode(err) == ResourceNotFoundException {
			r.debug(ctx, "secret not found", name)
			return nil, nil
		}
		return nil, r.handleError(ctx, err, "GetSecretValue", name)
	}

	var value string
	switch {
	case output.SecretString != nil:
		value = *output.SecretString
	case output.SecretBinary != nil:
		value = string(output.SecretBinary)
	default:
		return nil, r.handleError(ctx, ErrSecretEmpty, "GetSecretValue", name)
	}

	return &secretstore.Secret{Name: name, Value: value}, nil
}

// SetByName writes value as the new current version of the named secret, creating
// the secret when it does not exist.
func (r *Repository) SetByName(ctx context.Context, name, value string) (*secretstore.Secret, error) {
	if err := storeerrors.RequireNotEmpty("name", name); err != nil {
		return nil, err
	}

	r.debug(ctx, "updating secret", name)

	_, err := r.api.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(value),
	})
	if err != nil {
		if errorCode(err) != ResourceNotFoundException {
			return nil, r.handleError(ctx, err, "PutSecretValue", name)
		}
		if err := r.create(ctx, name, value); err != nil {
			return nil, err
		}
	}

	return &secretstore.Secret{Name: name, Value: value}, nil
}

func (r *Repository) create(ctx context.Context, name, value string) error {
	r.debug(ctx, "creating secret", name)

	input := &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
	}
	if r.kmsKeyID != "" {
		input.KmsKeyId = aws.String(r.kmsKeyID)
	}

	if _, err := r.api.CreateSecret(ctx, input); err != nil {
		return r.handleError(ctx, err, "CreateSecret", name)
	}
	return nil
}

// handleError maps AWS errors onto package errors and wraps the rest with the
// operation name. API error messages are kept out of the chain since they may
// echo request parameters.
func (r *Repository) handleError(ctx context.Context, err error, operation, name string) error {
	if r.logger != nil {
		r.logger.ErrorContext(ctx, "secrets manager call failed",
			"operation", operation,
			"secret_name", name,
			"error", err)
	}

	if errors.Is(err, ErrSecretEmpty) {
		return fmt.Errorf("%s operation failed: %w", operation, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == AccessDeniedException {
			return fmt.Errorf("%s operation failed: %w", operation, ErrAccessDenied)
		}
		return fmt.Errorf("%s operation failed: %s", operation, apiErr.ErrorCode())
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}

func (r *Repository) debug(ctx context.Context, msg, name string) {
	if r.logger == nil {
		return
	}
	r.logger.DebugContext(ctx, msg, "secret_name", name)
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
