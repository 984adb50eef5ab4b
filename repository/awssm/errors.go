package awssm

import "errors"

// AWS error codes that change how a call is reported.
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

var (
	// ErrAccessDenied is returned when the credentials lack permission for the
	// Secrets Manager action. The message never includes the secret name or value.
	ErrAccessDenied = errors.New("access denied to secret")

	// ErrSecretEmpty is returned when a secret version carries neither a string
	// nor a binary value.
	ErrSecretEmpty = errors.New("secret value is empty")
)
