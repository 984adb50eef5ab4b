package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrArgumentInvalid indicates that a caller supplied an empty or unset required argument.
// It is detected before any I/O and is never retried.
var ErrArgumentInvalid = stderrors.New("invalid argument")

// ValidationError describes which argument failed validation and why.
// It matches ErrArgumentInvalid with errors.Is.
type ValidationError struct {
	Field   string // The argument that failed validation
	Message string // Human-readable validation message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Message)
}

// Unwrap returns ErrArgumentInvalid so callers can test with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrArgumentInvalid
}

// Code returns CodeInvalidInput.
func (e *ValidationError) Code() ErrorCode {
	return CodeInvalidInput
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RequireNotEmpty returns a ValidationError when value is empty.
func RequireNotEmpty(field, value string) error {
	if value == "" {
		return NewValidationError(field, "cannot be empty")
	}
	return nil
}

// IsArgumentInvalid reports whether err is or wraps ErrArgumentInvalid.
func IsArgumentInvalid(err error) bool {
	return stderrors.Is(err, ErrArgumentInvalid)
}

// CodeOf returns the ErrorCode carried by err, or CodeUnknown when none is present.
func CodeOf(err error) ErrorCode {
	var coded Coded
	if stderrors.As(err, &coded) {
		return coded.Code()
	}
	return CodeUnknown
}
