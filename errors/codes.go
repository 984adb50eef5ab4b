// Package errors provides the error codes shared by the secret store and its collaborators.
// Codes are string-based for debuggability and natural JSON serialization.
package errors

// ErrorCode represents a specific error condition in the secret store.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested secret does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Permission errors.

	// CodeForbidden indicates the backing store denied the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates a required argument was empty or unset.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Infrastructure errors.

	// CodeStoreOperationFailed indicates a cache or repository call failed during a store operation.
	CodeStoreOperationFailed ErrorCode = "STORE_OPERATION_FAILED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Coded is implemented by errors that carry an ErrorCode.
type Coded interface {
	error
	Code() ErrorCode
}

// String returns the code as a plain string.
func (c ErrorCode) String() string {
	return string(c)
}
