package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Error is an error carrying an ErrorCode, an optional cause and optional
// structured context.
type Error struct {
	code    ErrorCode
	message string
	context map[string]any
	cause   error
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap creates an Error with the given code and message that wraps err.
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// WrapWithContext is Wrap with additional key/value context included in the message.
// Context values must never include secret material.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]any) *Error {
	return &Error{code: code, message: message, context: ctx, cause: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.message)

	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.context[k])
		}
		b.WriteString(")")
	}

	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the error's code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Context returns the structured context attached to the error.
func (e *Error) Context() map[string]any {
	return e.context
}
