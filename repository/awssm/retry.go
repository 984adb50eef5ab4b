package awssm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
)

// Default retry settings used by NewRetryer when given a non-positive attempt count.
const (
	DefaultMaxAttempts = 10
	defaultBaseDelay   = 100 * time.Millisecond
	defaultMaxDelay    = 30 * time.Second
)

var _ aws.Retryer = (*CustomRetryer)(nil)

// CustomRetryer implements aws.Retryer with exponential backoff and jitter. Only
// throttling and transient service errors are retried.
//
// Thread Safety: all fields are set at creation and never modified.
type CustomRetryer struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetryer returns a CustomRetryer allowing maxAttempts attempts in total,
// including the first. A non-positive value selects DefaultMaxAttempts.
func NewRetryer(maxAttempts int) *CustomRetryer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &CustomRetryer{
		maxAttempts: maxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
}

// MaxAttempts returns the maximum number of attempts.
func (r *CustomRetryer) MaxAttempts() int {
	return r.maxAttempts
}

// RetryDelay returns baseDelay * 2^(attempt-1) with ±25% jitter, capped at maxDelay.
func (r *CustomRetryer) RetryDelay(attempt int, _ error) (time.Duration, error) {
	// Compared as float64 so large attempt numbers cannot overflow time.Duration.
	backoff := float64(r.baseDelay) * math.Pow(2, float64(attempt-1))
	delay := r.maxDelay
	if backoff < float64(r.maxDelay) {
		delay = time.Duration(backoff)
	}

	jitterRange := int64(float64(delay) * 0.25)
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(2*jitterRange) - jitterRange)
	}

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	if delay < 0 {
		delay = 0
	}

	return delay, nil
}

// IsErrorRetryable reports whether err is a throttling or transient service error.
// Context errors and everything unrecognised are not retried.
func (r *CustomRetryer) IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException",
			"ProvisionedThroughputExceededException",
			"RequestLimitExceeded",
			"TooManyRequestsException",
			"InternalServiceError",
			"ServiceUnavailable":
			return true
		}
	}

	return false
}

// GetRetryToken always grants a retry.
func (r *CustomRetryer) GetRetryToken(context.Context, error) (func(error) error, error) {
	return func(error) error { return nil }, nil
}

// GetInitialToken returns a no-op release function.
func (r *CustomRetryer) GetInitialToken() func(error) error {
	return func(error) error { return nil }
}
