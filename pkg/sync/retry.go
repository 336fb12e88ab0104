package sync

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/marketloop/journeysync/pkg/remote"
)

// RetryPolicy declares how publish attempts are rescheduled: how many tries,
// how the delay grows, and which errors are worth retrying at all. Scheduling
// lives here; the retryable predicate is passed in so the two stay decoupled.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy matches the platform's documented rate-limit window.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryRemote reports whether a remote call is worth repeating: rate limits
// and client-side timeouts are transient, everything else is reported as-is.
func retryRemote(err error) bool {
	if remote.IsRetryable(err) {
		return true
	}

	var timeout interface{ Timeout() bool }

	return errors.As(err, &timeout) && timeout.Timeout()
}

// executeWithRetry runs op under the policy, counting attempts. Errors the
// predicate rejects are marked permanent so backoff stops immediately.
func executeWithRetry[T any](ctx context.Context, policy RetryPolicy, retryable func(error) bool, op func() (T, error)) (T, int, error) {
	attempts := 0

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.InitialInterval
	expo.MaxInterval = policy.MaxInterval

	result, err := backoff.Retry(ctx, func() (T, error) {
		attempts++

		value, opErr := op()
		if opErr != nil && !retryable(opErr) {
			return value, backoff.Permanent(opErr)
		}

		return value, opErr
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(policy.MaxAttempts)))

	return result, attempts, err
}
