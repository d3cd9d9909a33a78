package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retry loop. MaxRetries is the number of re-attempts after
// the first try, so MaxRetries = 0 means exactly one attempt.
type Policy struct {
	MaxRetries         int
	RetryDelay         time.Duration
	BackoffMultiplier  float64
	ExponentialBackoff bool
}

// DefaultPolicy matches the media download defaults: 3 retries, 1s base
// delay, exponential backoff x2.
var DefaultPolicy = Policy{
	MaxRetries:         3,
	RetryDelay:         time.Second,
	BackoffMultiplier:  2,
	ExponentialBackoff: true,
}

// TimeoutError reports an operation that had not settled by its deadline.
type TimeoutError struct {
	Label   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Label, e.Timeout)
}

// WithTimeout runs op under a hard deadline. A timeout means "stopped
// waiting": the operation may keep running in the background, its eventual
// result is discarded. Any other failure of op propagates unchanged.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, label string, op func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)

	type settled struct {
		val T
		err error
	}
	done := make(chan settled, 1)
	go func() {
		defer cancel()
		v, err := op(opCtx)
		done <- settled{v, err}
	}()

	select {
	case s := <-done:
		return s.val, s.err
	case <-opCtx.Done():
		var zero T
		if ctx.Err() != nil {
			// Parent cancellation, not a deadline expiry.
			return zero, ctx.Err()
		}
		return zero, &TimeoutError{Label: label, Timeout: timeout}
	}
}

// WithRetry invokes op up to MaxRetries+1 times, sleeping RetryDelay between
// attempts (scaled by BackoffMultiplier^(attempt-1) when exponential). The
// final error names the retry count and preserves the first and last
// underlying errors. Implemented as a plain bounded loop so the call stack
// stays flat no matter how large MaxRetries is.
func WithRetry[T any](ctx context.Context, policy Policy, label string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var firstErr, lastErr error

	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		lastErr = err

		if attempt == policy.MaxRetries+1 {
			break
		}

		select {
		case <-time.After(backoffDelay(policy, attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	if firstErr == lastErr {
		return zero, fmt.Errorf("%s failed after %d retries: %w", label, policy.MaxRetries, lastErr)
	}
	return zero, fmt.Errorf("%s failed after %d retries: first error: %v; last error: %w",
		label, policy.MaxRetries, firstErr, lastErr)
}

func backoffDelay(policy Policy, attempt int) time.Duration {
	delay := policy.RetryDelay
	if !policy.ExponentialBackoff || policy.BackoffMultiplier <= 0 {
		return delay
	}
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * policy.BackoffMultiplier)
	}
	return delay
}
