package services

import (
	"context"
	"time"
)

// BackoffFunc returns the suspension before the given retry. attempt is
// 1-based and counts the attempt that just failed.
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff doubles the base delay on every failed attempt:
// base, 2*base, 4*base, ...
func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

func ConstantBackoff(delay time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return delay
	}
}

// RetryPolicy is a bounded retry loop shared by the LLM gateway (inner retry)
// and the dispatcher (outer task-level retry). The two loops differ only in
// their parameters, never in mechanics.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc

	// Retryable reports whether a failed attempt should be retried. A nil
	// predicate retries every error.
	Retryable func(error) bool
}

// Do runs op until it succeeds, a non-retryable error occurs, attempts are
// exhausted, or the context is cancelled. The last attempt's error is
// returned unwrapped so callers can classify it.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := time.Duration(0)
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
