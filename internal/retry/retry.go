// Package retry wraps remote operations with bounded retry. It is used for
// read paths where transient network failure is expected; write paths that
// must not be duplicated do an existence check instead of retrying.
package retry

import (
	"context"
	"time"
)

// OnRetry is invoked after each failed attempt, before the delay.
type OnRetry func(attempt int, err error)

// Do runs op up to attempts times, sleeping delay between attempts. The
// last error is returned once attempts are exhausted. A cancelled context
// aborts the wait and returns the context error.
func Do(ctx context.Context, attempts int, delay time.Duration, op func(context.Context) error, onRetry OnRetry) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
