// Package recovery retries failed pipeline attempts with exponential
// backoff. It is the outermost wrapper around admission, breaker and the
// network call itself.
package recovery

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// sleep is swapped out in tests to avoid real waiting.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry runs op up to maxRetries+1 times, sleeping baseDelay*2^attempt
// between attempts. The terminal error is returned unchanged: the caller
// decides what the user sees, nothing here reclassifies it.
func Retry(ctx context.Context, op func(ctx context.Context) error, maxRetries int, baseDelay time.Duration) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			log.Debug("retrying after backoff", "attempt", attempt, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return lastErr
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}
