package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoProxyAvailable means every entry in the pool is currently
	// filtered out. Callers may wait or go direct if policy allows.
	ErrNoProxyAvailable = errors.New("no proxy available")

	// ErrCircuitOpen signals a sustained outage of the guarded
	// dependency. Callers should not retry faster than the breaker
	// timeout.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// RateLimitError carries the concrete wait the caller must observe before
// the denied operation class admits another request.
type RateLimitError struct {
	Class      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry after %s", e.Class, e.RetryAfter.Round(time.Millisecond))
}

// IsRateLimited reports whether err is a rate-limit denial and returns it.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
