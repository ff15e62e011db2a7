package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Decision is the outcome of one admission check. Every field except
// Allowed is advisory metadata for the caller or for response headers.
type Decision struct {
	Allowed  bool
	Class    string
	Strategy Strategy

	// Window metadata.
	Limit     int
	Remaining int
	Reset     time.Time

	// Bucket metadata.
	Tokens     float64
	Capacity   float64
	RefillRate float64

	// RetryAfter is non-zero on denial and tells the caller how long to
	// wait before the next attempt can succeed.
	RetryAfter time.Duration

	// FailedOpen marks decisions granted because the counter store was
	// unreachable rather than because capacity existed.
	FailedOpen bool
}

// ApplyHeaders writes the rate-limit response headers. Limit, remaining
// and reset accompany both outcomes; Retry-After only denials.
func (d Decision) ApplyHeaders(header http.Header) {
	header.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	header.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.Reset.IsZero() {
		header.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	}
	if !d.Allowed && d.RetryAfter > 0 {
		secs := int64(d.RetryAfter / time.Second)
		if d.RetryAfter%time.Second != 0 {
			secs++
		}
		header.Set("Retry-After", strconv.FormatInt(secs, 10))
	}
}
