// Package store abstracts the counter backend shared by the rate
// limiters. A single process runs on the in-memory implementation; a
// fleet of task-queue workers points at the Redis implementation so the
// same limits hold across processes.
package store

import (
	"context"
	"time"
)

// BucketState is the persisted token-bucket state for one key.
type BucketState struct {
	Tokens     float64
	LastRefill time.Time
}

// CounterStore is the narrow surface both limiter strategies depend on.
// Implementations must be safe for concurrent use. Any returned error is
// treated as an infrastructure failure and handled fail-open upstream.
type CounterStore interface {
	// RecordTimestamp appends ts under key with the given retention.
	RecordTimestamp(ctx context.Context, key string, ts time.Time, ttl time.Duration) error

	// TimestampsSince returns all recorded timestamps for key at or
	// after since, oldest first. Older entries may be dropped as a side
	// effect.
	TimestampsSince(ctx context.Context, key string, since time.Time) ([]time.Time, error)

	// LoadBucket fetches bucket state for key; ok is false when the key
	// has no state yet.
	LoadBucket(ctx context.Context, key string) (state BucketState, ok bool, err error)

	// SaveBucket persists bucket state for key with the given retention.
	SaveBucket(ctx context.Context, key string, state BucketState, ttl time.Duration) error
}
