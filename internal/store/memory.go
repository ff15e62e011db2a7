package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is the process-local CounterStore. Expiry is applied lazily on
// access, there is no background sweeper.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*windowSeries
	buckets map[string]*bucketSlot
}

type windowSeries struct {
	timestamps []time.Time
	ttl        time.Duration
}

type bucketSlot struct {
	state     BucketState
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		windows: make(map[string]*windowSeries),
		buckets: make(map[string]*bucketSlot),
	}
}

func (m *Memory) RecordTimestamp(_ context.Context, key string, ts time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	series, ok := m.windows[key]
	if !ok {
		series = &windowSeries{}
		m.windows[key] = series
	}
	series.ttl = ttl
	series.timestamps = append(series.timestamps, ts)
	return nil
}

func (m *Memory) TimestampsSince(_ context.Context, key string, since time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	series, ok := m.windows[key]
	if !ok {
		return nil, nil
	}

	kept := series.timestamps[:0]
	for _, ts := range series.timestamps {
		if !ts.Before(since) {
			kept = append(kept, ts)
		}
	}
	series.timestamps = kept
	if len(kept) == 0 {
		delete(m.windows, key)
		return nil, nil
	}

	out := make([]time.Time, len(kept))
	copy(out, kept)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *Memory) LoadBucket(_ context.Context, key string) (BucketState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.buckets[key]
	if !ok {
		return BucketState{}, false, nil
	}
	if !slot.expiresAt.IsZero() && time.Now().After(slot.expiresAt) {
		delete(m.buckets, key)
		return BucketState{}, false, nil
	}
	return slot.state, true, nil
}

func (m *Memory) SaveBucket(_ context.Context, key string, state BucketState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := &bucketSlot{state: state}
	if ttl > 0 {
		slot.expiresAt = time.Now().Add(ttl)
	}
	m.buckets[key] = slot
	return nil
}
