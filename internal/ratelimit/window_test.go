package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/store"
)

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) RecordTimestamp(context.Context, string, time.Time, time.Duration) error {
	return errStoreDown
}

func (failingStore) TimestampsSince(context.Context, string, time.Time) ([]time.Time, error) {
	return nil, errStoreDown
}

func (failingStore) LoadBucket(context.Context, string) (store.BucketState, bool, error) {
	return store.BucketState{}, false, errStoreDown
}

func (failingStore) SaveBucket(context.Context, string, store.BucketState, time.Duration) error {
	return errStoreDown
}

func windowTestClasses() Classes {
	return Classes{
		"investigations": {Strategy: StrategyWindow, Limit: 10, Window: time.Minute},
		DefaultClass:     {Strategy: StrategyWindow, Limit: 3, Window: time.Minute},
	}
}

func TestWindowLimiter_EleventhRequestDenied(t *testing.T) {
	limiter := NewWindowLimiter(store.NewMemory(), windowTestClasses())

	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		decision := limiter.Check(ctx, "client-1", "investigations")
		if !decision.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if want := 10 - i - 1; decision.Remaining != want {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, decision.Remaining, want)
		}
		now = now.Add(time.Second)
	}

	decision := limiter.Check(ctx, "client-1", "investigations")
	if decision.Allowed {
		t.Fatal("11th request within the window should be denied")
	}
	if decision.Remaining != 0 {
		t.Fatalf("denied decision remaining = %d, want 0", decision.Remaining)
	}
	// Oldest request was 10 seconds ago, window is 60s.
	if want := 50 * time.Second; decision.RetryAfter != want {
		t.Fatalf("retry after = %v, want %v", decision.RetryAfter, want)
	}
}

func TestWindowLimiter_AllowsAfterWindowPasses(t *testing.T) {
	limiter := NewWindowLimiter(store.NewMemory(), windowTestClasses())

	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if d := limiter.Check(ctx, "client-1", "investigations"); !d.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	now = now.Add(61 * time.Second)
	if d := limiter.Check(ctx, "client-1", "investigations"); !d.Allowed {
		t.Fatal("request after the window expired should be allowed")
	}
}

func TestWindowLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewWindowLimiter(store.NewMemory(), windowTestClasses())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d := limiter.Check(ctx, "client-1", "unknown-class"); !d.Allowed {
			t.Fatalf("request %d for client-1 should be allowed", i+1)
		}
	}
	if d := limiter.Check(ctx, "client-1", "unknown-class"); d.Allowed {
		t.Fatal("client-1 should be exhausted")
	}
	if d := limiter.Check(ctx, "client-2", "unknown-class"); !d.Allowed {
		t.Fatal("client-2 has its own budget and should be allowed")
	}
}

func TestWindowLimiter_UnknownClassFallsBackToDefault(t *testing.T) {
	limiter := NewWindowLimiter(store.NewMemory(), windowTestClasses())

	decision := limiter.Check(context.Background(), "client-1", "never-configured")
	if decision.Class != DefaultClass {
		t.Fatalf("class = %q, want %q", decision.Class, DefaultClass)
	}
	if decision.Limit != 3 {
		t.Fatalf("limit = %d, want default class limit 3", decision.Limit)
	}
}

func TestWindowLimiter_FailsOpenOnStoreError(t *testing.T) {
	limiter := NewWindowLimiter(failingStore{}, windowTestClasses())

	decision := limiter.Check(context.Background(), "client-1", "investigations")
	if !decision.Allowed {
		t.Fatal("store failure must fail open, not deny")
	}
	if !decision.FailedOpen {
		t.Fatal("decision should be marked failed-open")
	}
}
