package ratelimit

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/store"
)

// bucketStateTTL bounds how long idle bucket state lingers in the store.
// An idle bucket refills to capacity long before this expires, so losing
// the state is equivalent to a full bucket.
const bucketStateTTL = time.Hour

// BucketLimiter shapes traffic with a lazily refilled token bucket.
// Refill is computed from elapsed time at check time; there is no
// background timer.
type BucketLimiter struct {
	store   store.CounterStore
	classes Classes
	now     func() time.Time
}

func NewBucketLimiter(counterStore store.CounterStore, classes Classes) *BucketLimiter {
	return &BucketLimiter{
		store:   counterStore,
		classes: classes,
		now:     time.Now,
	}
}

func (l *BucketLimiter) Check(ctx context.Context, clientKey, class string) Decision {
	class, cfg := l.classes.Resolve(class)
	now := l.now()

	decision := Decision{
		Class:      class,
		Strategy:   StrategyBucket,
		Capacity:   cfg.Capacity,
		RefillRate: cfg.RefillRate,
		Limit:      int(cfg.Capacity),
	}

	key := limiterKey(class, clientKey)

	state, ok, err := l.store.LoadBucket(ctx, key)
	if err != nil {
		log.Warn("rate limit store unreachable, failing open", "key", key, "error", err)
		decision.Allowed = true
		decision.FailedOpen = true
		decision.Tokens = cfg.Capacity - 1
		decision.Remaining = int(cfg.Capacity) - 1
		return decision
	}
	if !ok {
		state = store.BucketState{Tokens: cfg.Capacity, LastRefill: now}
	}

	elapsed := now.Sub(state.LastRefill).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	tokens := state.Tokens + elapsed*cfg.RefillRate
	if tokens > cfg.Capacity {
		tokens = cfg.Capacity
	}

	if tokens >= 1 {
		tokens--
		decision.Allowed = true
	} else {
		untilToken := (1 - tokens) / cfg.RefillRate
		decision.RetryAfter = time.Duration(untilToken * float64(time.Second))
		decision.Reset = now.Add(decision.RetryAfter)
	}

	decision.Tokens = tokens
	decision.Remaining = int(tokens)

	if err := l.store.SaveBucket(ctx, key, store.BucketState{Tokens: tokens, LastRefill: now}, bucketStateTTL); err != nil {
		log.Warn("rate limit store unreachable, failing open", "key", key, "error", err)
		if !decision.Allowed {
			decision.Allowed = true
			decision.RetryAfter = 0
			decision.Reset = time.Time{}
		}
		decision.FailedOpen = true
	}

	return decision
}
