package ratelimit

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/store"
)

// WindowLimiter enforces a hard per-window request ceiling. Timestamps
// are kept in the counter store so multiple workers sharing a Redis
// backend enforce one combined limit.
type WindowLimiter struct {
	store   store.CounterStore
	classes Classes
	now     func() time.Time
}

func NewWindowLimiter(counterStore store.CounterStore, classes Classes) *WindowLimiter {
	return &WindowLimiter{
		store:   counterStore,
		classes: classes,
		now:     time.Now,
	}
}

// Check admits or denies one request for (clientKey, class). Store
// failures admit the request: blocking all traffic because Redis is down
// would turn an infrastructure blip into a full outage.
func (l *WindowLimiter) Check(ctx context.Context, clientKey, class string) Decision {
	class, cfg := l.classes.Resolve(class)
	now := l.now()

	decision := Decision{
		Class:    class,
		Strategy: StrategyWindow,
		Limit:    cfg.Limit,
	}

	key := limiterKey(class, clientKey)
	cutoff := now.Add(-cfg.Window)

	timestamps, err := l.store.TimestampsSince(ctx, key, cutoff)
	if err != nil {
		log.Warn("rate limit store unreachable, failing open", "key", key, "error", err)
		decision.Allowed = true
		decision.FailedOpen = true
		decision.Remaining = cfg.Limit - 1
		return decision
	}

	if len(timestamps) >= cfg.Limit {
		oldest := timestamps[0]
		decision.RetryAfter = oldest.Add(cfg.Window).Sub(now)
		if decision.RetryAfter < 0 {
			decision.RetryAfter = 0
		}
		decision.Reset = oldest.Add(cfg.Window)
		decision.Remaining = 0
		return decision
	}

	if err := l.store.RecordTimestamp(ctx, key, now, cfg.Window); err != nil {
		log.Warn("rate limit store unreachable, failing open", "key", key, "error", err)
		decision.FailedOpen = true
	}

	decision.Allowed = true
	decision.Remaining = cfg.Limit - len(timestamps) - 1
	decision.Reset = now.Add(cfg.Window)
	return decision
}
