package ratelimit

import (
	"context"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/store"
)

// Admission routes each check to the strategy its operation class is
// configured for. Both limiters share one counter store.
type Admission struct {
	classes Classes
	window  *WindowLimiter
	bucket  *BucketLimiter
}

func NewAdmission(counterStore store.CounterStore, classes Classes) *Admission {
	return &Admission{
		classes: classes,
		window:  NewWindowLimiter(counterStore, classes),
		bucket:  NewBucketLimiter(counterStore, classes),
	}
}

func (a *Admission) Check(ctx context.Context, clientKey, class string) Decision {
	_, cfg := a.classes.Resolve(class)
	if cfg.Strategy == StrategyBucket {
		return a.bucket.Check(ctx, clientKey, class)
	}
	return a.window.Check(ctx, clientKey, class)
}
