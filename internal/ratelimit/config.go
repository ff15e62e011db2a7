// Package ratelimit implements the two admission strategies gating
// outbound scraping traffic: a sliding-window counter with hard cutoff
// and a token bucket for burst-tolerant shaping. Both keep their state in
// a store.CounterStore and fail open when the store misbehaves.
package ratelimit

import (
	"fmt"
	"time"
)

type Strategy string

const (
	StrategyWindow Strategy = "window"
	StrategyBucket Strategy = "bucket"
)

// DefaultClass is the fallback applied to operation classes without an
// explicit configuration.
const DefaultClass = "default"

// ClassConfig carries the limits for one operation class. Limit/Window
// drive the sliding window, Capacity/RefillRate the token bucket; only
// the pair matching Strategy is consulted.
type ClassConfig struct {
	Strategy   Strategy
	Limit      int
	Window     time.Duration
	Capacity   float64
	RefillRate float64 // tokens per second
}

// Classes is the closed mapping from operation-class name to its limits.
// Lookup is exact match with a "default" fallback; there is deliberately
// no pattern or substring matching.
type Classes map[string]ClassConfig

// DefaultClasses mirrors the operation classes the platform ships with.
func DefaultClasses() Classes {
	return Classes{
		"investigations": {Strategy: StrategyWindow, Limit: 10, Window: time.Minute},
		"exports":        {Strategy: StrategyWindow, Limit: 5, Window: time.Minute},
		"social_media":   {Strategy: StrategyBucket, Capacity: 5, RefillRate: 1},
		DefaultClass:     {Strategy: StrategyWindow, Limit: 100, Window: time.Minute},
	}
}

// Resolve returns the effective class name and its configuration, falling
// back to the default class for unknown names.
func (c Classes) Resolve(name string) (string, ClassConfig) {
	if cfg, ok := c[name]; ok {
		return name, cfg
	}
	return DefaultClass, c[DefaultClass]
}

// Validate rejects configurations the limiters cannot enforce.
func (c Classes) Validate() error {
	if _, ok := c[DefaultClass]; !ok {
		return fmt.Errorf("operation classes must define %q", DefaultClass)
	}
	for name, cfg := range c {
		switch cfg.Strategy {
		case StrategyWindow:
			if cfg.Limit <= 0 || cfg.Window <= 0 {
				return fmt.Errorf("class %q: window strategy needs positive limit and window", name)
			}
		case StrategyBucket:
			if cfg.Capacity < 1 || cfg.RefillRate <= 0 {
				return fmt.Errorf("class %q: bucket strategy needs capacity >= 1 and positive refill rate", name)
			}
		default:
			return fmt.Errorf("class %q: unknown strategy %q", name, cfg.Strategy)
		}
	}
	return nil
}

func limiterKey(class, clientKey string) string {
	return class + ":" + clientKey
}
