package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestClasses_ResolveExactAndFallback(t *testing.T) {
	classes := DefaultClasses()

	name, cfg := classes.Resolve("exports")
	if name != "exports" {
		t.Fatalf("resolved name = %q, want exports", name)
	}
	if cfg.Limit != 5 {
		t.Fatalf("exports limit = %d, want 5", cfg.Limit)
	}

	// No substring matching: "exports_v2" is not "exports".
	name, _ = classes.Resolve("exports_v2")
	if name != DefaultClass {
		t.Fatalf("resolved name = %q, want %q", name, DefaultClass)
	}
}

func TestClasses_Validate(t *testing.T) {
	if err := DefaultClasses().Validate(); err != nil {
		t.Fatalf("default classes should validate: %v", err)
	}

	missingDefault := Classes{
		"exports": {Strategy: StrategyWindow, Limit: 5, Window: time.Minute},
	}
	if err := missingDefault.Validate(); err == nil {
		t.Fatal("classes without a default must not validate")
	}

	badWindow := DefaultClasses()
	badWindow["exports"] = ClassConfig{Strategy: StrategyWindow, Limit: 0, Window: time.Minute}
	if err := badWindow.Validate(); err == nil {
		t.Fatal("window class with zero limit must not validate")
	}

	badBucket := DefaultClasses()
	badBucket["social_media"] = ClassConfig{Strategy: StrategyBucket, Capacity: 0.5, RefillRate: 1}
	if err := badBucket.Validate(); err == nil {
		t.Fatal("bucket class with capacity < 1 must not validate")
	}

	badStrategy := DefaultClasses()
	badStrategy["exports"] = ClassConfig{Strategy: "leaky", Limit: 5, Window: time.Minute}
	if err := badStrategy.Validate(); err == nil {
		t.Fatal("unknown strategy must not validate")
	}
}

func TestDecision_ApplyHeaders(t *testing.T) {
	allowed := Decision{
		Allowed:   true,
		Limit:     10,
		Remaining: 4,
		Reset:     time.Unix(1700000000, 0),
	}

	header := make(http.Header)
	allowed.ApplyHeaders(header)

	if got := header.Get("X-RateLimit-Limit"); got != "10" {
		t.Fatalf("limit header = %q, want 10", got)
	}
	if got := header.Get("X-RateLimit-Remaining"); got != "4" {
		t.Fatalf("remaining header = %q, want 4", got)
	}
	if got := header.Get("X-RateLimit-Reset"); got != "1700000000" {
		t.Fatalf("reset header = %q, want 1700000000", got)
	}
	if got := header.Get("Retry-After"); got != "" {
		t.Fatal("allowed decisions must not set Retry-After")
	}

	denied := Decision{
		Allowed:    false,
		Limit:      10,
		RetryAfter: 1500 * time.Millisecond,
	}
	header = make(http.Header)
	denied.ApplyHeaders(header)

	// Fractional waits round up so clients never retry early.
	if got := header.Get("Retry-After"); got != "2" {
		t.Fatalf("retry-after header = %q, want 2", got)
	}
}
