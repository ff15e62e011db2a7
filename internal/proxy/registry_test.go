package proxy

import (
	"testing"
	"time"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
)

func mustEntry(t *testing.T, host string) *domain.ProxyEntry {
	t.Helper()
	entry, err := domain.NewProxyEntry(host, 8080, domain.ProtocolHTTP)
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}
	return entry
}

func newTestRegistry(cfg Config) *Registry {
	return NewRegistry(cfg)
}

func TestRegistry_NextOnEmptyPool(t *testing.T) {
	reg := newTestRegistry(Config{})

	if entry, ok := reg.Next(); ok || entry != nil {
		t.Fatal("empty pool must report no proxy available, not panic or error")
	}
}

func TestRegistry_NextSkipsEntriesAtMaxFailures(t *testing.T) {
	reg := newTestRegistry(Config{MaxFailures: 3, RotationInterval: time.Hour})

	bad := mustEntry(t, "10.0.0.1")
	good := mustEntry(t, "10.0.0.2")
	reg.Add(bad)
	reg.Add(good)

	for i := 0; i < 3; i++ {
		bad.MarkFailure()
	}

	for i := 0; i < 10; i++ {
		entry, ok := reg.Next()
		if !ok {
			t.Fatal("a qualifying proxy exists, selection must find it")
		}
		if entry == bad {
			t.Fatal("entry at max failures must never be selected")
		}
	}
}

func TestRegistry_NextFiltersBySuccessRate(t *testing.T) {
	reg := newTestRegistry(Config{MaxFailures: 100, MinSuccessRate: 0.5, RotationInterval: time.Hour})

	poor := mustEntry(t, "10.0.0.1")
	fresh := mustEntry(t, "10.0.0.2")
	reg.Add(poor)
	reg.Add(fresh)

	// 1 success, 4 failures: 20% success rate, below the 50% floor.
	poor.MarkSuccess()
	for i := 0; i < 4; i++ {
		poor.MarkFailure()
	}

	for i := 0; i < 10; i++ {
		entry, ok := reg.Next()
		if !ok {
			t.Fatal("the fresh proxy should qualify")
		}
		if entry == poor {
			t.Fatal("entry below the success-rate floor must not be selected")
		}
	}
}

func TestRegistry_ZeroHistoryEntriesPassRateFilter(t *testing.T) {
	reg := newTestRegistry(Config{MaxFailures: 5, MinSuccessRate: 0.99, RotationInterval: time.Hour})

	fresh := mustEntry(t, "10.0.0.1")
	reg.Add(fresh)

	// A brand-new proxy has no history, so the success-rate filter must
	// not judge it even at a 99% floor.
	entry, ok := reg.Next()
	if !ok || entry != fresh {
		t.Fatal("zero-history entry should be selectable")
	}
}

func TestRegistry_NextReturnsNoneWhenAllFiltered(t *testing.T) {
	reg := newTestRegistry(Config{MaxFailures: 1})

	a := mustEntry(t, "10.0.0.1")
	b := mustEntry(t, "10.0.0.2")
	reg.Add(a)
	reg.Add(b)
	a.MarkFailure()
	b.MarkFailure()

	if _, ok := reg.Next(); ok {
		t.Fatal("full-pool filter must report none available")
	}
}

func TestRegistry_CursorHoldsWithinRotationInterval(t *testing.T) {
	reg := newTestRegistry(Config{RotationInterval: 30 * time.Second})

	a := mustEntry(t, "10.0.0.1")
	b := mustEntry(t, "10.0.0.2")
	c := mustEntry(t, "10.0.0.3")
	reg.Add(a)
	reg.Add(b)
	reg.Add(c)

	now := time.Now()
	reg.now = func() time.Time { return now }

	first, ok := reg.Next()
	if !ok {
		t.Fatal("selection failed")
	}

	// Within the interval the cursor does not advance.
	now = now.Add(10 * time.Second)
	second, _ := reg.Next()
	if second != first {
		t.Fatal("cursor must hold within the rotation interval")
	}

	// After the interval it moves to the next slot.
	now = now.Add(30 * time.Second)
	third, _ := reg.Next()
	if third == first {
		t.Fatal("cursor must advance after the rotation interval")
	}
}

func TestRegistry_NextStampsLastUsed(t *testing.T) {
	reg := newTestRegistry(Config{})

	entry := mustEntry(t, "10.0.0.1")
	reg.Add(entry)

	now := time.Now()
	reg.now = func() time.Time { return now }

	selected, ok := reg.Next()
	if !ok {
		t.Fatal("selection failed")
	}
	if !selected.LastUsed().Equal(now) {
		t.Fatalf("last used = %v, want stamped to %v", selected.LastUsed(), now)
	}
}

func TestRegistry_RemoveKeepsCursorValid(t *testing.T) {
	reg := newTestRegistry(Config{RotationInterval: time.Nanosecond})

	entries := []*domain.ProxyEntry{
		mustEntry(t, "10.0.0.1"),
		mustEntry(t, "10.0.0.2"),
		mustEntry(t, "10.0.0.3"),
	}
	for _, entry := range entries {
		reg.Add(entry)
	}

	// Walk the cursor forward, then shrink the pool underneath it.
	for i := 0; i < 3; i++ {
		if _, ok := reg.Next(); !ok {
			t.Fatal("selection failed")
		}
		time.Sleep(time.Millisecond)
	}

	if !reg.Remove(entries[2].Key()) {
		t.Fatal("remove should find the entry")
	}
	if !reg.Remove(entries[0].Key()) {
		t.Fatal("remove should find the entry")
	}
	if reg.Remove("http://10.9.9.9:1") {
		t.Fatal("remove of unknown key should report false")
	}

	if entry, ok := reg.Next(); !ok || entry != entries[1] {
		t.Fatal("selection after removals should return the remaining entry")
	}

	reg.Clear()
	if reg.Len() != 0 {
		t.Fatalf("pool size after clear = %d, want 0", reg.Len())
	}
	if _, ok := reg.Next(); ok {
		t.Fatal("cleared pool must report none available")
	}
}

func TestRegistry_UsableCountsHealthGate(t *testing.T) {
	reg := newTestRegistry(Config{MaxFailures: 2})

	a := mustEntry(t, "10.0.0.1")
	b := mustEntry(t, "10.0.0.2")
	reg.Add(a)
	reg.Add(b)

	if got := reg.Usable(); got != 2 {
		t.Fatalf("usable = %d, want 2", got)
	}

	a.MarkFailure()
	a.MarkFailure()
	if got := reg.Usable(); got != 1 {
		t.Fatalf("usable = %d, want 1", got)
	}
}
