// Package proxy manages the egress proxy pool: rotation-based selection
// with health filtering, liveness probing, and pool persistence.
package proxy

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
)

// Config tunes pool behavior. Zero values fall back to defaults.
type Config struct {
	// MaxFailures removes an entry from rotation once its failure
	// counter reaches this value.
	MaxFailures uint64

	// MinSuccessRate filters entries whose observed success ratio drops
	// below it. Entries with no history are exempt so fresh proxies get
	// a chance to prove themselves.
	MinSuccessRate float64

	// RotationInterval is the minimum time between cursor advances.
	// Within one interval every selection reuses the same cursor slot.
	RotationInterval time.Duration

	// ProbeURL is the echo endpoint connectivity probes hit.
	ProbeURL string

	// ProbeTimeout bounds a single probe.
	ProbeTimeout time.Duration
}

const (
	defaultMaxFailures      = 5
	defaultMinSuccessRate   = 0.5
	defaultRotationInterval = 30 * time.Second
	defaultProbeURL         = "https://httpbin.org/ip"
	defaultProbeTimeout     = 10 * time.Second
)

func (cfg Config) withDefaults() Config {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.MinSuccessRate <= 0 {
		cfg.MinSuccessRate = defaultMinSuccessRate
	}
	if cfg.RotationInterval <= 0 {
		cfg.RotationInterval = defaultRotationInterval
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = defaultProbeURL
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	return cfg
}

// Registry is the authoritative owner of every known ProxyEntry. The
// mutex covers pool shape and cursor; per-entry counters are atomic and
// update lock-free.
type Registry struct {
	cfg Config
	geo *GeoResolver

	mu           sync.Mutex
	entries      []*domain.ProxyEntry
	cursor       int
	lastRotation time.Time

	now func() time.Time
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
}

// SetGeoResolver attaches an optional country-tag resolver consulted
// when entries arrive without one.
func (r *Registry) SetGeoResolver(geo *GeoResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.geo = geo
}

// Add appends an entry to the pool. Duplicate endpoints are not
// rejected; callers importing bulk lists should dedupe first.
func (r *Registry) Add(entry *domain.ProxyEntry) {
	if entry == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.Country == "" && r.geo != nil {
		entry.Country = r.geo.Country(entry.Host)
	}
	r.entries = append(r.entries, entry)
}

// Remove drops the first entry matching key and keeps the cursor on a
// valid slot.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.entries {
		if entry.Key() != key {
			continue
		}
		r.entries = append(r.entries[:i], r.entries[i+1:]...)
		if len(r.entries) == 0 {
			r.cursor = 0
		} else {
			if i < r.cursor {
				r.cursor--
			}
			r.cursor %= len(r.entries)
		}
		return true
	}
	return false
}

// Clear empties the pool and resets the rotation cursor.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.cursor = 0
	r.lastRotation = time.Time{}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns the pool slice as-is for reporting. Entries are
// shared pointers; counters read through them stay live.
func (r *Registry) Snapshot() []*domain.ProxyEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ProxyEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Next returns the proxy the next request should use, or ok=false when
// nothing in the pool qualifies. Absence of a proxy is a normal outcome
// here, never an error.
func (r *Registry) Next() (*domain.ProxyEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return nil, false
	}

	now := r.now()
	if now.Sub(r.lastRotation) >= r.cfg.RotationInterval {
		r.cursor = (r.cursor + 1) % len(r.entries)
		r.lastRotation = now
	}

	for i := 0; i < len(r.entries); i++ {
		entry := r.entries[(r.cursor+i)%len(r.entries)]
		if !r.usable(entry) {
			continue
		}
		entry.StampLastUsed(now)
		return entry, true
	}

	log.Debug("proxy pool exhausted", "size", len(r.entries))
	return nil, false
}

// usable is the single authoritative health predicate. The advisory
// is_active probe flag deliberately plays no part here.
func (r *Registry) usable(entry *domain.ProxyEntry) bool {
	if entry.FailureCount() >= r.cfg.MaxFailures {
		return false
	}
	if rate, ok := entry.SuccessRate(); ok && rate < r.cfg.MinSuccessRate {
		return false
	}
	return true
}

func (r *Registry) MarkSuccess(entry *domain.ProxyEntry) {
	if entry == nil {
		return
	}
	entry.MarkSuccess()
}

func (r *Registry) MarkFailure(entry *domain.ProxyEntry) {
	if entry == nil {
		return
	}
	entry.MarkFailure()
}

// Usable reports how many pool entries currently pass the health gate.
func (r *Registry) Usable() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, entry := range r.entries {
		if r.usable(entry) {
			count++
		}
	}
	return count
}
