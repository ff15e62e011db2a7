package breaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per dependency name so every caller
// hitting the same target platform shares failure history.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	failureThreshold int
	timeout          time.Duration
}

func NewRegistry(failureThreshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		timeout:          timeout,
	}
}

func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[name]
	if !ok {
		b = New(name, r.failureThreshold, r.timeout)
		r.breakers[name] = b
	}
	return b
}

// Snapshot returns the current state of every known breaker.
func (r *Registry) Snapshot() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}
