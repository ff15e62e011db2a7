// Package breaker isolates failing upstream dependencies behind a
// CLOSED/OPEN/HALF_OPEN state machine, one breaker per logical target
// platform.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
)

type State uint8

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	DefaultFailureThreshold = 5
	DefaultTimeout          = 60 * time.Second
)

// Breaker guards one dependency. The mutex covers only state-machine
// bookkeeping; the wrapped operation runs outside the lock so slow calls
// never serialize behind each other.
type Breaker struct {
	name             string
	failureThreshold int
	timeout          time.Duration

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
	probing         bool

	now func() time.Time
}

func New(name string, failureThreshold int, timeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		timeout:          timeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Do runs op under the breaker. While OPEN it rejects immediately with
// domain.ErrCircuitOpen until the timeout elapses, then admits a single
// trial call in HALF_OPEN.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := op(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailureTime) < b.timeout {
			return domain.ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		log.Info("circuit breaker probing", "dependency", b.name)
		return nil
	default: // StateHalfOpen
		// One trial call at a time; everyone else keeps seeing open.
		if b.probing {
			return domain.ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		if err != nil {
			b.state = StateOpen
			b.lastFailureTime = b.now()
			log.Warn("circuit breaker reopened", "dependency", b.name, "error", err)
			return
		}
		b.state = StateClosed
		b.failureCount = 0
		log.Info("circuit breaker closed", "dependency", b.name)
		return
	}

	if err == nil {
		b.failureCount = 0
		return
	}

	b.failureCount++
	if b.state == StateClosed && b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		b.lastFailureTime = b.now()
		log.Warn("circuit breaker opened", "dependency", b.name, "failures", b.failureCount)
	}
}
