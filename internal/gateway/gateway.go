// Package gateway is the decision layer every outbound scraping request
// passes through: rate-limit admission, proxy selection, circuit-breaker
// isolation and retry with backoff. Acquire and Report are the narrow
// calls; Do runs the whole pipeline for in-process callers.
package gateway

import (
	"context"
	"time"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/breaker"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/metrics"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/proxy"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/ratelimit"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/recovery"
)

// Channel is a proxy-routed path for one outbound call. Entry is nil for
// direct (proxy-less) channels.
type Channel struct {
	Entry    *domain.ProxyEntry
	Decision ratelimit.Decision
}

// Request identifies one admission attempt.
type Request struct {
	// ClientKey identifies who is asking, typically an investigation or
	// worker identity.
	ClientKey string

	// Class is the operation class carrying the rate-limit config.
	Class string

	// Dependency names the target platform for breaker scoping. Falls
	// back to Class when empty.
	Dependency string
}

func (req Request) dependency() string {
	if req.Dependency != "" {
		return req.Dependency
	}
	return req.Class
}

type Config struct {
	MaxRetries int
	BaseDelay  time.Duration

	// AllowDirect lets Acquire hand out a proxy-less channel when the
	// pool is exhausted instead of failing the request.
	AllowDirect bool
}

type Gateway struct {
	registry  *proxy.Registry
	admission *ratelimit.Admission
	breakers  *breaker.Registry
	metrics   *metrics.Metrics
	cfg       Config
}

func New(registry *proxy.Registry, admission *ratelimit.Admission, breakers *breaker.Registry, m *metrics.Metrics, cfg Config) *Gateway {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = recovery.DefaultBaseDelay
	}
	return &Gateway{
		registry:  registry,
		admission: admission,
		breakers:  breakers,
		metrics:   m,
		cfg:       cfg,
	}
}

// Acquire runs admission control for one request: rate limiter first,
// then proxy selection. A denial returns a RateLimitError carrying the
// wait, alongside a channel holding the decision metadata for response
// headers; an exhausted pool returns ErrNoProxyAvailable unless direct
// egress is allowed.
func (g *Gateway) Acquire(ctx context.Context, req Request) (*Channel, error) {
	decision := g.admission.Check(ctx, req.ClientKey, req.Class)
	g.metrics.AdmissionDecision(decision.Class, string(decision.Strategy), decision.Allowed, decision.FailedOpen)

	if !decision.Allowed {
		return &Channel{Decision: decision}, &domain.RateLimitError{Class: decision.Class, RetryAfter: decision.RetryAfter}
	}

	return g.selectChannel(decision)
}

func (g *Gateway) selectChannel(decision ratelimit.Decision) (*Channel, error) {
	entry, ok := g.registry.Next()
	if !ok && !g.cfg.AllowDirect {
		return nil, domain.ErrNoProxyAvailable
	}

	g.metrics.PoolGauges(g.registry.Len(), g.registry.Usable())
	return &Channel{Entry: entry, Decision: decision}, nil
}

// Report feeds the outcome of a call made through ch back into proxy
// health accounting.
func (g *Gateway) Report(ch *Channel, err error) {
	if ch == nil || ch.Entry == nil {
		return
	}
	if err != nil {
		g.registry.MarkFailure(ch.Entry)
	} else {
		g.registry.MarkSuccess(ch.Entry)
	}
}

// Do runs op through the full pipeline. The recovery manager is the
// outermost wrapper; every attempt re-checks the limiter and acquires a
// fresh channel, and the breaker for the request's dependency wraps the
// selection plus the call itself. The terminal error after retry
// exhaustion is the last failure, unchanged.
func (g *Gateway) Do(ctx context.Context, req Request, op func(ctx context.Context, ch *Channel) error) error {
	b := g.breakers.Get(req.dependency())

	attempt := 0
	return recovery.Retry(ctx, func(ctx context.Context) error {
		if attempt > 0 {
			g.metrics.RetryAttempt()
		}
		attempt++

		decision := g.admission.Check(ctx, req.ClientKey, req.Class)
		g.metrics.AdmissionDecision(decision.Class, string(decision.Strategy), decision.Allowed, decision.FailedOpen)
		if !decision.Allowed {
			return &domain.RateLimitError{Class: decision.Class, RetryAfter: decision.RetryAfter}
		}

		err := b.Do(ctx, func(ctx context.Context) error {
			ch, err := g.selectChannel(decision)
			if err != nil {
				return err
			}

			err = op(ctx, ch)
			g.Report(ch, err)
			return err
		})

		g.metrics.BreakerState(b.Name(), float64(b.State()))
		return err
	}, g.cfg.MaxRetries, g.cfg.BaseDelay)
}
