// Package metrics exposes Prometheus collectors for the traffic-control
// core: admission outcomes, breaker transitions and pool health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors. Construct exactly one per
// process; every method is safe to call on a nil receiver so tests can
// run without a registry.
type Metrics struct {
	admissionDecisions *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
	retryAttempts      prometheus.Counter
	poolSize           prometheus.Gauge
	poolUsable         prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		admissionDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traffic_admission_decisions_total",
				Help: "Admission decisions by operation class, strategy and outcome",
			},
			[]string{"class", "strategy", "outcome"},
		),
		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "traffic_breaker_state",
				Help: "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open)",
			},
			[]string{"dependency"},
		),
		retryAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "traffic_retry_attempts_total",
				Help: "Pipeline attempts that needed a retry",
			},
		),
		poolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "traffic_proxy_pool_size",
				Help: "Number of proxies in the pool",
			},
		),
		poolUsable: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "traffic_proxy_pool_usable",
				Help: "Number of proxies currently passing the health gate",
			},
		),
	}
}

func (m *Metrics) AdmissionDecision(class, strategy string, allowed, failedOpen bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	switch {
	case allowed && failedOpen:
		outcome = "failed_open"
	case allowed:
		outcome = "allowed"
	}
	m.admissionDecisions.WithLabelValues(class, strategy, outcome).Inc()
}

func (m *Metrics) BreakerState(dependency string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(dependency).Set(state)
}

func (m *Metrics) RetryAttempt() {
	if m == nil {
		return
	}
	m.retryAttempts.Inc()
}

func (m *Metrics) PoolGauges(size, usable int) {
	if m == nil {
		return
	}
	m.poolSize.Set(float64(size))
	m.poolUsable.Set(float64(usable))
}
