package proxy

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
)

const (
	probeConcurrency = 16
	// probesPerSecond paces full-pool sweeps so the health check does
	// not itself burst through the egress it is measuring.
	probesPerSecond = 20
)

// probeEntryFunc is swapped in tests so sweeps run without network.
var probeEntryFunc = probeEntry

// Probe runs one connectivity check through entry against the configured
// echo endpoint and folds the result into the health counters. A timeout
// or cancellation counts as a failure like any other transport error.
func (r *Registry) Probe(ctx context.Context, entry *domain.ProxyEntry) bool {
	if entry == nil {
		return false
	}

	ok := probeEntryFunc(ctx, entry, r.cfg.ProbeURL, r.cfg.ProbeTimeout)
	if ok {
		entry.MarkSuccess()
	} else {
		entry.MarkFailure()
	}
	return ok
}

// ProbeAll sweeps the whole pool with bounded concurrency. Entries that
// fail their probe get is_active flipped off as an advisory signal for
// operators; selection keeps using the counter-based gate.
func (r *Registry) ProbeAll(ctx context.Context) (healthy, unhealthy int) {
	entries := r.Snapshot()
	if len(entries) == 0 {
		return 0, 0
	}

	sem := semaphore.NewWeighted(probeConcurrency)
	limiter := rate.NewLimiter(rate.Limit(probesPerSecond), probeConcurrency)
	results := make(chan bool, len(entries))

	for _, entry := range entries {
		if err := limiter.Wait(ctx); err != nil {
			results <- false
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			results <- false
			continue
		}

		go func(entry *domain.ProxyEntry) {
			defer sem.Release(1)

			ok := r.Probe(ctx, entry)
			entry.SetActive(ok)
			if !ok {
				log.Debug("proxy probe failed", "proxy", entry.Address())
			}
			results <- ok
		}(entry)
	}

	for range entries {
		if <-results {
			healthy++
		} else {
			unhealthy++
		}
	}

	log.Info("proxy pool probed", "healthy", healthy, "unhealthy", unhealthy)
	return healthy, unhealthy
}

func probeEntry(ctx context.Context, entry *domain.ProxyEntry, probeURL string, timeout time.Duration) bool {
	client, err := ClientFor(entry, timeout)
	if err != nil {
		return false
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Connection", "close")

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
