// Package maintenance runs the periodic pool upkeep loop: probe every
// proxy, persist the pool with fresh counters, and archive a health
// snapshot when the archive database is wired.
package maintenance

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/database"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/metrics"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/proxy"
)

type PoolMaintainer struct {
	registry *proxy.Registry
	poolFile string
	interval time.Duration
	metrics  *metrics.Metrics
	archive  bool
}

func NewPoolMaintainer(registry *proxy.Registry, poolFile string, interval time.Duration, m *metrics.Metrics, archive bool) *PoolMaintainer {
	return &PoolMaintainer{
		registry: registry,
		poolFile: poolFile,
		interval: interval,
		metrics:  m,
		archive:  archive,
	}
}

// Run blocks until ctx is cancelled and performs one sweep per interval.
func (pm *PoolMaintainer) Run(ctx context.Context) {
	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.sweep(ctx)
		}
	}
}

// Launch starts Run on its own goroutine and returns its cancel func.
func (pm *PoolMaintainer) Launch(parent context.Context) context.CancelFunc {
	ctx, cancel := context.WithCancel(parent)
	go pm.Run(ctx)
	return cancel
}

func (pm *PoolMaintainer) sweep(ctx context.Context) {
	healthy, unhealthy := pm.registry.ProbeAll(ctx)
	pm.metrics.PoolGauges(pm.registry.Len(), pm.registry.Usable())

	if pm.poolFile != "" {
		if err := pm.registry.Save(pm.poolFile); err != nil {
			log.Error("pool maintenance: save failed", "error", err)
		}
	}

	if pm.archive {
		if err := database.ArchiveSnapshots(pm.registry.Snapshot()); err != nil {
			log.Error("pool maintenance: archive failed", "error", err)
		}
	}

	log.Debug("pool maintenance sweep done", "healthy", healthy, "unhealthy", unhealthy)
}
