// Package janitor runs the single background task that keeps the
// reference cache within its TTL window (§4.12), the same
// ticker-driven sweep shape as a sliding-window rate limiter's cleanup
// goroutine. It sweeps only the reference cache: it does no work for the
// log sink, which writes each record as it is dequeued.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/relayguard/relayguard/internal/metrics"
)

// RefCache is the subset of refcache.Cache the janitor needs.
type RefCache interface {
	EvictExpired(now time.Time) int
	Len() int
}

// Janitor ticks at a configured interval, evicting expired reference
// cache entries.
type Janitor struct {
	refs     RefCache
	interval time.Duration
	logger   *slog.Logger
}

// New builds a janitor with the given sweep interval.
func New(refs RefCache, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{refs: refs, interval: interval, logger: logger}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := j.refs.EvictExpired(now); removed > 0 {
				j.logger.Debug("janitor swept reference cache", "removed", removed)
			}
			metrics.ReferenceCacheSize.Set(float64(j.refs.Len()))
		}
	}
}
