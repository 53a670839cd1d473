// Package metrics holds the process-wide Prometheus collectors and
// assembles the registry the admin /metrics endpoint serves. Collectors
// that belong to another package's concern, like internal/logsink's
// dropped-count counter, are defined there and registered here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relayguard/relayguard/internal/logsink"
)

var (
	// EventsForwarded counts accepted publications forwarded upstream.
	EventsForwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relayguard_events_forwarded_total",
		Help: "Event publications forwarded to the upstream relay.",
	})

	// EventsRejected counts rejected publications, labeled by reason.
	EventsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayguard_events_rejected_total",
		Help: "Event publications rejected by the policy pipeline, by reason.",
	}, []string{"reason"})

	// SessionsActive tracks the current count of Ready sessions.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relayguard_sessions_active",
		Help: "Client sessions currently in the Ready state.",
	})

	// ReferenceCacheSize tracks the current reference cache entry count.
	ReferenceCacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relayguard_refcache_size",
		Help: "Current entry count in the reference cache.",
	})
)

// Registry builds a Prometheus registry with every collector this
// package defines, plus internal/logsink.DroppedTotal so the /metrics
// endpoint surfaces the log queue's drop count per §5.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(EventsForwarded, EventsRejected, SessionsActive, ReferenceCacheSize, logsink.DroppedTotal)
	return reg
}
