// Package metrics exposes the service's Prometheus collectors. All
// collectors are registered on the default registry and served through
// promhttp by the metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts TTL cache reads served from a live entry.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corrpulse",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Number of cache lookups served without invoking a loader.",
	})

	// CacheMisses counts TTL cache reads that had to run a loader.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corrpulse",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Number of cache lookups that invoked a loader.",
	})

	// ProviderRequests counts outbound provider requests by source and
	// outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corrpulse",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Outbound market data requests by source and outcome.",
	}, []string{"source", "outcome"})

	// FetchRetries counts retried outbound requests.
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corrpulse",
		Subsystem: "fetch",
		Name:      "retries_total",
		Help:      "Number of retried outbound HTTP requests.",
	})

	// UniverseFallbacks counts universe resolutions by provenance.
	UniverseFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corrpulse",
		Subsystem: "universe",
		Name:      "resolutions_total",
		Help:      "Universe resolutions by winning source.",
	}, []string{"source"})

	// DroppedSymbols counts symbols excluded from correlation batches.
	DroppedSymbols = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corrpulse",
		Subsystem: "correlation",
		Name:      "dropped_symbols_total",
		Help:      "Symbols dropped from correlation requests after acquisition failures.",
	})
)

// Outcome labels for ProviderRequests.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDenied   = "denied"
	OutcomeFallback = "fallback"
)
