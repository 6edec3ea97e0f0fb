package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DocumentsFetched counts documents returned by feed adapters
	DocumentsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvefuse",
			Name:      "documents_fetched_total",
			Help:      "Total number of documents fetched from upstream feeds",
		},
		[]string{"source"},
	)

	// DocumentsMerged counts documents folded into unified records
	DocumentsMerged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvefuse",
			Name:      "documents_merged_total",
			Help:      "Total number of documents merged into unified records",
		},
		[]string{"source"},
	)

	// DocumentsDiverted counts documents sent to unresolved diagnostics
	DocumentsDiverted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvefuse",
			Name:      "documents_diverted_total",
			Help:      "Total number of documents diverted because no canonical key could be resolved",
		},
		[]string{"source"},
	)

	// FetchErrors counts feeds that failed entirely during a run
	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvefuse",
			Name:      "fetch_errors_total",
			Help:      "Total number of feed fetches that failed entirely",
		},
		[]string{"source"},
	)

	// PassFailures counts enrichment passes that did not complete
	PassFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvefuse",
			Name:      "enrichment_pass_failures_total",
			Help:      "Total number of enrichment passes that failed",
		},
		[]string{"pass"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(DocumentsFetched)
		prometheus.DefaultRegisterer.Register(DocumentsMerged)
		prometheus.DefaultRegisterer.Register(DocumentsDiverted)
		prometheus.DefaultRegisterer.Register(FetchErrors)
		prometheus.DefaultRegisterer.Register(PassFailures)
	})
}
