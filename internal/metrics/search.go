package metrics

import "github.com/prometheus/client_golang/prometheus"

// Multisearch Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multidex",
			Name:      "search_requests_total",
			Help:      "Total number of multisearch requests",
		},
		[]string{"status"}, // "ok" / "degraded" / "error"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "multidex",
			Name:      "search_duration_seconds",
			Help:      "Multisearch request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SearchResourcesPerRequest = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "multidex",
			Name:      "search_resources_per_request",
			Help:      "Number of resources scattered per multisearch request",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	SearchResourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multidex",
			Name:      "search_resource_failures_total",
			Help:      "Per-resource failures degraded out of responses",
		},
		[]string{"reason"}, // "timeout" / "unavailable"
	)

	SlugsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "multidex",
			Name:      "slugs_created_total",
			Help:      "Slugs minted, by form",
		},
		[]string{"form"}, // "pretty" / "uuid"
	)
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResourcesPerRequest)
	prometheus.MustRegister(SearchResourceFailuresTotal)
	prometheus.MustRegister(SlugsCreatedTotal)
}
