package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts read-through lookups by collection and outcome (hit|miss_populated|miss_degraded).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_requests_total",
			Help: "Total number of read-through cache lookups",
		},
		[]string{"collection", "outcome"},
	)

	// CacheInvalidations counts collection invalidations by result (ok|error).
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_invalidations_total",
			Help: "Total number of cache invalidations",
		},
		[]string{"collection", "result"},
	)

	// CacheLoadDuration measures how long collection loaders take on a miss.
	CacheLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_cache_load_seconds",
			Help:    "Loader latency on cache miss",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	// AuthAttempts records authentication attempts by flow and result (ok or a failure reason).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"action", "result"},
	)

	// Uploads counts blob uploads by media kind and result.
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_uploads_total",
			Help: "Total number of uploaded media files",
		},
		[]string{"kind", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// MaintenanceRuns counts background maintenance job runs by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)
)
