package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests tracks API requests per method and status class
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stashsync_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "status_class"},
	)

	// APIRetries tracks retried attempts per error kind
	APIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stashsync_api_retries_total",
			Help: "Total number of retried API attempts",
		},
		[]string{"kind"},
	)

	// APILatency tracks API request latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stashsync_api_request_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Mutations tracks optimistic mutations per name and outcome
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stashsync_mutations_total",
			Help: "Total number of optimistic mutations",
		},
		[]string{"name", "outcome"},
	)

	// Rollbacks tracks cache rollbacks after failed mutations
	Rollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stashsync_rollbacks_total",
			Help: "Total number of cache rollbacks",
		},
	)

	// IntentQueueDepth tracks entries waiting in the intent queue
	IntentQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stashsync_intent_queue_depth",
			Help: "Number of entries waiting in the intent queue",
		},
	)

	// CacheRegions tracks the number of live cache regions
	CacheRegions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stashsync_cache_regions",
			Help: "Number of live cache regions",
		},
	)
)
