// Package metrics declares the Prometheus collectors shared by the catalog
// packages. They register on the default registry at init time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// RefreshesTotal counts catalog refresh attempts.
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartplaces_refreshes_total",
			Help: "Total number of catalog refresh attempts",
		},
		[]string{"result"}, // result: replaced, partial, failed, skipped
	)

	// RefreshDuration measures a full catalog refresh in seconds.
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smartplaces_refresh_duration_seconds",
			Help:    "Catalog refresh duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// CollectorRuns counts collector invocations by outcome.
	CollectorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartplaces_collector_runs_total",
			Help: "Total number of collector runs",
		},
		[]string{"collector", "status"}, // status: success, failed, timeout, panic
	)

	// CollectorRecords tracks how many raw records each collector produced last.
	CollectorRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartplaces_collector_records",
			Help: "Raw records returned by the last run of each collector",
		},
		[]string{"collector"},
	)

	// RecordsRejected counts raw records the normalizer could not use.
	RecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartplaces_records_rejected_total",
			Help: "Raw records rejected during normalization",
		},
		[]string{"collector", "reason"},
	)

	// CollectionSize tracks the number of records in a collection snapshot.
	CollectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartplaces_collection_size",
			Help: "Number of records in the cached collection snapshot",
		},
		[]string{"cache"},
	)

	// QueryCacheRequests counts query cache lookups by outcome.
	QueryCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartplaces_query_cache_requests_total",
			Help: "Query cache lookups",
		},
		[]string{"cache", "outcome"}, // outcome: hit, miss, expired
	)

	// SearchRequests counts outbound web search calls.
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartplaces_search_requests_total",
			Help: "Outbound web search requests",
		},
		[]string{"status"}, // status: success, failed, skipped
	)
)
