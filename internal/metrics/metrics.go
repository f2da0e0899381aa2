// Package metrics provides Prometheus metrics for the shuttle query engine.
// The enclosing service decides whether and where to expose the registry;
// the core only records.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance.
	Registry *prometheus.Registry

	// QueriesTotal counts facade operations by name.
	QueriesTotal *prometheus.CounterVec
	// QueryDuration tracks facade operation latency by name.
	QueryDuration *prometheus.HistogramVec

	// EndpointCacheBuilds counts endpoint-cluster cache builds.
	EndpointCacheBuilds prometheus.Counter
	// EndpointCacheHits counts cache fast-path hits.
	EndpointCacheHits prometheus.Counter
}

// New creates and registers all engine metrics with a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttlecore_queries_total",
			Help: "Total number of engine queries by operation",
		},
		[]string{"op"},
	)

	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shuttlecore_query_duration_seconds",
			Help:    "Engine query latency distribution by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	endpointCacheBuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shuttlecore_endpoint_cache_builds_total",
		Help: "Number of endpoint-cluster cache builds performed",
	})

	endpointCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shuttlecore_endpoint_cache_hits_total",
		Help: "Number of endpoint-cluster cache fast-path hits",
	})

	registry.MustRegister(queriesTotal, queryDuration, endpointCacheBuilds, endpointCacheHits)

	return &Metrics{
		Registry:            registry,
		QueriesTotal:        queriesTotal,
		QueryDuration:       queryDuration,
		EndpointCacheBuilds: endpointCacheBuilds,
		EndpointCacheHits:   endpointCacheHits,
	}
}

// ObserveQuery records one facade operation with its duration.
func (m *Metrics) ObserveQuery(op string, start time.Time) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(op).Inc()
	m.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
