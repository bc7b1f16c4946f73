package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tether"
)

var (
	connectDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

	// Connector Metrics
	ConnectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "connect_duration_seconds",
		Help:      "Time taken for a provider handshake to complete.",
		Buckets:   connectDurationBuckets,
	}, []string{"connector_type", "resource_type"})

	ConnectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connect_total",
		Help:      "Count of connect calls.",
	}, []string{"connector_type", "resource_type", "status"})

	VerifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verify_total",
		Help:      "Count of verify calls by outcome.",
	}, []string{"connector_type", "resource_type", "outcome"})

	// Client Cache Metrics
	ClientCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_cache_hits_total",
		Help:      "Count of connect calls served from the client cache.",
	}, []string{"connector_type"})

	ClientCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_cache_misses_total",
		Help:      "Count of connect calls that required a fresh handshake.",
	}, []string{"connector_type"})

	ClientCacheEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_cache_evictions_total",
		Help:      "Count of cached clients evicted after a credential change or disconnect.",
	}, []string{"connector_type", "reason"})

	// Local Tool Metrics
	LocalLoginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "local_login_total",
		Help:      "Count of local client configuration attempts.",
	}, []string{"connector_type", "status"})
)
