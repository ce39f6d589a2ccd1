// Package metrics 定义服务的Prometheus指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 缓存指标
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinereads_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinereads_cache_misses_total",
			Help: "Total number of cache misses, including expired entries",
		},
		[]string{"cache_type"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinereads_cache_errors_total",
			Help: "Total number of cache I/O errors recovered locally",
		},
		[]string{"cache_type", "operation"},
	)

	CacheSweptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinereads_cache_swept_entries_total",
			Help: "Total number of expired entries removed by the background sweep",
		},
	)

	// 外部服务指标
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinereads_upstream_requests_total",
			Help: "Total number of calls to external services by outcome",
		},
		[]string{"service", "outcome"}, // outcome: success / error / auth_error / not_found / rejected
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinereads_upstream_duration_seconds",
			Help:    "Duration of external service calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"service"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinereads_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// 推荐流程指标
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinereads_recommendation_requests_total",
			Help: "Total number of recommendation pipeline invocations",
		},
		[]string{"mode", "cache"}, // mode: recommend / regenerate, cache: hit / miss
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinereads_recommendation_duration_seconds",
			Help:    "End-to-end duration of the recommendation pipeline",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	MoviesWithoutBooks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinereads_movies_without_books_total",
			Help: "Movies that produced an empty book list because the completion call failed",
		},
	)
)
