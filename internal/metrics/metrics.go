package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch counters, labelled by binding name
	DispatchMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_matched_total",
			Help: "Total number of dispatch passes that ran a binding",
		},
		[]string{"binding", "origin"},
	)

	DispatchUnmatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_unmatched_total",
			Help: "Total number of dispatch passes without a matching binding",
		},
		[]string{"origin"},
	)

	HandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_handler_errors_total",
			Help: "Total number of handler invocations that returned an error",
		},
		[]string{"binding"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Duration of handler execution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"binding"},
	)

	// Cache counters
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"level"},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheComputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_computes_total",
			Help: "Total number of producer invocations on cache misses",
		},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of evicted cache keys",
		},
		[]string{"reason"}, // "expired" or "invalidated"
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache store errors",
		},
		[]string{"level", "kind"},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "level"},
	)

	// L1 capacity metrics only (if L1 is in-memory)
	CacheCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_capacity_bytes",
			Help: "L1 cache capacity in bytes",
		},
		[]string{"level"},
	)

	CacheKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_keys",
			Help: "Number of keys held by a cache level",
		},
		[]string{"level"},
	)

	// Invalidation signaler
	InvalidationCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidation_commands_total",
			Help: "Total number of invalidation bus messages by outcome",
		},
		[]string{"outcome"}, // "applied", "unknown", "malformed"
	)
)

// RecordDispatch records a dispatch pass that ran binding
func RecordDispatch(binding, origin string) {
	DispatchMatched.WithLabelValues(binding, origin).Inc()
}

// RecordUnmatched records a dispatch pass that found no binding
func RecordUnmatched(origin string) {
	DispatchUnmatched.WithLabelValues(origin).Inc()
}

// RecordHandlerError records a failed handler invocation
func RecordHandlerError(binding string) {
	HandlerErrors.WithLabelValues(binding).Inc()
}

// TimeHandler returns a timer function for measuring handler duration
func TimeHandler(binding string) func() {
	timer := prometheus.NewTimer(DispatchDuration.WithLabelValues(binding))
	return func() {
		timer.ObserveDuration()
	}
}

// RecordCacheHit records a cache hit
func RecordCacheHit(level string) {
	CacheHits.WithLabelValues(level).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMisses.Inc()
}

// RecordCacheCompute records a producer invocation
func RecordCacheCompute() {
	CacheComputes.Inc()
}

// RecordCacheEviction records evicted keys
func RecordCacheEviction(reason string, count int) {
	CacheEvictions.WithLabelValues(reason).Add(float64(count))
}

// RecordCacheError records a cache error with level and kind
func RecordCacheError(level, kind string) {
	CacheErrors.WithLabelValues(level, kind).Inc()
}

// TimeCacheOperation returns a timer function for measuring cache operation duration
func TimeCacheOperation(operation, level string) func() {
	timer := prometheus.NewTimer(CacheOperationDuration.WithLabelValues(operation, level))
	return func() {
		timer.ObserveDuration()
	}
}

// UpdateL1CacheCapacity updates L1 cache capacity metrics
func UpdateL1CacheCapacity(capacity int64) {
	CacheCapacity.WithLabelValues("l1").Set(float64(capacity))
}

// UpdateCacheKeys updates the number of keys in a cache level
func UpdateCacheKeys(level string, count int64) {
	CacheKeys.WithLabelValues(level).Set(float64(count))
}

// RecordInvalidation records the outcome of one invalidation bus message
func RecordInvalidation(outcome string) {
	InvalidationCommands.WithLabelValues(outcome).Inc()
}
