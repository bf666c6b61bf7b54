package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDispatchMetrics(t *testing.T) {
	// Metrics are package-level variables, these checks only verify the helpers
	t.Run("RecordDispatch", func(t *testing.T) {
		before := testutil.ToFloat64(DispatchMatched.WithLabelValues("demo", "source"))
		RecordDispatch("demo", "source")
		assert.Equal(t, before+1, testutil.ToFloat64(DispatchMatched.WithLabelValues("demo", "source")))
	})

	t.Run("RecordUnmatched", func(t *testing.T) {
		before := testutil.ToFloat64(DispatchUnmatched.WithLabelValues("bus"))
		RecordUnmatched("bus")
		assert.Equal(t, before+1, testutil.ToFloat64(DispatchUnmatched.WithLabelValues("bus")))
	})

	t.Run("RecordHandlerError", func(t *testing.T) {
		before := testutil.ToFloat64(HandlerErrors.WithLabelValues("demo"))
		RecordHandlerError("demo")
		assert.Equal(t, before+1, testutil.ToFloat64(HandlerErrors.WithLabelValues("demo")))
	})

	t.Run("TimeHandler", func(t *testing.T) {
		timer := TimeHandler("demo")
		timer()
	})
}

func TestCacheMetrics(t *testing.T) {
	t.Run("RecordCacheHit", func(t *testing.T) {
		before := testutil.ToFloat64(CacheHits.WithLabelValues("l1"))
		RecordCacheHit("l1")
		assert.Equal(t, before+1, testutil.ToFloat64(CacheHits.WithLabelValues("l1")))
	})

	t.Run("RecordCacheMiss", func(t *testing.T) {
		before := testutil.ToFloat64(CacheMisses)
		RecordCacheMiss()
		assert.Equal(t, before+1, testutil.ToFloat64(CacheMisses))
	})

	t.Run("RecordCacheEviction", func(t *testing.T) {
		before := testutil.ToFloat64(CacheEvictions.WithLabelValues("invalidated"))
		RecordCacheEviction("invalidated", 3)
		assert.Equal(t, before+3, testutil.ToFloat64(CacheEvictions.WithLabelValues("invalidated")))
	})

	t.Run("UpdateGauges", func(t *testing.T) {
		UpdateL1CacheCapacity(1000000)
		UpdateCacheKeys("l1", 42)
		assert.Equal(t, float64(1000000), testutil.ToFloat64(CacheCapacity.WithLabelValues("l1")))
		assert.Equal(t, float64(42), testutil.ToFloat64(CacheKeys.WithLabelValues("l1")))
	})

	t.Run("Misc", func(t *testing.T) {
		// This should not panic
		RecordCacheCompute()
		RecordCacheError("l1", "decode")
		RecordInvalidation("applied")
		timer := TimeCacheOperation("get", "l1")
		timer()
	})
}
