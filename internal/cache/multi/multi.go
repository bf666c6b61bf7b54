package multi

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/models"
)

// Ensure MultiCache implements interfaces.LevelAwareCache
var _ interfaces.LevelAwareCache = (*MultiCache)(nil)

// MultiCache implements a composite cache that tries multiple cache implementations.
// Lookups go through the caches in order; writes and deletes go to all of them.
type MultiCache struct {
	caches            []interfaces.Cache
	logger            *zap.Logger
	enablePropagation bool
	clock             clock.Clock
}

// Option configures a MultiCache
type Option func(*MultiCache)

// WithClock sets the clock used to measure the remaining lifetime of propagated entries
func WithClock(c clock.Clock) Option {
	return func(mc *MultiCache) {
		mc.clock = c
	}
}

// NewMultiCache creates a new MultiCache instance with provided cache implementations.
// With propagation enabled, a hit in a lower level is copied into the levels above it.
func NewMultiCache(caches []interfaces.Cache, logger *zap.Logger, enablePropagation bool, opts ...Option) *MultiCache {
	mc := &MultiCache{
		caches:            caches,
		logger:            logger,
		enablePropagation: enablePropagation,
		clock:             clock.New(),
	}
	for _, opt := range opts {
		opt(mc)
	}
	return mc
}

// Get retrieves the entry from the first cache that has the key
func (mc *MultiCache) Get(key string) (*models.CacheEntry, bool) {
	entry, _, found := mc.GetWithLevel(key)
	return entry, found
}

// GetWithLevel retrieves the entry and reports which level answered
func (mc *MultiCache) GetWithLevel(key string) (*models.CacheEntry, models.CacheLevel, bool) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for get operation", zap.String("key", key))
		return nil, models.CacheLevelMiss, false
	}

	for i, cache := range mc.caches {
		entry, found := cache.Get(key)
		if !found {
			continue
		}
		if mc.enablePropagation && i > 0 {
			mc.propagate(key, entry, i)
		}
		return entry, levelOf(i), true
	}
	return nil, models.CacheLevelMiss, false
}

// propagate copies entry into the caches above level
func (mc *MultiCache) propagate(key string, entry *models.CacheEntry, level int) {
	var expiration time.Duration
	if remaining, ok := entry.Remaining(mc.clock.Now()); ok {
		if remaining <= 0 {
			return
		}
		expiration = remaining
	}

	for _, cache := range mc.caches[:level] {
		cache.Set(key, entry, expiration)
	}
	mc.logger.Debug("Propagated cache entry", zap.String("key", key), zap.Int("from_level", level))
}

// Set stores the entry in all available caches
func (mc *MultiCache) Set(key string, entry *models.CacheEntry, expiration time.Duration) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for set operation", zap.String("key", key))
		return
	}

	for _, cache := range mc.caches {
		cache.Set(key, entry, expiration)
	}
}

// Delete removes entry from all available caches
func (mc *MultiCache) Delete(key string) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for delete operation", zap.String("key", key))
		return
	}

	for _, cache := range mc.caches {
		cache.Delete(key)
	}
}

// GetCacheCount returns the number of caches in the multi-cache
func (mc *MultiCache) GetCacheCount() int {
	return len(mc.caches)
}

func levelOf(i int) models.CacheLevel {
	switch i {
	case 0:
		return models.CacheLevelL1
	default:
		return models.CacheLevelL2
	}
}
