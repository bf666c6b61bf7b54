package interfaces

import (
	"time"

	"go-dispatch-cache/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Cache interface defines the contract for cache store implementations.
// Stores hold serialized entries; expiry decisions belong to the cache manager.
type Cache interface {
	Get(key string) (*models.CacheEntry, bool) // returns entry and found flag
	// Set stores entry; expiration is a hint for stores with native expiry, zero means none
	Set(key string, entry *models.CacheEntry, expiration time.Duration)
	Delete(key string)
}

// LevelAwareCache is a Cache that reports which level answered a lookup
type LevelAwareCache interface {
	Cache
	GetWithLevel(key string) (*models.CacheEntry, models.CacheLevel, bool)
}
