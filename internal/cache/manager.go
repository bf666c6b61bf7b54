package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/metrics"
	"go-dispatch-cache/internal/models"
)

const defaultLockStripes = 256

var (
	_ models.CacheManager = (*Manager)(nil)
	_ interfaces.Evictor  = (*Manager)(nil)
)

// Manager owns entry lifetimes on top of a store. Stores only hold serialized
// entries; expiry is decided here against the injected clock.
type Manager struct {
	store      interfaces.Cache
	clock      clock.Clock
	defaultTTL models.TTL
	stripes    []sync.Mutex
	flights    singleflight.Group
	logger     *zap.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock replaces the wall clock, mainly for tests
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithDefaultTTL sets the lifetime used for TTLDefault values and for updates of absent keys
func WithDefaultTTL(ttl models.TTL) ManagerOption {
	return func(m *Manager) {
		m.defaultTTL = ttl
	}
}

// WithLockStripes sets the number of per-key lock stripes
func WithLockStripes(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.stripes = make([]sync.Mutex, n)
		}
	}
}

// NewManager creates a cache manager over store
func NewManager(store interfaces.Cache, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		clock:      clock.New(),
		defaultTTL: models.ExpireAfter(5 * time.Minute),
		stripes:    make([]sync.Mutex, defaultLockStripes),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value stored under key. Expired entries are removed and reported as absent.
func (m *Manager) Get(key string) ([]byte, bool) {
	entry, level, found := m.lookup(key)
	if !found {
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit(level)
	return entry.Data, true
}

// Set stores value under key for ttl. NoCache values are not stored.
func (m *Manager) Set(key string, value []byte, ttl models.TTL) {
	ttl = m.resolve(ttl)
	if !ttl.Cacheable() {
		return
	}

	mu := m.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	m.write(key, models.NewCacheEntry(value, m.clock.Now(), ttl))
}

// Update replaces the value under key. KeepTTL preserves the current expiry,
// ResetTTL restarts the entry's window. Absent keys are stored with the default TTL.
func (m *Manager) Update(key string, value []byte, mode models.UpdateMode) {
	mu := m.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	now := m.clock.Now()
	current, found := m.store.Get(key)
	if !found || current.IsExpired(now) {
		ttl := m.resolve(models.TTL{})
		if ttl.Cacheable() {
			m.write(key, models.NewCacheEntry(value, now, ttl))
		}
		return
	}

	ttl := entryTTL(current)
	if mode == models.ResetTTL {
		m.write(key, models.NewCacheEntry(value, now, ttl))
		return
	}

	m.write(key, &models.CacheEntry{
		Data:      value,
		CreatedAt: current.CreatedAt,
		ExpiresAt: current.ExpiresAt,
		TTL:       current.TTL,
	})
}

// Evict removes keys. Missing keys are ignored.
func (m *Manager) Evict(keys ...string) {
	for _, key := range keys {
		mu := m.lockFor(key)
		mu.Lock()
		m.store.Delete(key)
		mu.Unlock()
		m.flights.Forget(key)
	}
	metrics.RecordCacheEviction("explicit", len(keys))
}

// GetOrCompute returns the cached value for key or runs producer once for all
// concurrent callers missing the same key. Producer errors are returned and not cached.
func (m *Manager) GetOrCompute(ctx context.Context, key string, ttl models.TTL, producer func() ([]byte, error)) ([]byte, error) {
	ttl = m.resolve(ttl)
	if !ttl.Cacheable() {
		return producer()
	}

	if value, ok := m.Get(key); ok {
		return value, nil
	}

	ch := m.flights.DoChan(key, func() (interface{}, error) {
		// another flight may have filled the key between our miss and this call
		if entry, _, found := m.lookup(key); found {
			return entry.Data, nil
		}

		metrics.RecordCacheCompute()
		value, err := producer()
		if err != nil {
			return nil, err
		}
		m.Set(key, value, ttl)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordCacheError("manager", "compute")
			return nil, fmt.Errorf("failed to compute %q: %w", key, res.Err)
		}
		return res.Val.([]byte), nil
	}
}

// lookup reads key from the store and drops it if it has expired
func (m *Manager) lookup(key string) (*models.CacheEntry, string, bool) {
	var (
		entry *models.CacheEntry
		level = models.CacheLevelL1
		found bool
	)
	if la, ok := m.store.(interfaces.LevelAwareCache); ok {
		entry, level, found = la.GetWithLevel(key)
	} else {
		entry, found = m.store.Get(key)
	}
	if !found {
		return nil, "", false
	}

	if entry.IsExpired(m.clock.Now()) {
		m.expire(key)
		return nil, "", false
	}
	return entry, strings.ToLower(string(level)), true
}

// expire deletes key if it is still expired once the stripe is held,
// so a concurrent writer's fresh value is left alone
func (m *Manager) expire(key string) {
	mu := m.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	entry, found := m.store.Get(key)
	if found && entry.IsExpired(m.clock.Now()) {
		m.store.Delete(key)
		metrics.RecordCacheEviction("expired", 1)
		m.logger.Debug("Expired cache entry removed", zap.String("key", key))
	}
}

// write stores entry; the caller holds the key's stripe
func (m *Manager) write(key string, entry *models.CacheEntry) {
	var expiration time.Duration
	if remaining, ok := entry.Remaining(m.clock.Now()); ok {
		expiration = remaining
	}
	m.store.Set(key, entry, expiration)
}

func (m *Manager) resolve(ttl models.TTL) models.TTL {
	if ttl.Mode == models.TTLDefault {
		return m.defaultTTL
	}
	return ttl
}

func (m *Manager) lockFor(key string) *sync.Mutex {
	return &m.stripes[xxhash.Sum64String(key)%uint64(len(m.stripes))]
}

// entryTTL recovers the lifetime an entry was written with
func entryTTL(entry *models.CacheEntry) models.TTL {
	if entry.ExpiresAt == 0 {
		return models.Forever
	}
	return models.ExpireAfter(time.Duration(entry.TTL))
}
