package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/interfaces/mock"
	"go-dispatch-cache/internal/models"
)

// memStore is a map-backed store that copies entries in and out like the real stores do
type memStore struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
}

var _ interfaces.Cache = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]models.CacheEntry)}
}

func (s *memStore) Get(key string) (*models.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return &entry, true
}

func (s *memStore) Set(key string, entry *models.CacheEntry, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = *entry
}

func (s *memStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *memStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func newTestManager(t *testing.T) (*Manager, *memStore, *clock.Mock) {
	store := newMemStore()
	mockClock := clock.NewMock()
	m := NewManager(store, zaptest.NewLogger(t),
		WithClock(mockClock),
		WithDefaultTTL(models.ExpireAfter(time.Minute)),
		WithLockStripes(16),
	)
	return m, store, mockClock
}

func TestManager_GetOrCompute_TTL(t *testing.T) {
	m, _, mockClock := newTestManager(t)
	ctx := context.Background()

	calls := 0
	producer := func() ([]byte, error) {
		calls++
		return []byte(fmt.Sprintf("value-%d", calls)), nil
	}

	v, err := m.GetOrCompute(ctx, "demo", models.ExpireAfter(15*time.Second), producer)
	require.NoError(t, err)
	assert.Equal(t, "value-1", string(v))

	v, err = m.GetOrCompute(ctx, "demo", models.ExpireAfter(15*time.Second), producer)
	require.NoError(t, err)
	assert.Equal(t, "value-1", string(v))
	assert.Equal(t, 1, calls)

	mockClock.Add(16 * time.Second)

	v, err = m.GetOrCompute(ctx, "demo", models.ExpireAfter(15*time.Second), producer)
	require.NoError(t, err)
	assert.Equal(t, "value-2", string(v))
	assert.Equal(t, 2, calls)
}

func TestManager_Get_ExpiredEntryIsRemoved(t *testing.T) {
	m, store, mockClock := newTestManager(t)

	m.Set("k", []byte("v"), models.ExpireAfter(10*time.Second))
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	mockClock.Add(10 * time.Second)

	_, ok = m.Get("k")
	assert.False(t, ok, "entry is invisible once now reaches its expiry")
	assert.Equal(t, 0, store.Len())
}

func TestManager_Set_Modes(t *testing.T) {
	m, store, mockClock := newTestManager(t)

	m.Set("none", []byte("v"), models.NoCache)
	_, ok := m.Get("none")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	m.Set("forever", []byte("v"), models.Forever)
	m.Set("default", []byte("v"), models.TTL{})

	mockClock.Add(59 * time.Second)
	_, ok = m.Get("default")
	assert.True(t, ok)

	mockClock.Add(24 * time.Hour)
	_, ok = m.Get("default")
	assert.False(t, ok)
	_, ok = m.Get("forever")
	assert.True(t, ok)
}

func TestManager_Update_KeepTTL(t *testing.T) {
	m, _, mockClock := newTestManager(t)

	m.Set("k", []byte("old"), models.ExpireAfter(10*time.Second))
	mockClock.Add(6 * time.Second)

	m.Update("k", []byte("new"), models.KeepTTL)
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", string(v))

	mockClock.Add(5 * time.Second)
	_, ok = m.Get("k")
	assert.False(t, ok, "original expiry still applies")
}

func TestManager_Update_ResetTTL(t *testing.T) {
	m, _, mockClock := newTestManager(t)

	m.Set("k", []byte("old"), models.ExpireAfter(10*time.Second))
	mockClock.Add(6 * time.Second)

	m.Update("k", []byte("new"), models.ResetTTL)

	mockClock.Add(5 * time.Second)
	v, ok := m.Get("k")
	require.True(t, ok, "window restarted at update time")
	assert.Equal(t, "new", string(v))

	mockClock.Add(5 * time.Second)
	_, ok = m.Get("k")
	assert.False(t, ok)
}

func TestManager_Update_AbsentKeyUsesDefaultTTL(t *testing.T) {
	m, _, mockClock := newTestManager(t)

	m.Update("k", []byte("v"), models.KeepTTL)
	_, ok := m.Get("k")
	require.True(t, ok)

	mockClock.Add(time.Minute)
	_, ok = m.Get("k")
	assert.False(t, ok)
}

func TestManager_Update_ForeverStaysForever(t *testing.T) {
	m, _, mockClock := newTestManager(t)

	m.Set("k", []byte("old"), models.Forever)
	m.Update("k", []byte("new"), models.ResetTTL)

	mockClock.Add(365 * 24 * time.Hour)
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", string(v))
}

func TestManager_Evict(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.Set("a", []byte("1"), models.Forever)
	m.Set("b", []byte("2"), models.Forever)

	m.Evict("a", "missing")

	_, ok := m.Get("a")
	assert.False(t, ok)
	_, ok = m.Get("b")
	assert.True(t, ok)

	assert.NotPanics(t, func() { m.Evict() })
}

func TestManager_GetOrCompute_ErrorsAreNotCached(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := m.GetOrCompute(ctx, "k", models.Forever, func() ([]byte, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	v, err := m.GetOrCompute(ctx, "k", models.Forever, func() ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(v))
}

func TestManager_GetOrCompute_NoCacheAlwaysProduces(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	var calls int
	for i := 0; i < 3; i++ {
		_, err := m.GetOrCompute(ctx, "k", models.NoCache, func() ([]byte, error) {
			calls++
			return []byte("v"), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, store.Len())
}

func TestManager_GetOrCompute_SingleProducerUnderConcurrency(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	producer := func() ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("shared"), nil
	}

	const callers = 20
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, err := m.GetOrCompute(ctx, "k", models.Forever, producer)
			assert.NoError(t, err)
			results[i] = string(v)
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestManager_GetOrCompute_ContextCancelled(t *testing.T) {
	m, _, _ := newTestManager(t)

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.GetOrCompute(ctx, "k", models.Forever, func() ([]byte, error) {
		<-release
		return []byte("late"), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_ConcurrentComputeAndEvict(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			v, err := m.GetOrCompute(ctx, "k", models.Forever, func() ([]byte, error) {
				return []byte("computed"), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "computed", string(v))
		}()
		go func() {
			defer wg.Done()
			m.Evict("k")
		}()
	}
	wg.Wait()

	v, ok := m.Get("k")
	if ok {
		assert.Equal(t, "computed", string(v))
	}
}

func TestManager_PassesRemainingLifetimeToStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockCache(ctrl)
	mockClock := clock.NewMock()
	m := NewManager(store, zap.NewNop(), WithClock(mockClock))

	store.EXPECT().Set("k", gomock.Any(), 30*time.Second)
	m.Set("k", []byte("v"), models.ExpireAfter(30*time.Second))

	store.EXPECT().Set("f", gomock.Any(), time.Duration(0))
	m.Set("f", []byte("v"), models.Forever)
}

func TestManager_UsesLevelAwareStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockLevelAwareCache(ctrl)
	m := NewManager(store, zap.NewNop(), WithClock(clock.NewMock()))

	entry := &models.CacheEntry{Data: []byte("v")}
	store.EXPECT().GetWithLevel("k").Return(entry, models.CacheLevelL2, true)

	v, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}
