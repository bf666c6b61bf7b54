package multi

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/interfaces/mock"
	"go-dispatch-cache/internal/models"
)

func TestNewMultiCache(t *testing.T) {
	logger := zap.NewNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	caches := []interfaces.Cache{cache1, cache2}

	mc := NewMultiCache(caches, logger, false)

	assert.NotNil(t, mc)
	assert.Equal(t, 2, mc.GetCacheCount())
	assert.Equal(t, cache1, mc.caches[0])
	assert.Equal(t, cache2, mc.caches[1])
}

func TestMultiCache_Get_FirstCacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache([]interfaces.Cache{cache1, cache2}, zap.NewNop(), true)

	entry := models.NewCacheEntry([]byte("test-value"), time.Now(), models.Forever)
	cache1.EXPECT().Get("test-key").Return(entry, true).Times(1)
	// cache2.Get should not be called since cache1 has the value

	result, level, found := mc.GetWithLevel("test-key")

	assert.True(t, found)
	assert.Equal(t, models.CacheLevelL1, level)
	assert.Equal(t, entry, result)
}

func TestMultiCache_Get_SecondCacheHit_Propagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache([]interfaces.Cache{cache1, cache2}, zap.NewNop(), true)

	entry := models.NewCacheEntry([]byte("test-value"), time.Now(), models.ExpireAfter(time.Hour))
	cache1.EXPECT().Get("test-key").Return(nil, false)
	cache2.EXPECT().Get("test-key").Return(entry, true)
	cache1.EXPECT().Set("test-key", entry, gomock.Any()).Times(1)

	result, level, found := mc.GetWithLevel("test-key")

	assert.True(t, found)
	assert.Equal(t, models.CacheLevelL2, level)
	assert.Equal(t, entry, result)
}

func TestMultiCache_Get_SecondCacheHit_NoPropagation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache([]interfaces.Cache{cache1, cache2}, zap.NewNop(), false)

	entry := models.NewCacheEntry([]byte("test-value"), time.Now(), models.Forever)
	cache1.EXPECT().Get("test-key").Return(nil, false)
	cache2.EXPECT().Get("test-key").Return(entry, true)

	result, found := mc.Get("test-key")

	assert.True(t, found)
	assert.Equal(t, entry, result)
}

func TestMultiCache_Get_Miss(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache([]interfaces.Cache{cache1, cache2}, zap.NewNop(), true)

	cache1.EXPECT().Get("test-key").Return(nil, false)
	cache2.EXPECT().Get("test-key").Return(nil, false)

	result, level, found := mc.GetWithLevel("test-key")

	assert.False(t, found)
	assert.Equal(t, models.CacheLevelMiss, level)
	assert.Nil(t, result)
}

func TestMultiCache_SetAndDelete_AllLevels(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache([]interfaces.Cache{cache1, cache2}, zap.NewNop(), false)

	entry := models.NewCacheEntry([]byte("v"), time.Now(), models.ExpireAfter(time.Minute))
	cache1.EXPECT().Set("k", entry, time.Minute)
	cache2.EXPECT().Set("k", entry, time.Minute)
	cache1.EXPECT().Delete("k")
	cache2.EXPECT().Delete("k")

	mc.Set("k", entry, time.Minute)
	mc.Delete("k")
}

func TestMultiCache_Empty(t *testing.T) {
	mc := NewMultiCache(nil, zap.NewNop(), false)

	_, found := mc.Get("k")
	assert.False(t, found)

	// Should not panic
	mc.Set("k", models.NewCacheEntry(nil, time.Now(), models.Forever), 0)
	mc.Delete("k")
}

func TestMultiCache_Propagate_UsesInjectedClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClock := clock.NewMock()
	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache([]interfaces.Cache{cache1, cache2}, zap.NewNop(), true, WithClock(mockClock))

	entry := models.NewCacheEntry([]byte("test-value"), mockClock.Now(), models.ExpireAfter(time.Hour))
	mockClock.Add(20 * time.Minute)

	cache1.EXPECT().Get("test-key").Return(nil, false)
	cache2.EXPECT().Get("test-key").Return(entry, true)
	cache1.EXPECT().Set("test-key", entry, 40*time.Minute).Times(1)

	_, level, found := mc.GetWithLevel("test-key")

	assert.True(t, found)
	assert.Equal(t, models.CacheLevelL2, level)
}

func TestMultiCache_Propagate_SkipsExpiredOnInjectedClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClock := clock.NewMock()
	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache([]interfaces.Cache{cache1, cache2}, zap.NewNop(), true, WithClock(mockClock))

	entry := models.NewCacheEntry([]byte("test-value"), mockClock.Now(), models.ExpireAfter(time.Minute))
	mockClock.Add(2 * time.Minute)

	cache1.EXPECT().Get("test-key").Return(nil, false)
	cache2.EXPECT().Get("test-key").Return(entry, true)
	cache1.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, found := mc.Get("test-key")
	assert.True(t, found)
}
