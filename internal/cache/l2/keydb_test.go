package l2

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-dispatch-cache/internal/config"
	"go-dispatch-cache/internal/interfaces/mock"
	"go-dispatch-cache/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestNewKeyDBCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cfg := testConfig()
	logger := zap.NewNop()

	cache := NewKeyDBCache(cfg, mockClient, logger)

	assert.NotNil(t, cache)
	assert.Equal(t, mockClient, cache.client)
	assert.Equal(t, cfg, cache.config)
	assert.Equal(t, logger, cache.logger)
}

func TestKeyDBCache_Get_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	// Prepare test data
	entry := models.NewCacheEntry([]byte("test-data"), time.Unix(1000, 0), models.ExpireAfter(time.Minute))
	entryJSON, _ := json.Marshal(entry)

	// Mock expectations
	stringCmd := redis.NewStringResult(string(entryJSON), nil)
	mockClient.EXPECT().Get(gomock.Any(), "test-key").Return(stringCmd)

	// Execute
	result, found := cache.Get("test-key")

	// Assert
	assert.True(t, found)
	require.NotNil(t, result)
	assert.Equal(t, []byte("test-data"), result.Data)
	assert.Equal(t, entry.ExpiresAt, result.ExpiresAt)
}

func TestKeyDBCache_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	stringCmd := redis.NewStringResult("", redis.Nil)
	mockClient.EXPECT().Get(gomock.Any(), "test-key").Return(stringCmd)

	result, found := cache.Get("test-key")

	assert.False(t, found)
	assert.Nil(t, result)
}

func TestKeyDBCache_Get_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	stringCmd := redis.NewStringResult("", errors.New("connection error"))
	mockClient.EXPECT().Get(gomock.Any(), "test-key").Return(stringCmd)

	result, found := cache.Get("test-key")

	assert.False(t, found)
	assert.Nil(t, result)
}

func TestKeyDBCache_Get_InvalidJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	stringCmd := redis.NewStringResult("invalid-json", nil)
	mockClient.EXPECT().Get(gomock.Any(), "test-key").Return(stringCmd)
	mockClient.EXPECT().Del(gomock.Any(), "test-key").Return(redis.NewIntResult(1, nil))

	result, found := cache.Get("test-key")

	assert.False(t, found)
	assert.Nil(t, result)
}

func TestKeyDBCache_Set(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	entry := models.NewCacheEntry([]byte("test-data"), time.Unix(1000, 0), models.ExpireAfter(time.Minute))

	mockClient.EXPECT().
		Set(gomock.Any(), "test-key", gomock.Any(), time.Minute).
		DoAndReturn(func(_ interface{}, _ string, value interface{}, _ time.Duration) *redis.StatusCmd {
			var stored models.CacheEntry
			require.NoError(t, json.Unmarshal(value.([]byte), &stored))
			assert.Equal(t, []byte("test-data"), stored.Data)
			return redis.NewStatusResult("OK", nil)
		})

	cache.Set("test-key", entry, time.Minute)
}

func TestKeyDBCache_Set_ForeverHasNoExpiration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().
		Set(gomock.Any(), "test-key", gomock.Any(), time.Duration(0)).
		Return(redis.NewStatusResult("OK", nil))

	cache.Set("test-key", models.NewCacheEntry([]byte("v"), time.Now(), models.Forever), 0)
}

func TestKeyDBCache_Set_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().
		Set(gomock.Any(), "test-key", gomock.Any(), time.Second).
		Return(redis.NewStatusResult("", errors.New("write error")))

	// Should not panic
	cache.Set("test-key", models.NewCacheEntry([]byte("v"), time.Now(), models.ExpireAfter(time.Second)), time.Second)
}

func TestKeyDBCache_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().Del(gomock.Any(), "test-key").Return(redis.NewIntResult(1, nil))
	mockClient.EXPECT().Del(gomock.Any(), "missing").Return(redis.NewIntResult(0, nil))

	cache.Delete("test-key")
	cache.Delete("missing")
}

func TestKeyDBCache_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(testConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().Close().Return(nil)

	assert.NoError(t, cache.Close())
}

func TestClientOptions(t *testing.T) {
	cfg := &config.KeyDBConfig{}
	cfg.ApplyDefaults()

	opts, err := clientOptions(cfg, "redis://:secret@keydb:6380/3")
	require.NoError(t, err)

	assert.Equal(t, "keydb:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, cfg.Keepalive.PoolSize, opts.PoolSize)

	opts, err = clientOptions(cfg, "redis://keydb")
	require.NoError(t, err)
	assert.Equal(t, "keydb:6379", opts.Addr)

	_, err = clientOptions(cfg, "::not a url")
	assert.Error(t, err)
}
