package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-dispatch-cache/internal/models"
)

var validate = validator.New()

// Signaler types
const (
	SignalerRedis = "redis"
	SignalerNoop  = "noop"
)

// Update modes as written in the config file
const (
	UpdateModeKeep  = "keep"
	UpdateModeReset = "reset"
)

// Config represents the main configuration structure
type Config struct {
	BigCache   BigCacheConfig   `yaml:"bigcache"`
	KeyDB      KeyDBConfig      `yaml:"keydb"`
	MultiCache MultiCacheConfig `yaml:"multi_cache"`
	Cache      CacheConfig      `yaml:"cache"`
	Signaler   SignalerConfig   `yaml:"signaler"`
	Bus        BusConfig        `yaml:"bus"`
	HTTP       HTTPConfig       `yaml:"http"`
	Admin      AdminConfig      `yaml:"admin"`
}

// BigCacheConfig configures the in-process L1 store
type BigCacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Size            int           `yaml:"size" validate:"gte=0"` // MB, 0 means unbounded
	Shards          int           `yaml:"shards" validate:"gte=0"`
	MaxEntrySize    int           `yaml:"max_entry_size" validate:"gte=0"` // bytes
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// KeyDBConfig configures the shared L2 store and the bus connection
type KeyDBConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
}

// ConnectionConfig holds KeyDB timeouts
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size" validate:"gte=0"`
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout"`
}

// MultiCacheConfig configures the L1+L2 composite
type MultiCacheConfig struct {
	EnablePropagation bool `yaml:"enable_propagation"`
}

// CacheConfig configures the cache manager
type CacheConfig struct {
	DefaultTTL  models.TTL `yaml:"default_ttl"`
	UpdateMode  string     `yaml:"update_mode" validate:"omitempty,oneof=keep reset"`
	LockStripes int        `yaml:"lock_stripes" validate:"gte=0"`
}

// SignalerConfig selects the invalidation signaler
type SignalerConfig struct {
	Type    string `yaml:"type" validate:"omitempty,oneof=redis noop"`
	Channel string `yaml:"channel"`
}

// BusConfig configures the bus request transport
type BusConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RequestsChannel string `yaml:"requests_channel"`
}

// HTTPConfig configures the HTTP transport
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// AdminConfig protects administrative endpoints
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	// Apply defaults
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	config := &Config{
		BigCache: BigCacheConfig{Enabled: true},
		Signaler: SignalerConfig{Type: SignalerNoop},
	}
	config.ApplyDefaults()
	return config
}

// ApplyDefaults sets default values for missing configuration
func (c *Config) ApplyDefaults() {
	c.BigCache.ApplyDefaults()
	c.KeyDB.ApplyDefaults()

	if c.Cache.DefaultTTL.Mode == models.TTLDefault {
		c.Cache.DefaultTTL = models.ExpireAfter(5 * time.Minute)
	}
	if c.Cache.UpdateMode == "" {
		c.Cache.UpdateMode = UpdateModeKeep
	}
	if c.Cache.LockStripes == 0 {
		c.Cache.LockStripes = 256
	}

	if c.Signaler.Type == "" {
		c.Signaler.Type = SignalerNoop
	}
	if c.Signaler.Channel == "" {
		c.Signaler.Channel = "cache-invalidation"
	}

	if c.Bus.RequestsChannel == "" {
		c.Bus.RequestsChannel = "dispatch-requests"
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 30 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
}

// ApplyDefaults sets default values for the L1 store
func (c *BigCacheConfig) ApplyDefaults() {
	if c.Shards == 0 {
		c.Shards = 1024
	}
	if c.MaxEntrySize == 0 {
		c.MaxEntrySize = 1024 * 1024
	}
	if c.MetricsInterval == 0 {
		c.MetricsInterval = 30 * time.Second
	}
}

// ApplyDefaults sets default values for the KeyDB connection
func (c *KeyDBConfig) ApplyDefaults() {
	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = 2 * time.Second
	}
	if c.Connection.SendTimeout == 0 {
		c.Connection.SendTimeout = time.Second
	}
	if c.Connection.ReadTimeout == 0 {
		c.Connection.ReadTimeout = time.Second
	}
	if c.Keepalive.PoolSize == 0 {
		c.Keepalive.PoolSize = 10
	}
	if c.Keepalive.MaxIdleTimeout == 0 {
		c.Keepalive.MaxIdleTimeout = 10 * time.Second
	}
}

// Validate checks field constraints and cross-field requirements
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Cache.DefaultTTL.Validate(); err != nil {
		return fmt.Errorf("invalid cache.default_ttl: %w", err)
	}
	if c.Signaler.Type == SignalerRedis && !c.KeyDB.Enabled {
		return fmt.Errorf("invalid configuration: redis signaler requires keydb.enabled")
	}
	if c.Bus.Enabled && !c.KeyDB.Enabled {
		return fmt.Errorf("invalid configuration: bus transport requires keydb.enabled")
	}
	return nil
}

// GetReadTimeout returns the KeyDB read timeout
func (c *Config) GetReadTimeout() time.Duration {
	return c.KeyDB.Connection.ReadTimeout
}

// GetSendTimeout returns the KeyDB send timeout
func (c *Config) GetSendTimeout() time.Duration {
	return c.KeyDB.Connection.SendTimeout
}

// GetUpdateMode returns the configured cache update mode
func (c *Config) GetUpdateMode() models.UpdateMode {
	if c.Cache.UpdateMode == UpdateModeReset {
		return models.ResetTTL
	}
	return models.KeepTTL
}
