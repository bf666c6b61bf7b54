package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"go-dispatch-cache/internal/bus"
	"go-dispatch-cache/internal/cache"
	"go-dispatch-cache/internal/cache/l1"
	"go-dispatch-cache/internal/cache/l2"
	"go-dispatch-cache/internal/cache/multi"
	"go-dispatch-cache/internal/cache/noop"
	"go-dispatch-cache/internal/config"
	"go-dispatch-cache/internal/dispatch"
	"go-dispatch-cache/internal/handlers"
	"go-dispatch-cache/internal/httpserver"
	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/routes"
	"go-dispatch-cache/internal/signaler"
)

const (
	defaultConfigPath = "/app/config.yaml"
	defaultRoutesPath = "/app/routes.yaml"
)

// CompositionRoot holds all application dependencies and owns their lifecycle
type CompositionRoot struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Routes *routes.RoutesConfig
	Clock  clock.Clock

	// Cache components
	L1Cache  interfaces.Cache
	L2Cache  interfaces.Cache
	KeyDB    *l2.RedisKeyDbClient
	Store    interfaces.LevelAwareCache
	Manager  *cache.Manager
	Signaler interfaces.Signaler

	// Services
	Dispatcher  *dispatch.Dispatcher
	Invalidator *signaler.InvalidationPublisher
	HTTPServer  *httpserver.Server
	BusConsumer *bus.Consumer
}

// NewCompositionRoot creates and wires all application dependencies.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Configuration and routes
// 3. Stores (L1, L2, multi-level)
// 4. Cache manager
// 5. Dispatcher (table built from routes)
// 6. Invalidation (signaler subscription, publisher)
// 7. Transports (HTTP server, bus consumer)
func NewCompositionRoot(ctx context.Context) (*CompositionRoot, error) {
	root := &CompositionRoot{Clock: clock.New()}

	if err := root.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"load configuration", root.loadConfig},
		{"load routes", root.loadRoutes},
		{"initialize cache stores", root.initStores},
		{"initialize cache manager", root.initManager},
		{"initialize dispatcher", root.initDispatcher},
		{"initialize invalidation", func() error { return root.initInvalidation(ctx) }},
		{"initialize transports", func() error { return root.initTransports(ctx) }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			_ = root.Cleanup()
			return nil, fmt.Errorf("failed to %s: %w", step.name, err)
		}
	}

	return root, nil
}

// initLogger initializes the application logger
func (r *CompositionRoot) initLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	r.Logger = logger
	return nil
}

// loadConfig loads the configuration file, or the defaults when no file is configured or present
func (r *CompositionRoot) loadConfig() error {
	configPath := os.Getenv("DISPATCH_CONFIG_FILE")
	if configPath == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
			r.Logger.Info("No configuration file, using defaults", zap.String("path", defaultConfigPath))
			r.Config = config.Default()
			return r.applyEnvOverrides()
		}
		configPath = defaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath, r.Logger)
	if err != nil {
		return err
	}

	r.Config = cfg
	return r.applyEnvOverrides()
}

func (r *CompositionRoot) applyEnvOverrides() error {
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		r.Config.HTTP.Addr = addr
	}
	return nil
}

// loadRoutes loads the route file
func (r *CompositionRoot) loadRoutes() error {
	routesPath := os.Getenv("DISPATCH_ROUTES_FILE")
	if routesPath == "" {
		routesPath = defaultRoutesPath
	}

	cfg, err := routes.LoadRoutes(routesPath, r.Logger)
	if err != nil {
		return err
	}
	r.Routes = cfg
	return nil
}

// initStores initializes L1, L2 and the multi-level store over them
func (r *CompositionRoot) initStores() error {
	if err := r.initL1Cache(); err != nil {
		return fmt.Errorf("failed to initialize L1 cache: %w", err)
	}

	if err := r.initL2Cache(); err != nil {
		return fmt.Errorf("failed to initialize L2 cache: %w", err)
	}

	r.Store = multi.NewMultiCache(
		[]interfaces.Cache{r.L1Cache, r.L2Cache},
		r.Logger,
		r.Config.MultiCache.EnablePropagation,
		multi.WithClock(r.Clock),
	)
	return nil
}

// initL1Cache initializes the L1 cache (BigCache)
func (r *CompositionRoot) initL1Cache() error {
	if !r.Config.BigCache.Enabled {
		r.L1Cache = noop.NewNoOpCache()
		r.Logger.Info("BigCache (L1) disabled")
		return nil
	}

	l1Cache, err := l1.NewBigCache(&r.Config.BigCache, r.Logger)
	if err != nil {
		return err
	}
	r.L1Cache = l1Cache
	r.Logger.Info("BigCache (L1) initialized", zap.Int("size_mb", r.Config.BigCache.Size))
	return nil
}

// initL2Cache initializes the L2 cache (KeyDB). A connection failure degrades to
// no L2 unless invalidation or the bus transport depend on KeyDB.
func (r *CompositionRoot) initL2Cache() error {
	if !r.Config.KeyDB.Enabled {
		r.L2Cache = noop.NewNoOpCache()
		r.Logger.Info("KeyDB (L2) disabled")
		return nil
	}

	keydbURL, err := GetKeyDBURL(r.Logger)
	if err != nil {
		return err
	}

	client, err := l2.NewRedisKeyDbClient(&r.Config.KeyDB, keydbURL, r.Logger)
	if err != nil {
		if r.requiresKeyDB() {
			return err
		}
		r.Logger.Warn("Failed to connect to KeyDB, falling back to no L2 cache", zap.Error(err))
		r.L2Cache = noop.NewNoOpCache()
		return nil
	}

	r.KeyDB = client
	r.L2Cache = l2.NewKeyDBCache(r.Config, client, r.Logger)
	r.Logger.Info("KeyDB (L2) initialized")
	return nil
}

func (r *CompositionRoot) requiresKeyDB() bool {
	return r.Config.Signaler.Type == config.SignalerRedis || r.Config.Bus.Enabled
}

// initManager initializes the cache manager over the multi-level store
func (r *CompositionRoot) initManager() error {
	r.Manager = cache.NewManager(r.Store, r.Logger,
		cache.WithClock(r.Clock),
		cache.WithDefaultTTL(r.Config.Cache.DefaultTTL),
		cache.WithLockStripes(r.Config.Cache.LockStripes),
	)
	return nil
}

// initDispatcher builds the dispatch table from routes and freezes it
func (r *CompositionRoot) initDispatcher() error {
	table := dispatch.NewTable()
	registry := handlers.NewRegistry(r.Logger, handlers.WithUpdateMode(r.Config.GetUpdateMode()))
	if err := routes.Build(table, r.Routes, registry, cache.NewKeyBuilder(), r.Logger); err != nil {
		return err
	}

	r.Dispatcher = dispatch.New(table, r.Manager, r.Logger)
	return nil
}

// initInvalidation subscribes the signaler. With the redis signaler a failed
// subscription aborts startup.
func (r *CompositionRoot) initInvalidation(ctx context.Context) error {
	if r.Config.Signaler.Type != config.SignalerRedis {
		r.Signaler = signaler.NewNoOpSignaler()
		r.Logger.Info("Invalidation signaler disabled")
		return nil
	}

	s, err := signaler.NewBusSignaler(ctx, r.KeyDB, r.Config.Signaler.Channel, r.Manager, r.Logger)
	if err != nil {
		return err
	}
	r.Signaler = s
	r.Invalidator = signaler.NewInvalidationPublisher(
		signaler.NewKeyDbPublisher(r.KeyDB),
		r.Config.Signaler.Channel,
		r.Logger,
	)
	return nil
}

// initTransports initializes the HTTP server and, when enabled, the bus consumer
func (r *CompositionRoot) initTransports(ctx context.Context) error {
	// a nil *InvalidationPublisher must reach the server as a nil interface
	var invalidator httpserver.Invalidator
	if r.Invalidator != nil {
		invalidator = r.Invalidator
	}
	r.HTTPServer = httpserver.NewServer(r.Dispatcher, invalidator, r.Config, r.Logger)

	if !r.Config.Bus.Enabled {
		return nil
	}

	consumer, err := bus.NewConsumer(ctx, r.KeyDB, r.Config.Bus.RequestsChannel, r.Dispatcher,
		signaler.NewKeyDbPublisher(r.KeyDB), r.Logger)
	if err != nil {
		return err
	}
	r.BusConsumer = consumer
	return nil
}

// Cleanup performs cleanup of all resources
func (r *CompositionRoot) Cleanup() error {
	var errs []error

	if r.BusConsumer != nil {
		if err := r.BusConsumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close bus consumer: %w", err))
		}
	}

	if r.Signaler != nil {
		if err := r.Signaler.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close signaler: %w", err))
		}
	}

	// Close L1 cache
	if l1BigCache, ok := r.L1Cache.(*l1.BigCache); ok {
		if err := l1BigCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L1 cache: %w", err))
		}
	}

	// Close L2 cache, which owns the KeyDB client
	if l2KeyDBCache, ok := r.L2Cache.(*l2.KeyDBCache); ok {
		if err := l2KeyDBCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L2 cache: %w", err))
		}
	}

	// Sync logger
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}

	return errors.Join(errs...)
}
