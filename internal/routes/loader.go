package routes

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LoadRoutes reads and validates the route file at path
func LoadRoutes(path string, logger *zap.Logger) (*RoutesConfig, error) {
	logger.Info("Loading routes", zap.String("path", path))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open routes file: %w", err)
	}
	defer func() { _ = file.Close() }()

	cfg, err := ParseRoutes(file)
	if err != nil {
		return nil, err
	}

	logger.Info("Routes loaded", zap.Int("routes", len(cfg.Routes)))
	return cfg, nil
}

// ParseRoutes decodes and validates a route file
func ParseRoutes(r io.Reader) (*RoutesConfig, error) {
	var cfg RoutesConfig
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML routes: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("routes validation failed: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Routes))
	for _, route := range cfg.Routes {
		if seen[route.Name] {
			return nil, fmt.Errorf("routes validation failed: duplicate route %q", route.Name)
		}
		seen[route.Name] = true

		if route.Cache != nil {
			if err := route.Cache.TTL.Validate(); err != nil {
				return nil, fmt.Errorf("route %q: %w", route.Name, err)
			}
		}
	}

	return &cfg, nil
}
