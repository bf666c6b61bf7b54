package routes

import (
	"go-dispatch-cache/internal/models"
)

// Condition operators
const (
	OpEqual          = "eq"
	OpIn             = "in"
	OpGreaterThan    = "gt"
	OpGreaterOrEqual = "ge"
	OpLessThan       = "lt"
	OpLessOrEqual    = "le"
	OpBetween        = "between"
	OpMatch          = "match"
	OpURL            = "url"
)

// RoutesConfig is the route file: bindings in priority order
type RoutesConfig struct {
	Routes []RouteConfig `yaml:"routes" validate:"required,dive"`
}

// RouteConfig declares one binding. A route without conditions always matches.
type RouteConfig struct {
	Name    string            `yaml:"name" validate:"required"`
	Handler string            `yaml:"handler" validate:"required"`
	When    []ConditionConfig `yaml:"when" validate:"dive"`
	Cache   *CacheConfig      `yaml:"cache"`
}

// ConditionConfig declares one predicate
type ConditionConfig struct {
	Field    string   `yaml:"field"`
	Op       string   `yaml:"op" validate:"required,oneof=eq in gt ge lt le between match url"`
	Value    any      `yaml:"value"`
	Values   []any    `yaml:"values"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Pattern  string   `yaml:"pattern"`
	Template string   `yaml:"template"`
}

// CacheConfig memoizes a route's results. Without a key, results are keyed by
// route name and request content.
type CacheConfig struct {
	TTL models.TTL `yaml:"ttl"`
	Key string     `yaml:"key"`
}
