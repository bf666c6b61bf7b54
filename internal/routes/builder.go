package routes

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-dispatch-cache/internal/dispatch"
	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/predicate"
)

// ErrUnknownHandler is returned for routes naming a handler that is not registered
var ErrUnknownHandler = errors.New("unknown handler")

// Registry resolves handler names used in the route file
type Registry interface {
	Handler(name string) (dispatch.Handler, bool)
}

// Build compiles every route into a binding on table, in file order
func Build(table *dispatch.Table, cfg *RoutesConfig, registry Registry, keys interfaces.KeyBuilder, logger *zap.Logger) error {
	for _, route := range cfg.Routes {
		handler, ok := registry.Handler(route.Handler)
		if !ok {
			return fmt.Errorf("route %q: %w %q", route.Name, ErrUnknownHandler, route.Handler)
		}

		preds := make([]predicate.Predicate, 0, len(route.When))
		for i, cond := range route.When {
			p, err := compileCondition(cond)
			if err != nil {
				return fmt.Errorf("route %q condition %d: %w", route.Name, i, err)
			}
			preds = append(preds, p)
		}

		if route.Cache != nil {
			key := dispatch.BuilderKey(keys, route.Name)
			if route.Cache.Key != "" {
				key = dispatch.StaticKey(route.Cache.Key)
			}
			handler = dispatch.Cached(key, route.Cache.TTL, handler)
		}

		if err := table.Register(preds, handler, dispatch.WithName(route.Name)); err != nil {
			return fmt.Errorf("failed to register route %q: %w", route.Name, err)
		}

		logger.Debug("Route registered",
			zap.String("name", route.Name),
			zap.String("handler", route.Handler),
			zap.Int("conditions", len(preds)),
			zap.Bool("cached", route.Cache != nil))
	}
	return nil
}

func compileCondition(c ConditionConfig) (predicate.Predicate, error) {
	if c.Field == "" && c.Op != OpURL {
		return nil, fmt.Errorf("op %q needs a field", c.Op)
	}

	switch c.Op {
	case OpEqual:
		return predicate.Equal(c.Field, c.Value), nil
	case OpIn:
		if len(c.Values) == 0 {
			return nil, fmt.Errorf("op %q needs values", c.Op)
		}
		return predicate.In(c.Field, c.Values...), nil
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		n, ok := number(c.Value)
		if !ok {
			return nil, fmt.Errorf("op %q needs a numeric value, got %v", c.Op, c.Value)
		}
		switch c.Op {
		case OpGreaterThan:
			return predicate.GreaterThan(c.Field, n), nil
		case OpGreaterOrEqual:
			return predicate.GreaterOrEqual(c.Field, n), nil
		case OpLessThan:
			return predicate.LessThan(c.Field, n), nil
		default:
			return predicate.LessOrEqual(c.Field, n), nil
		}
	case OpBetween:
		if c.Min == nil || c.Max == nil {
			return nil, fmt.Errorf("op %q needs min and max", c.Op)
		}
		return predicate.Between(c.Field, *c.Min, *c.Max), nil
	case OpMatch:
		return predicate.Matches(c.Field, c.Pattern)
	case OpURL:
		if c.Field == "" {
			return predicate.URL(c.Template), nil
		}
		return predicate.URLAt(c.Field, c.Template), nil
	default:
		return nil, fmt.Errorf("unknown op %q", c.Op)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
