package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/models"
)

// KeyFunc derives the cache key for a request
type KeyFunc func(rc *models.RequestContext) (string, error)

// StaticKey caches every request under the same key
func StaticKey(key string) KeyFunc {
	return func(*models.RequestContext) (string, error) {
		return key, nil
	}
}

// BuilderKey keys requests by binding name and request content
func BuilderKey(builder interfaces.KeyBuilder, binding string) KeyFunc {
	return func(rc *models.RequestContext) (string, error) {
		return builder.Build(binding, rc)
	}
}

// Cached memoizes handler results in the dispatcher's cache manager. Results are
// stored JSON-encoded and returned as json.RawMessage on hit and miss alike, so
// callers see the same shape either way. A nil result is not reported as a value.
func Cached(key KeyFunc, ttl models.TTL, handler Handler) Handler {
	return func(ctx context.Context, rc *models.RequestContext) (any, error) {
		d := rc.Dispatcher()
		if d == nil || d.Cache() == nil || !ttl.Cacheable() {
			return handler(ctx, rc)
		}

		k, err := key(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to build cache key: %w", err)
		}

		data, err := d.Cache().GetOrCompute(ctx, k, ttl, func() ([]byte, error) {
			result, err := handler(ctx, rc)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		})
		if err != nil {
			return nil, err
		}

		if string(data) == "null" {
			return nil, nil
		}
		return json.RawMessage(data), nil
	}
}
