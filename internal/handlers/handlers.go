package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"go-dispatch-cache/internal/dispatch"
	"go-dispatch-cache/internal/models"
)

// ErrNoDispatcher is returned by handlers that need nested dispatch or the cache
// when the context is not attached to a dispatcher
var ErrNoDispatcher = errors.New("request context has no dispatcher")

// Demo answers "demo" source commands. It dispatches one member request per
// entry of command.members over command.data and returns the member results.
func Demo(logger *zap.Logger) dispatch.Handler {
	return func(ctx context.Context, rc *models.RequestContext) (any, error) {
		d := rc.Dispatcher()
		if d == nil {
			return nil, ErrNoDispatcher
		}

		cmd := rc.Command()
		members := stringList(cmd["members"])
		data := cmd["data"]
		if data == nil {
			data = []any{}
		}

		results, err := d.DispatchMembers(ctx, rc, members, data)
		if err != nil {
			return nil, err
		}

		logger.Debug("Demo source dispatched",
			zap.Strings("members", members),
			zap.Int("results", len(results)))

		return map[string]any{
			"source":  cmd["source"],
			"members": results,
		}, nil
	}
}

// Count answers the "count" member with the size of the source's data collection
func Count(_ context.Context, rc *models.RequestContext) (any, error) {
	var n int
	switch data := rc.Payload.(type) {
	case []any:
		n = len(data)
	case map[string]any:
		n = len(data)
	case nil:
		n = 0
	default:
		return nil, fmt.Errorf("cannot count %T", rc.Payload)
	}
	return map[string]any{"count": n}, nil
}

// Echo answers RESTful requests with what the dispatcher saw
func Echo(_ context.Context, rc *models.RequestContext) (any, error) {
	cmd := rc.Command()
	segments := rc.Segments()
	if segments == nil {
		segments = map[string]string{}
	}
	return map[string]any{
		"method":   cmd["method"],
		"path":     cmd["path"],
		"query":    cmd["query"],
		"segments": segments,
		"body":     rc.Payload,
	}, nil
}

// NotFound is the catch-all answer. Members without a binding yield nothing so
// they are left out of the source result.
func NotFound(_ context.Context, rc *models.RequestContext) (any, error) {
	if rc.Origin == models.OriginSourceMember {
		return nil, nil
	}
	return map[string]any{
		"error":  "no route",
		"origin": string(rc.Origin),
	}, nil
}

// Visits counts requests per URL segment "name" in the cache. Read then update
// is not atomic across nodes; the count is a best-effort tally.
func Visits(mode models.UpdateMode) dispatch.Handler {
	return func(_ context.Context, rc *models.RequestContext) (any, error) {
		return visit(rc, mode)
	}
}

func visit(rc *models.RequestContext, mode models.UpdateMode) (any, error) {
	d := rc.Dispatcher()
	if d == nil || d.Cache() == nil {
		return nil, ErrNoDispatcher
	}

	name := rc.Segments()["name"]
	if name == "" {
		name = "anonymous"
	}
	key := "visits:" + name

	count := 0
	if raw, ok := d.Cache().Get(key); ok {
		count, _ = strconv.Atoi(string(raw))
	}
	count++
	d.Cache().Update(key, []byte(strconv.Itoa(count)), mode)

	return map[string]any{"name": name, "visits": count}, nil
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
