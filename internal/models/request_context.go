package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OriginKind identifies the transport shape a request arrived in
type OriginKind string

const (
	OriginRestful      OriginKind = "restful"
	OriginSource       OriginKind = "source"
	OriginSourceMember OriginKind = "source-member"
	OriginBus          OriginKind = "bus"
	OriginGenericJSON  OriginKind = "generic-json"
)

// Well-known keys of the extension bag
const (
	ExtURLSegments = "url_segments"
	ExtCommand     = "command"
	ExtMember      = "member"
	ExtResult      = "result"
)

// Root names that resolve against the context itself rather than the extension bag
const (
	rootPayload = "payload"
	rootMessage = "message"
	rootOrigin  = "origin"
)

var (
	// ErrFieldNotFound is returned by Lookup when a path segment does not exist
	ErrFieldNotFound = errors.New("field not found")
	// ErrFieldType is returned by Lookup when a path descends into a scalar
	ErrFieldType = errors.New("field is not a container")
)

// Dispatcher is the view of the orchestrator that handlers reach through their context.
// Contexts hold it as a plain back reference and never own it.
type Dispatcher interface {
	Dispatch(ctx context.Context, rc *RequestContext) (any, error)
	DispatchMembers(ctx context.Context, parent *RequestContext, members []string, data any) (map[string]any, error)
	Cache() CacheManager
}

// CacheManager is the cache API exposed to handlers
type CacheManager interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl TTL)
	Update(key string, value []byte, mode UpdateMode)
	Evict(keys ...string)
	GetOrCompute(ctx context.Context, key string, ttl TTL, producer func() ([]byte, error)) ([]byte, error)
}

// RequestContext is one inbound unit of work. It is created by a transport adapter,
// passed through exactly one dispatch pass and then discarded. It is not safe for
// concurrent use.
type RequestContext struct {
	Origin  OriginKind
	Payload any

	// Parent is set on contexts created by nested dispatch
	Parent *RequestContext

	dispatcher Dispatcher
	ext        map[string]any
}

// NewRequestContext creates a context for the given origin and decoded payload
func NewRequestContext(origin OriginKind, payload any) *RequestContext {
	return &RequestContext{
		Origin:  origin,
		Payload: payload,
		ext:     make(map[string]any),
	}
}

// Set stores a derived field in the extension bag
func (rc *RequestContext) Set(name string, value any) {
	if rc.ext == nil {
		rc.ext = make(map[string]any)
	}
	rc.ext[name] = value
}

// Ext returns a derived field from the extension bag
func (rc *RequestContext) Ext(name string) (any, bool) {
	v, ok := rc.ext[name]
	return v, ok
}

// Unset removes a derived field from the extension bag
func (rc *RequestContext) Unset(name string) {
	delete(rc.ext, name)
}

// Segments returns the path parameters extracted by a URL predicate
func (rc *RequestContext) Segments() map[string]string {
	if v, ok := rc.ext[ExtURLSegments].(map[string]string); ok {
		return v
	}
	return nil
}

// Command returns the decoded command of source and restful requests
func (rc *RequestContext) Command() map[string]any {
	if v, ok := rc.ext[ExtCommand].(map[string]any); ok {
		return v
	}
	return nil
}

// Member returns the member descriptor of a source-member request
func (rc *RequestContext) Member() map[string]any {
	if v, ok := rc.ext[ExtMember].(map[string]any); ok {
		return v
	}
	return nil
}

// SetResult records the handler result on the context
func (rc *RequestContext) SetResult(v any) {
	rc.Set(ExtResult, v)
}

// Result returns the recorded handler result
func (rc *RequestContext) Result() any {
	return rc.ext[ExtResult]
}

// Attach binds the context to the dispatcher that is processing it
func (rc *RequestContext) Attach(d Dispatcher) {
	rc.dispatcher = d
}

// Dispatcher returns the dispatcher processing this context, nil when detached
func (rc *RequestContext) Dispatcher() Dispatcher {
	return rc.dispatcher
}

// Child creates a nested context that points back to rc
func (rc *RequestContext) Child(origin OriginKind, payload any) *RequestContext {
	child := NewRequestContext(origin, payload)
	child.Parent = rc
	child.dispatcher = rc.dispatcher
	return child
}

// Lookup resolves a dotted field path such as "command.source" or "message.type".
// The first segment names an extension bag field, or one of "payload", "message"
// (both the raw payload) and "origin". Further segments descend into maps and,
// with numeric segments, into slices.
func (rc *RequestContext) Lookup(path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path: %w", ErrFieldNotFound)
	}
	parts := strings.Split(path, ".")

	var cur any
	switch root := parts[0]; {
	case hasKey(rc.ext, root):
		cur = rc.ext[root]
	case root == rootPayload || root == rootMessage:
		cur = rc.Payload
	case root == rootOrigin:
		cur = string(rc.Origin)
	default:
		return nil, fmt.Errorf("%q: %w", root, ErrFieldNotFound)
	}

	for i, part := range parts[1:] {
		next, err := descend(cur, part)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(parts[:i+2], "."), err)
		}
		cur = next
	}
	return cur, nil
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}

func descend(v any, part string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		next, ok := t[part]
		if !ok {
			return nil, ErrFieldNotFound
		}
		return next, nil
	case map[string]string:
		next, ok := t[part]
		if !ok {
			return nil, ErrFieldNotFound
		}
		return next, nil
	case []any:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(t) {
			return nil, ErrFieldNotFound
		}
		return t[idx], nil
	default:
		return nil, ErrFieldType
	}
}
