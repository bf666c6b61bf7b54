package handlers

import (
	"sort"

	"go.uber.org/zap"

	"go-dispatch-cache/internal/dispatch"
	"go-dispatch-cache/internal/models"
)

// Handler names usable in the route file
const (
	NameDemo     = "demo"
	NameCount    = "count"
	NameEcho     = "echo"
	NameNotFound = "not-found"
	NameVisits   = "visits"
)

// Registry maps route file handler names to handlers
type Registry struct {
	handlers map[string]dispatch.Handler
}

// RegistryOption customizes the built-in handlers
type RegistryOption func(*registryOptions)

type registryOptions struct {
	updateMode models.UpdateMode
}

// WithUpdateMode sets how counters written by the built-in handlers treat the
// expiry of an existing entry
func WithUpdateMode(mode models.UpdateMode) RegistryOption {
	return func(o *registryOptions) { o.updateMode = mode }
}

// NewRegistry creates a registry holding the built-in handlers
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	o := registryOptions{updateMode: models.KeepTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		handlers: map[string]dispatch.Handler{
			NameDemo:     Demo(logger),
			NameCount:    Count,
			NameEcho:     Echo,
			NameNotFound: NotFound,
			NameVisits:   Visits(o.updateMode),
		},
	}
}

// Handler returns the handler registered under name
func (r *Registry) Handler(name string) (dispatch.Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Add registers or replaces a handler
func (r *Registry) Add(name string, h dispatch.Handler) {
	r.handlers[name] = h
}

// Names returns the registered handler names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
