package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-dispatch-cache/internal/models"
	"go-dispatch-cache/internal/predicate"
)

var (
	// ErrTableFrozen is returned when registering on a table that is already serving
	ErrTableFrozen = errors.New("dispatch table is frozen")
	// ErrNilHandler is returned when registering a binding without a handler
	ErrNilHandler = errors.New("handler cannot be nil")
)

// Handler produces the result for a matched request. A nil result with a nil
// error means the handler had nothing to return.
type Handler func(ctx context.Context, rc *models.RequestContext) (any, error)

// Binding associates a predicate set with a handler
type Binding struct {
	Name       string
	Predicates []predicate.Predicate
	Handler    Handler
	// Priority is the registration index; lower runs first
	Priority int
}

// CatchAll reports whether the binding has no predicates
func (b *Binding) CatchAll() bool {
	return len(b.Predicates) == 0
}

// BindingOption configures a binding at registration
type BindingOption func(*Binding)

// WithName names a binding for logs and metrics
func WithName(name string) BindingOption {
	return func(b *Binding) {
		b.Name = name
	}
}

// Table is an append-only ordered list of bindings. It is built during startup,
// frozen when a Dispatcher takes it, and read without locks afterwards.
type Table struct {
	mu       sync.Mutex
	bindings []*Binding
	frozen   bool
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// Register appends a binding. An empty predicate set always matches, so any
// binding registered after it is unreachable.
func (t *Table) Register(predicates []predicate.Predicate, handler Handler, opts ...BindingOption) error {
	if handler == nil {
		return ErrNilHandler
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrTableFrozen
	}

	b := &Binding{
		Predicates: append([]predicate.Predicate(nil), predicates...),
		Handler:    handler,
		Priority:   len(t.bindings),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.Name == "" {
		b.Name = fmt.Sprintf("binding-%d", b.Priority)
	}

	t.bindings = append(t.bindings, b)
	return nil
}

// Freeze stops further registration
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen reports whether the table accepts registrations
func (t *Table) Frozen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frozen
}

// Len returns the number of registered bindings
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bindings)
}

// Bindings returns the bindings in registration order
func (t *Table) Bindings() []*Binding {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Binding(nil), t.bindings...)
}

// Shadowed returns the bindings registered after the first catch-all
func (t *Table) Shadowed() []*Binding {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, b := range t.bindings {
		if b.CatchAll() {
			return append([]*Binding(nil), t.bindings[i+1:]...)
		}
	}
	return nil
}

// match returns the first binding, in registration order, whose predicates all
// hold. Fields derived by the predicates of a binding that did not match are
// rolled back. The caller must only use it on a frozen table.
func (t *Table) match(rc *models.RequestContext) *Binding {
	for _, b := range t.bindings {
		segments, hadSegments := rc.Ext(models.ExtURLSegments)
		if predicate.All(rc, b.Predicates) {
			return b
		}
		if hadSegments {
			rc.Set(models.ExtURLSegments, segments)
		} else {
			rc.Unset(models.ExtURLSegments)
		}
	}
	return nil
}
