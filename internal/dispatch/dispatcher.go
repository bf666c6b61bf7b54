package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go-dispatch-cache/internal/metrics"
	"go-dispatch-cache/internal/models"
)

// MemberNameField is the member descriptor field holding the member name
const MemberNameField = "name"

// Ensure Dispatcher implements models.Dispatcher
var _ models.Dispatcher = (*Dispatcher)(nil)

// Dispatcher routes request contexts through a frozen table
type Dispatcher struct {
	table  *Table
	cache  models.CacheManager
	logger *zap.Logger
}

// New creates a dispatcher over table and freezes it
func New(table *Table, cache models.CacheManager, logger *zap.Logger) *Dispatcher {
	table.Freeze()

	logger.Info("Dispatch table frozen", zap.Int("bindings", table.Len()))
	for _, b := range table.Shadowed() {
		logger.Warn("Binding is unreachable behind a catch-all", zap.String("binding", b.Name))
	}

	return &Dispatcher{
		table:  table,
		cache:  cache,
		logger: logger,
	}
}

// Cache returns the cache manager shared by all handlers
func (d *Dispatcher) Cache() models.CacheManager {
	return d.cache
}

// Dispatch runs exactly one handler for rc: the first binding, in registration
// order, whose predicates all hold. Without a match it returns nil, nil.
func (d *Dispatcher) Dispatch(ctx context.Context, rc *models.RequestContext) (any, error) {
	if rc.Dispatcher() == nil {
		rc.Attach(d)
	}

	origin := string(rc.Origin)
	b := d.table.match(rc)
	if b == nil {
		metrics.RecordUnmatched(origin)
		d.logger.Debug("No binding matched", zap.String("origin", origin))
		return nil, nil
	}

	metrics.RecordDispatch(b.Name, origin)
	done := metrics.TimeHandler(b.Name)
	result, err := b.Handler(ctx, rc)
	done()

	if err != nil {
		metrics.RecordHandlerError(b.Name)
		d.logger.Warn("Handler failed",
			zap.String("binding", b.Name),
			zap.String("origin", origin),
			zap.Error(err))
		return nil, fmt.Errorf("binding %q: %w", b.Name, err)
	}

	rc.SetResult(result)
	return result, nil
}

// DispatchMembers dispatches one source-member context per member through the
// same table. Each child carries parent as its Parent and data as its payload.
// Members that produce no result are left out of the returned map.
func (d *Dispatcher) DispatchMembers(ctx context.Context, parent *models.RequestContext, members []string, data any) (map[string]any, error) {
	if parent.Dispatcher() == nil {
		parent.Attach(d)
	}

	results := make(map[string]any, len(members))
	for _, name := range members {
		child := parent.Child(models.OriginSourceMember, data)
		child.Set(models.ExtMember, map[string]any{MemberNameField: name})
		if cmd := parent.Command(); cmd != nil {
			child.Set(models.ExtCommand, cmd)
		}

		result, err := d.Dispatch(ctx, child)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}
		if result == nil {
			continue
		}
		results[name] = result
	}
	return results, nil
}
