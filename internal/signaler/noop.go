package signaler

import (
	"context"

	"go-dispatch-cache/internal/interfaces"
)

// Ensure NoOpSignaler implements interfaces.Signaler
var _ interfaces.Signaler = (*NoOpSignaler)(nil)

// NoOpSignaler never subscribes and never evicts. Entries then live until their TTL.
type NoOpSignaler struct{}

// NewNoOpSignaler creates a new no-op signaler
func NewNoOpSignaler() *NoOpSignaler {
	return &NoOpSignaler{}
}

// OnCommand does nothing
func (n *NoOpSignaler) OnCommand(_ []byte) {}

// Start returns immediately
func (n *NoOpSignaler) Start(_ context.Context) error {
	return nil
}

// Close does nothing
func (n *NoOpSignaler) Close() error {
	return nil
}
