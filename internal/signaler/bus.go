package signaler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/metrics"
	"go-dispatch-cache/internal/models"
)

// ErrSubscribe is returned when the invalidation channel cannot be subscribed to
var ErrSubscribe = errors.New("failed to subscribe to invalidation channel")

// Invalidation outcomes reported to metrics
const (
	OutcomeApplied = "applied"
	OutcomeInvalid = "invalid"
	OutcomeUnknown = "unknown"
	OutcomeDropped = "dropped"
)

// Ensure BusSignaler implements interfaces.Signaler
var _ interfaces.Signaler = (*BusSignaler)(nil)

// BusSignaler evicts cache keys named by clear-cache commands received on a bus channel.
// Delivery is at-most-once: commands published while disconnected are lost.
type BusSignaler struct {
	subscription interfaces.Subscription
	channel      string
	evictor      interfaces.Evictor
	logger       *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewBusSignaler subscribes to channel before returning. A subscription failure is
// returned as ErrSubscribe and the signaler is not usable.
func NewBusSignaler(ctx context.Context, subscriber interfaces.Subscriber, channel string, evictor interfaces.Evictor, logger *zap.Logger) (*BusSignaler, error) {
	subscription, err := subscriber.Subscribe(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrSubscribe, channel, err)
	}

	logger.Info("Invalidation signaler subscribed", zap.String("channel", channel))

	return &BusSignaler{
		subscription: subscription,
		channel:      channel,
		evictor:      evictor,
		logger:       logger,
		done:         make(chan struct{}),
	}, nil
}

// OnCommand decodes one raw message and evicts the keys it names.
// Malformed and unknown commands are logged and leave the cache unchanged.
func (s *BusSignaler) OnCommand(raw []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		metrics.RecordInvalidation(OutcomeDropped)
		return
	}

	cmd, err := models.DecodeInvalidationCommand(raw)
	if err != nil {
		outcome := OutcomeInvalid
		if errors.Is(err, models.ErrUnknownCommand) {
			outcome = OutcomeUnknown
		}
		metrics.RecordInvalidation(outcome)
		s.logger.Warn("Ignoring invalidation message",
			zap.String("channel", s.channel),
			zap.ByteString("payload", raw),
			zap.Error(err))
		return
	}

	s.evictor.Evict(cmd.Keys...)
	metrics.RecordInvalidation(OutcomeApplied)
	s.logger.Debug("Cache keys invalidated", zap.Strings("keys", cmd.Keys))
}

// Start consumes the subscription until ctx is cancelled or Close is called.
// It returns an error only when the subscription ends on its own.
func (s *BusSignaler) Start(ctx context.Context) error {
	messages := s.subscription.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case raw, ok := <-messages:
			if !ok {
				if s.isClosed() {
					return nil
				}
				return fmt.Errorf("invalidation subscription on %q ended", s.channel)
			}
			s.OnCommand(raw)
		}
	}
}

// Close stops delivery and releases the subscription. Once Close returns no
// further commands are applied. It is safe to call more than once.
func (s *BusSignaler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if err := s.subscription.Close(); err != nil {
		return fmt.Errorf("failed to close invalidation subscription: %w", err)
	}
	s.logger.Info("Invalidation signaler closed", zap.String("channel", s.channel))
	return nil
}

func (s *BusSignaler) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
