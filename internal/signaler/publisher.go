package signaler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/models"
)

// ErrNoKeys is returned when a clear-cache command would name no keys
var ErrNoKeys = errors.New("no keys to invalidate")

// Ensure KeyDbPublisher implements interfaces.Publisher
var _ interfaces.Publisher = (*KeyDbPublisher)(nil)

// KeyDbPublisher publishes raw payloads through a KeyDB client
type KeyDbPublisher struct {
	client interfaces.KeyDbClient
}

// NewKeyDbPublisher creates a publisher over client
func NewKeyDbPublisher(client interfaces.KeyDbClient) *KeyDbPublisher {
	return &KeyDbPublisher{client: client}
}

// Publish sends payload on channel
func (p *KeyDbPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// InvalidationPublisher encodes clear-cache commands and broadcasts them to every node
type InvalidationPublisher struct {
	publisher interfaces.Publisher
	channel   string
	logger    *zap.Logger
}

// NewInvalidationPublisher creates a publisher for the invalidation channel
func NewInvalidationPublisher(publisher interfaces.Publisher, channel string, logger *zap.Logger) *InvalidationPublisher {
	return &InvalidationPublisher{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// PublishClearCache broadcasts a clear-cache command for keys
func (p *InvalidationPublisher) PublishClearCache(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return ErrNoKeys
	}

	payload, err := json.Marshal(models.NewClearCacheCommand(keys...))
	if err != nil {
		return fmt.Errorf("failed to marshal clear-cache command: %w", err)
	}

	if err := p.publisher.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("failed to publish clear-cache command: %w", err)
	}

	p.logger.Info("Published clear-cache command",
		zap.String("channel", p.channel),
		zap.Int("keys", len(keys)))
	return nil
}
