package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/models"
)

// Message fields with a transport meaning
const (
	FieldCommand = "command"
	FieldReplyTo = "reply_to"
	FieldID      = "id"
)

// Reply is published to a message's reply_to channel
type Reply struct {
	ID      any    `json:"id,omitempty"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Consumer dispatches messages from a requests channel as bus requests
type Consumer struct {
	subscription interfaces.Subscription
	publisher    interfaces.Publisher
	dispatcher   models.Dispatcher
	channel      string
	logger       *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewConsumer subscribes to channel. Replies go out through publisher.
func NewConsumer(ctx context.Context, subscriber interfaces.Subscriber, channel string, dispatcher models.Dispatcher, publisher interfaces.Publisher, logger *zap.Logger) (*Consumer, error) {
	subscription, err := subscriber.Subscribe(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to requests channel %q: %w", channel, err)
	}

	logger.Info("Bus consumer subscribed", zap.String("channel", channel))

	return &Consumer{
		subscription: subscription,
		publisher:    publisher,
		dispatcher:   dispatcher,
		channel:      channel,
		logger:       logger,
		done:         make(chan struct{}),
	}, nil
}

// Start handles messages one at a time until ctx is cancelled or Close is called
func (c *Consumer) Start(ctx context.Context) error {
	messages := c.subscription.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case raw, ok := <-messages:
			if !ok {
				select {
				case <-c.done:
					return nil
				default:
				}
				return fmt.Errorf("requests subscription on %q ended", c.channel)
			}
			c.Handle(ctx, raw)
		}
	}
}

// Handle dispatches one raw message. Messages that are not JSON objects are dropped.
func (c *Consumer) Handle(ctx context.Context, raw []byte) {
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil || msg == nil {
		c.logger.Warn("Dropping malformed bus request", zap.String("channel", c.channel), zap.Error(err))
		return
	}

	rc := models.NewRequestContext(models.OriginBus, msg)
	if cmd, ok := msg[FieldCommand].(map[string]any); ok {
		rc.Set(models.ExtCommand, cmd)
	}

	result, err := c.dispatcher.Dispatch(ctx, rc)

	replyTo, _ := msg[FieldReplyTo].(string)
	if replyTo == "" {
		if err != nil {
			c.logger.Warn("Bus request failed", zap.Error(err))
		}
		return
	}

	reply := Reply{ID: msg[FieldID], Success: err == nil, Result: result}
	if err != nil {
		reply.Error = err.Error()
	}
	c.reply(ctx, replyTo, reply)
}

func (c *Consumer) reply(ctx context.Context, channel string, reply Reply) {
	payload, err := json.Marshal(reply)
	if err != nil {
		c.logger.Error("Failed to marshal bus reply", zap.Error(err))
		return
	}
	if err := c.publisher.Publish(ctx, channel, payload); err != nil {
		c.logger.Warn("Failed to publish bus reply", zap.String("reply_to", channel), zap.Error(err))
	}
}

// Close stops consumption and releases the subscription
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.subscription.Close()
	})
	return err
}
