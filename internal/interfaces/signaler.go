package interfaces

import "context"

//go:generate mockgen -package=mock -source=signaler.go -destination=mock/signaler.go

// Signaler listens for invalidation commands and evicts cache entries accordingly
type Signaler interface {
	// OnCommand handles one raw bus message
	OnCommand(raw []byte)
	// Start consumes messages until ctx is cancelled or Close is called
	Start(ctx context.Context) error
	// Close stops consumption and releases the subscription
	Close() error
}

// Subscriber opens subscriptions on a message bus
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is an open bus subscription
type Subscription interface {
	// Messages yields message payloads; it is closed when the subscription ends
	Messages() <-chan []byte
	Close() error
}

// Publisher posts messages to a message bus
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Evictor removes cache entries
type Evictor interface {
	Evict(keys ...string)
}
