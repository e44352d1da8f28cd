// Package eventbus provides the event publication infrastructure for
// campaign lifecycle notifications.
package eventbus

import (
	"context"

	"github.com/nishchith-m1015/campaign-sync/pkg/events"
)

// Event is anything publishable on the campaign bus.
type Event interface {
	GetType() events.EventType
}

// EventPublisher emits campaign lifecycle events. The key partitions
// messages, callers pass the campaign ID so events for one campaign stay
// ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber registers handlers and consumes the stream. Handle
// must be called for every event type of interest before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event interface{}) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
