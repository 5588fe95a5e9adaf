// Package bus implements the in-process command/query/event mediator.
// Commands, queries and events are dispatched on their Go type: a static
// registry keyed by type, not a class-object map.
package bus

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/mapyr/mcp-hangar/internal/events"
)

// Subscriber receives events of the types it was registered for.
type Subscriber func(events.Event)

// EventBus publishes domain events to subscribers, fire-and-forget.
// Delivery order to subscribers is registration order; a subscriber
// panic is logged and does not abort delivery to others.
type EventBus struct {
	mu          sync.RWMutex
	bytype      map[reflect.Type][]Subscriber
	all         []Subscriber
	logger      *slog.Logger
}

// NewEventBus constructs an EventBus. A nil logger falls back to slog.Default().
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		bytype: make(map[reflect.Type][]Subscriber),
		logger: logger,
	}
}

// Subscribe registers sub for events whose concrete type matches a sample
// value of the event type, e.g. Subscribe(events.ProviderDegraded{}, sub).
func (b *EventBus) Subscribe(sample events.Event, sub Subscriber) {
	t := reflect.TypeOf(sample)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bytype[t] = append(b.bytype[t], sub)
}

// SubscribeAll registers sub for every event published on the bus.
func (b *EventBus) SubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, sub)
}

// Publish delivers evt to every matching subscriber in registration order.
// Publish itself does not block on subscriber work beyond invoking the
// subscriber function; subscribers that need to do real work must offload
// it to their own goroutine.
func (b *EventBus) Publish(evt events.Event) {
	t := reflect.TypeOf(evt)
	b.mu.RLock()
	subs := append(append([]Subscriber{}, b.bytype[t]...), b.all...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, evt)
	}
}

func (b *EventBus) deliver(sub Subscriber, evt events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked", "event", evt.EventName(), "panic", r)
		}
	}()
	sub(evt)
}
