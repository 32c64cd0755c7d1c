package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(RequestDestroyedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the static type
	switch e := ev.(type) {
	case DecoderDeviceEvent:
		event.Publish(b.dispatcher, e)
	case DecoderStateEvent:
		event.Publish(b.dispatcher, e)
	case RequestDestroyedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type selects the events it receives. Unknown handler types get
// a no-op unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e DecoderDeviceEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DecoderDeviceEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DecoderStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RequestDestroyedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
