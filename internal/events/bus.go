package events

import (
	"sync/atomic"

	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
	dropped    atomic.Uint64
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(VerbChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case VerbChangedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceEnabledEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDisabledEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDisableRefusedEvent:
		event.Publish(b.dispatcher, e)
	case ModifierEnabledEvent:
		event.Publish(b.dispatcher, e)
	case ModifierDisabledEvent:
		event.Publish(b.dispatcher, e)
	case ParseCompletedEvent:
		event.Publish(b.dispatcher, e)
	case CalibrationPushedEvent:
		event.Publish(b.dispatcher, e)
	case SessionOpenedEvent:
		event.Publish(b.dispatcher, e)
	case SessionClosedEvent:
		event.Publish(b.dispatcher, e)
	case CardHotplugEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case CardMetricsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e DeviceEnabledEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(VerbChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceEnabledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDisabledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDisableRefusedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ModifierEnabledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ModifierDisabledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ParseCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CalibrationPushedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionClosedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CardHotplugEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CardMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
