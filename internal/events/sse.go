package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T into ch for the SSE routes,
// which select over a channel alongside the request context. A slow
// client never stalls the publishing session: when ch is full the event is
// dropped and counted in Bus.Dropped.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			bus.dropped.Add(1)
		}
	})
}

// Dropped reports how many events SSE subscribers have missed because
// their channel was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
