package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/ucmd/internal/events"
)

// eventTypes maps SSE event names to the payloads sent on /api/events.
var eventTypes = map[string]any{
	"verb-changed":           events.VerbChangedEvent{},
	"device-enabled":         events.DeviceEnabledEvent{},
	"device-disabled":        events.DeviceDisabledEvent{},
	"device-disable-refused": events.DeviceDisableRefusedEvent{},
	"modifier-enabled":       events.ModifierEnabledEvent{},
	"modifier-disabled":      events.ModifierDisabledEvent{},
	"parse-completed":        events.ParseCompletedEvent{},
	"calibration-pushed":     events.CalibrationPushedEvent{},
	"session-opened":         events.SessionOpenedEvent{},
	"session-closed":         events.SessionClosedEvent{},
	"card-hotplug":           events.CardHotplugEvent{},
}

// subscribeAll forwards every card state event on the bus to ch.
func subscribeAll(bus *events.Bus, ch chan<- any) func() {
	unsubscribers := []func(){
		events.SubscribeToChannel[events.VerbChangedEvent](bus, ch),
		events.SubscribeToChannel[events.DeviceEnabledEvent](bus, ch),
		events.SubscribeToChannel[events.DeviceDisabledEvent](bus, ch),
		events.SubscribeToChannel[events.DeviceDisableRefusedEvent](bus, ch),
		events.SubscribeToChannel[events.ModifierEnabledEvent](bus, ch),
		events.SubscribeToChannel[events.ModifierDisabledEvent](bus, ch),
		events.SubscribeToChannel[events.ParseCompletedEvent](bus, ch),
		events.SubscribeToChannel[events.CalibrationPushedEvent](bus, ch),
		events.SubscribeToChannel[events.SessionOpenedEvent](bus, ch),
		events.SubscribeToChannel[events.SessionClosedEvent](bus, ch),
		events.SubscribeToChannel[events.CardHotplugEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}

// registerSSERoutes registers the card state event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of verb, device and modifier changes, parse results, calibration pushes and card hotplug",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)
		unsubscribe := subscribeAll(s.eventBus, eventCh)
		defer unsubscribe()

		dropped := s.eventBus.Dropped()
		forward(ctx, eventCh, send)
		if n := s.eventBus.Dropped() - dropped; n > 0 {
			s.logger.Warn("Events dropped for slow SSE clients", "dropped", n)
		}
	})
}

// forward sends events from ch until ctx ends or the client goes away.
func forward(ctx context.Context, ch <-chan any, send sse.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if err := send.Data(event); err != nil {
				return
			}
		}
	}
}
