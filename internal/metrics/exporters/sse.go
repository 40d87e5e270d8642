package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically exports per-card session counters as events.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	for card, m := range metrics.GetAllCardMetrics() {
		s.eventBus.Publish(events.CardMetricsEvent{
			EventType:       "card_metrics",
			Card:            card,
			Verb:            m.Verb,
			ActiveDevices:   strconv.Itoa(m.ActiveDevices),
			ActiveModifiers: strconv.Itoa(m.ActiveModifiers),
			MixerWrites:     strconv.FormatUint(m.MixerWrites, 10),
			MixerErrors:     strconv.FormatUint(m.MixerErrors, 10),
		})
	}
}

// GetEventTypes returns event types for SSE endpoint registration.
func GetEventTypes() map[string]any {
	return map[string]any{
		"card-metrics": events.CardMetricsEvent{},
	}
}
