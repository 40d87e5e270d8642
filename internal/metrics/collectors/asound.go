// Package collectors provides metrics collectors for kernel sound cards.
package collectors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/ucmd/internal/logging"
	"github.com/smazurov/ucmd/internal/metrics"
)

type cardKey struct {
	number int
	id     string
}

// soundCard is one line of /proc/asound/cards.
type soundCard struct {
	Number int
	ID     string
}

// AsoundCollector polls /proc/asound/cards and exports which cards the
// kernel currently lists.
type AsoundCollector struct {
	logger    *slog.Logger
	enumerate func() ([]soundCard, error)
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu   sync.Mutex
	seen map[cardKey]bool
}

// NewAsoundCollector creates a new kernel card collector.
func NewAsoundCollector() *AsoundCollector {
	return &AsoundCollector{
		logger:    logging.GetLogger("asound"),
		enumerate: enumerateCards,
		interval:  10 * time.Second,
		seen:      make(map[cardKey]bool),
	}
}

// Start begins collecting card presence.
func (a *AsoundCollector) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go a.run()
	return nil
}

// Stop stops the collector.
func (a *AsoundCollector) Stop() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	return nil
}

func (a *AsoundCollector) run() {
	defer a.wg.Done()
	a.logger.Info("Starting sound card collection", "interval", a.interval)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.collect()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.collect()
		}
	}
}

func (a *AsoundCollector) collect() {
	cards, err := a.enumerate()
	if err != nil {
		a.logger.Warn("Failed to enumerate sound cards", "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current := make(map[cardKey]bool, len(cards))
	for _, c := range cards {
		k := cardKey{number: c.Number, id: c.ID}
		current[k] = true
		metrics.SetKernelCardPresent(c.Number, c.ID)
	}
	for k := range a.seen {
		if !current[k] {
			metrics.DeleteKernelCard(k.number, k.id)
			a.logger.Info("Sound card went away", "number", k.number, "id", k.id)
		}
	}
	a.seen = current
}
