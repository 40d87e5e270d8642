package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/registry"
	"github.com/smazurov/ucmd/internal/ucm"
	"github.com/smazurov/ucmd/pkg/linuxav/hotplug"
)

// startHotplug follows sound card uevents until ctx ends. Arrivals refresh
// kernel card numbers in the registry before the manager sees them.
func startHotplug(ctx context.Context, reg *registry.Registry, manager *ucm.Manager, bus *events.Bus, logger *slog.Logger) error {
	mon, err := hotplug.NewMonitor()
	if err != nil {
		return err
	}

	ch := make(chan hotplug.CardEvent, 16)
	go func() {
		defer mon.Close()
		if runErr := mon.Run(ctx, ch); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("Hotplug monitor stopped", "error", runErr)
		}
	}()

	go func() {
		for ce := range ch {
			if ce.Action == hotplug.ActionAdd {
				if _, discoverErr := reg.Discover(registry.KernelCards); discoverErr != nil {
					logger.Warn("Kernel card scan failed", "error", discoverErr)
				}
			}
			ev := events.CardHotplugEvent{
				Action:    ce.Action,
				Number:    ce.Number,
				DevName:   ce.DevName,
				Card:      cardByNumber(reg, ce.Number),
				Timestamp: time.Now().Format(time.RFC3339),
			}
			logger.Info("Sound card event", "action", ev.Action, "number", ev.Number, "card", ev.Card)
			bus.Publish(ev)
			manager.HandleHotplug(ctx, ev)
		}
	}()

	logger.Info("Watching sound card hotplug")
	return nil
}

func cardByNumber(reg *registry.Registry, n int) string {
	for _, c := range reg.Cards() {
		if c.Number == n {
			return c.Name
		}
	}
	return ""
}
