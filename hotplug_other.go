//go:build !linux

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/registry"
	"github.com/smazurov/ucmd/internal/ucm"
)

func startHotplug(_ context.Context, _ *registry.Registry, _ *ucm.Manager, _ *events.Bus, _ *slog.Logger) error {
	return errors.New("hotplug monitoring requires linux")
}
