// Package logging provides structured logging with per-module log levels.
//
// # Overview
//
// Every logger is a log/slog logger. Records are routed to:
//   - the systemd journal when journald is reachable
//   - stdout, or Config.Output, when a terminal, pipe, socket or file is attached
//   - an in-memory ring buffer that backs the API log stream
//
// # Usage
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"mixer": "debug",
//			"api":   "warn",
//		},
//	})
//
// Then fetch a module logger:
//
//	logger := logging.GetLogger(logging.ModuleUCM).With("card", name)
//	logger.Info("Verb changed", "from", from, "to", to)
//
// Loggers obtained before Initialize are cached and pick up the configured
// level when it runs.
//
// # Viewing Logs
//
//	journalctl -t ucmd -f
//	journalctl -t ucmd MODULE=mixer
//	journalctl -t ucmd CARD=snd_soc_msm -p warning
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	ucm = "debug"
//	mixer = "warn"
package logging
