package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/ucmd/cmd"
	"github.com/smazurov/ucmd/internal/acdb"
	"github.com/smazurov/ucmd/internal/api"
	"github.com/smazurov/ucmd/internal/config"
	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/led"
	"github.com/smazurov/ucmd/internal/logging"
	"github.com/smazurov/ucmd/internal/metrics/collectors"
	"github.com/smazurov/ucmd/internal/metrics/exporters"
	"github.com/smazurov/ucmd/internal/mixer"
	"github.com/smazurov/ucmd/internal/registry"
	"github.com/smazurov/ucmd/internal/ucm"
	"github.com/smazurov/ucmd/internal/version"
)

// Mixer backends.
const (
	mixerALSA   = "alsa"
	mixerMemory = "memory"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"/etc/ucmd/config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8091" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Use case settings
	UCMCardsFile     string `help:"Card registry file" default:"/etc/ucmd/cards.toml" toml:"ucm.cards_file" env:"UCM_CARDS_FILE"`
	UCMConfigDir     string `help:"Use case directory, overriding the registry" toml:"ucm.config_dir" env:"UCM_CONFIG_DIR"`
	UCMAutoload      string `help:"Comma-separated cards to open at start and after hotplug" toml:"ucm.autoload" env:"UCM_AUTOLOAD"`
	UCMStrictDisable bool   `help:"Fail a device disable that an active use case still needs" default:"false" toml:"ucm.strict_disable" env:"UCM_STRICT_DISABLE"`
	UCMDiscover      bool   `help:"Match registry cards against kernel cards at start" default:"true" toml:"ucm.discover" env:"UCM_DISCOVER"`
	UCMWatch         bool   `help:"Reload the card registry when its file changes" default:"true" toml:"ucm.watch" env:"UCM_WATCH"`

	// Backends
	MixerBackend string `help:"Mixer backend (alsa, memory)" default:"alsa" toml:"mixer.backend" env:"MIXER_BACKEND"`
	ACDBBackend  string `help:"Calibration backend (none, log)" default:"none" toml:"acdb.backend" env:"ACDB_BACKEND"`

	// Features settings
	FeaturesHotplug bool `help:"Follow sound card hotplug events" default:"true" toml:"features.hotplug" env:"FEATURES_HOTPLUG"`
	FeaturesMetrics bool `help:"Enable Prometheus and metrics SSE" default:"true" toml:"features.metrics" env:"FEATURES_METRICS"`
	FeaturesLED     bool `help:"Show audio activity on a board LED" default:"false" toml:"features.led" env:"FEATURES_LED"`

	// LED settings
	LEDName string `help:"sysfs LED name, detected from the board when empty" toml:"led.name" env:"LED_NAME"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingUCM      string `help:"Use case session logging level" default:"info" toml:"logging.ucm" env:"LOGGING_UCM"`
	LoggingParser   string `help:"Config parser logging level" default:"info" toml:"logging.parser" env:"LOGGING_PARSER"`
	LoggingMixer    string `help:"Mixer logging level" default:"info" toml:"logging.mixer" env:"LOGGING_MIXER"`
	LoggingACDB     string `help:"Calibration logging level" default:"info" toml:"logging.acdb" env:"LOGGING_ACDB"`
	LoggingRegistry string `help:"Card registry logging level" default:"info" toml:"logging.registry" env:"LOGGING_REGISTRY"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingHotplug  string `help:"Hotplug logging level" default:"info" toml:"logging.hotplug" env:"LOGGING_HOTPLUG"`
	LoggingLED      string `help:"LED logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				logging.ModuleUCM:      opts.LoggingUCM,
				logging.ModuleParser:   opts.LoggingParser,
				logging.ModuleMixer:    opts.LoggingMixer,
				logging.ModuleACDB:     opts.LoggingACDB,
				logging.ModuleRegistry: opts.LoggingRegistry,
				logging.ModuleAPI:      opts.LoggingAPI,
				logging.ModuleHTTP:     opts.LoggingHTTP,
				logging.ModuleHotplug:  opts.LoggingHotplug,
				logging.ModuleLED:      opts.LoggingLED,
			},
		})
		logger := logging.GetLogger(logging.ModuleMain)
		logger.Info("Starting", "version", version.String())

		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Card:       entry.Card,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		reg, err := loadRegistry(opts, logging.GetLogger(logging.ModuleRegistry))
		if err != nil {
			logger.Error("Failed to load card registry", "file", opts.UCMCardsFile, "error", err)
			os.Exit(1)
		}

		mixerOpener, err := newMixerOpener(opts.MixerBackend)
		if err != nil {
			logger.Error("Invalid mixer backend", "error", err)
			os.Exit(1)
		}
		calibrator, err := acdb.New(opts.ACDBBackend, logging.GetLogger(logging.ModuleACDB))
		if err != nil {
			logger.Error("Invalid calibration backend", "error", err)
			os.Exit(1)
		}

		autoload := splitList(opts.UCMAutoload)
		manager := ucm.NewManager(ucm.Options{
			Registry:      reg,
			MixerOpener:   mixerOpener,
			Calibrator:    calibrator,
			Logger:        logging.GetLogger(logging.ModuleUCM),
			Events:        eventBus,
			StrictDisable: opts.UCMStrictDisable,
		}, autoload)
		reg.OnChange(func([]ucm.CardInfo) { manager.HandleRegistryChange() })

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CORSOrigin,
			Manager:      manager,
			Registry:     reg,
			EventBus:     eventBus,
		}
		var sseExporter *exporters.SSEExporter
		var asoundCollector *collectors.AsoundCollector
		if opts.FeaturesMetrics {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
			sseExporter = exporters.NewSSEExporter(eventBus)
			asoundCollector = collectors.NewAsoundCollector()
		}
		server := api.NewServer(apiOpts)

		var ledManager *led.Manager
		if opts.FeaturesLED {
			ledLogger := logging.GetLogger(logging.ModuleLED)
			ledManager = led.NewManager(led.New(opts.LEDName, ledLogger), eventBus, ledLogger)
		}

		ctx, cancel := context.WithCancel(context.Background())
		var registryWatcher *config.Watcher[[]ucm.CardInfo]

		hooks.OnStart(func() {
			if ledManager != nil {
				ledManager.Start()
			}

			for _, name := range autoload {
				if _, openErr := manager.Open(ctx, name); openErr != nil {
					logger.Error("Failed to open autoload card", "card", name, "error", openErr)
				}
			}

			if opts.UCMWatch {
				registryWatcher, err = reg.Watch(logging.GetLogger(logging.ModuleRegistry))
				if err != nil {
					logger.Warn("Card registry will not be reloaded", "error", err)
				}
			}

			if opts.FeaturesHotplug {
				if hpErr := startHotplug(ctx, reg, manager, eventBus, logging.GetLogger(logging.ModuleHotplug)); hpErr != nil {
					logger.Warn("Hotplug monitoring unavailable", "error", hpErr)
				}
			}

			if sseExporter != nil {
				sseExporter.Start(ctx)
			}
			if asoundCollector != nil {
				if startErr := asoundCollector.Start(ctx); startErr != nil {
					logger.Warn("Failed to start sound card collector", "error", startErr)
				}
			}

			if sent, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Warn("Failed to notify systemd", "error", notifyErr)
			} else if sent {
				logger.Debug("Notified systemd of readiness")
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			cancel()

			if registryWatcher != nil {
				if stopErr := registryWatcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping registry watcher", "error", stopErr)
				}
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			if asoundCollector != nil {
				_ = asoundCollector.Stop()
			}

			if ledManager != nil {
				ledManager.Stop()
			}

			// Sessions close last so devices are reset after clients are gone.
			if closeErr := manager.CloseAll(); closeErr != nil {
				logger.Error("Error closing sessions", "error", closeErr)
			}
		})
	})

	root := cli.Root()
	root.Use = version.Name
	root.Short = "Audio use case manager for ALSA sound cards"
	root.Version = version.String()
	root.AddCommand(
		cmd.CreateUCMCmd(),
		cmd.CreateCardsCmd(),
		cmd.CreateDumpCmd(),
		cmd.CreateValidateCmd(),
	)

	cli.Run()
}

// loadRegistry reads the cards file and applies discovery and the
// directory override.
func loadRegistry(opts *Options, logger *slog.Logger) (*registry.Registry, error) {
	reg, err := registry.Load(opts.UCMCardsFile)
	if err != nil {
		return nil, err
	}
	if opts.UCMConfigDir != "" {
		cards := reg.Cards()
		for i := range cards {
			cards[i].ConfigDir = opts.UCMConfigDir
		}
		reg.Replace(cards)
	}
	if opts.UCMDiscover {
		unmatched, discoverErr := reg.Discover(registry.KernelCards)
		if discoverErr != nil {
			logger.Warn("Kernel card scan failed", "error", discoverErr)
		}
		for _, kc := range unmatched {
			logger.Info("Kernel card has no use case files", "number", kc.Number, "id", kc.ID, "driver", kc.Driver)
		}
	}
	logger.Info("Card registry loaded", "file", opts.UCMCardsFile, "cards", reg.Names())
	return reg, nil
}

func newMixerOpener(backend string) (ucm.MixerOpener, error) {
	logger := logging.GetLogger(logging.ModuleMixer)
	switch backend {
	case "", mixerALSA:
		return mixer.LoggingOpener(mixer.OpenALSA, logger), nil
	case mixerMemory:
		return mixer.LoggingOpener(mixer.NewMemory().Opener(), logger), nil
	}
	return nil, errors.New("unknown mixer backend " + backend)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
