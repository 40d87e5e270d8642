// Package cmd holds the one-shot subcommands of ucmd.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/ucmd/internal/acdb"
	"github.com/smazurov/ucmd/internal/logging"
	"github.com/smazurov/ucmd/internal/mixer"
	"github.com/smazurov/ucmd/internal/registry"
	"github.com/smazurov/ucmd/internal/ucm"
)

// DefaultCardsFile is the registry read when --cards is not given.
const DefaultCardsFile = "/etc/ucmd/cards.toml"

// sessionFlags are shared by the subcommands that open a card.
type sessionFlags struct {
	cards     string
	configDir string
	dryRun    bool
	wait      bool
	timeout   time.Duration
	logLevel  string
	acdb      string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cards, "cards", DefaultCardsFile, "Card registry file")
	cmd.Flags().StringVar(&f.configDir, "config-dir", "", "Use case directory, overriding the registry")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Second, "Maximum time to wait for verb files to parse")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "Logging level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.acdb, "acdb", acdb.BackendNone, "Calibration backend (none, log)")
}

// initLogging sends a one-shot command's logs to stderr.
func (f *sessionFlags) initLogging() {
	logging.Initialize(logging.Config{Level: f.logLevel, Format: "text", Output: os.Stderr})
}

// loadRegistry reads the card registry, scans kernel cards for entries
// the file does not list, and applies --config-dir.
func (f *sessionFlags) loadRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(f.cards)
	if err != nil {
		return nil, err
	}
	if _, err := reg.Discover(registry.KernelCards); err != nil {
		logging.GetLogger(logging.ModuleRegistry).Debug("Kernel card scan failed", "error", err)
	}
	if f.configDir != "" {
		cards := reg.Cards()
		for i := range cards {
			cards[i].ConfigDir = f.configDir
		}
		reg.Replace(cards)
	}
	return reg, nil
}

// openSession opens card. With dryRun the mixer is an in-memory recorder
// that is returned so callers can report the writes.
func (f *sessionFlags) openSession(ctx context.Context, card string) (*ucm.Session, *mixer.Memory, error) {
	reg, err := f.loadRegistry()
	if err != nil {
		return nil, nil, err
	}
	cal, err := acdb.New(f.acdb, logging.GetLogger(logging.ModuleACDB))
	if err != nil {
		return nil, nil, err
	}

	opts := ucm.Options{
		Registry:   reg,
		Calibrator: cal,
		Logger:     logging.GetLogger(logging.ModuleUCM),
	}
	var mem *mixer.Memory
	if f.dryRun {
		mem = mixer.NewMemory()
		opts.MixerOpener = mem.Opener()
	} else {
		opts.MixerOpener = mixer.LoggingOpener(mixer.OpenALSA, logging.GetLogger(logging.ModuleMixer))
	}

	sess, err := ucm.Open(ctx, card, opts)
	if err != nil {
		return nil, nil, err
	}
	if f.wait {
		waitCtx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		if err := sess.Wait(waitCtx); err != nil {
			_ = sess.Close()
			return nil, nil, fmt.Errorf("waiting for %s to parse: %w", card, err)
		}
	}
	return sess, mem, nil
}

// commandError formats err with the errno it maps to.
func commandError(action string, err error) error {
	return fmt.Errorf("%s: %w (errno %d)", action, err, ucm.Errno(err))
}

func closeSession(sess *ucm.Session) {
	if err := sess.Close(); err != nil {
		slog.Warn("Failed to close session", "card", sess.Name(), "error", err)
	}
}

func printWrites(mem *mixer.Memory) {
	if mem == nil {
		return
	}
	for _, w := range mem.Writes() {
		fmt.Fprintf(os.Stderr, "mixer: %s %s %v\n", w.Control, w.Kind, w.Values)
	}
}
