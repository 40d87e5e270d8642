package mixer

import (
	"log/slog"

	"github.com/smazurov/ucmd/internal/ucm"
)

// Logging wraps next so every control write is logged at debug level.
func Logging(next ucm.Mixer, logger *slog.Logger) ucm.Mixer {
	return &loggingMixer{next: next, logger: logger}
}

// LoggingOpener wraps every mixer opened by next with Logging.
func LoggingOpener(next ucm.MixerOpener, logger *slog.Logger) ucm.MixerOpener {
	return func(card ucm.CardInfo) (ucm.Mixer, error) {
		m, err := next(card)
		if err != nil {
			return nil, err
		}
		return Logging(m, logger.With("card", card.Name)), nil
	}
}

type loggingMixer struct {
	next   ucm.Mixer
	logger *slog.Logger
}

func (l *loggingMixer) Control(name string) (ucm.Control, error) {
	ctl, err := l.next.Control(name)
	if err != nil {
		return nil, err
	}
	return &loggingControl{next: ctl, name: name, logger: l.logger}, nil
}

func (l *loggingMixer) Close() error {
	l.logger.Debug("Closing mixer")
	return l.next.Close()
}

type loggingControl struct {
	next   ucm.Control
	name   string
	logger *slog.Logger
}

func (c *loggingControl) SetInt(v int) error {
	err := c.next.SetInt(v)
	c.logger.Debug("Mixer write", "control", c.name, "value", v, "error", err)
	return err
}

func (c *loggingControl) SetString(s string) error {
	err := c.next.SetString(s)
	c.logger.Debug("Mixer write", "control", c.name, "value", s, "error", err)
	return err
}

func (c *loggingControl) SetMulti(values []string) error {
	err := c.next.SetMulti(values)
	c.logger.Debug("Mixer write", "control", c.name, "values", values, "error", err)
	return err
}
