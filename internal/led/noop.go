package led

import "github.com/smazurov/ucmd/internal/logging"

// noop is used on boards without a usable LED.
type noop struct {
	logger logging.Logger
}

func newNoop(logger logging.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(role string, pattern Pattern) error {
	if n.logger != nil {
		n.logger.Debug("LED control not available", "role", role, "pattern", pattern)
	}
	return nil
}

func (n *noop) Available() []string {
	return []string{}
}
