package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sysfsLEDPath = "/sys/class/leds"

// Kernel LED triggers.
const (
	triggerNone      = "none"
	triggerHeartbeat = "heartbeat"
)

// sysfs drives LEDs through /sys/class/leds/<name>/{trigger,brightness}.
type sysfs struct {
	root string
	leds map[string]string // role -> sysfs name
}

func newSysfs(root string, leds map[string]string) *sysfs {
	return &sysfs{root: root, leds: leds}
}

func (s *sysfs) Set(role string, pattern Pattern) error {
	name, ok := s.leds[role]
	if !ok {
		return fmt.Errorf("LED role %q not supported on this board", role)
	}
	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("LED %q not found: %w", name, err)
	}

	switch pattern {
	case PatternBlink:
		return s.write(dir, "trigger", triggerHeartbeat)
	case PatternSolid, PatternOff:
		if err := s.write(dir, "trigger", triggerNone); err != nil {
			return err
		}
		brightness := "0"
		if pattern == PatternSolid {
			brightness = "1"
		}
		return s.write(dir, "brightness", brightness)
	}
	return fmt.Errorf("unknown LED pattern %q", pattern)
}

func (s *sysfs) write(dir, attr, value string) error {
	if err := os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED %s: %w", attr, err)
	}
	return nil
}

func (s *sysfs) Available() []string {
	roles := make([]string, 0, len(s.leds))
	for role := range s.leds {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
