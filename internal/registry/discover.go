package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smazurov/ucmd/internal/ucm"
)

// KernelCard is a sound card as the kernel reports it.
type KernelCard struct {
	Number int    `json:"number"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Driver string `json:"driver,omitempty"`
}

// Lister enumerates the kernel's sound cards.
type Lister func() ([]KernelCard, error)

// Discover matches registered cards against the kernel's cards by ID or
// name, case-insensitively, and updates their numbers and default control
// paths. A kernel card that is not registered is added only when a master
// file named after its ID or name exists in the registry's config dir. It
// returns the kernel cards that matched nothing.
func (r *Registry) Discover(list Lister) ([]KernelCard, error) {
	kernel, err := list()
	if err != nil {
		return nil, fmt.Errorf("list kernel cards: %w", err)
	}

	cards := r.Cards()
	configDir := r.ConfigDir()
	changed := false
	var unmatched []KernelCard

	for _, kc := range kernel {
		i := indexOf(cards, kc)
		if i < 0 {
			if info, ok := masterFor(kc, configDir); ok {
				cards = append(cards, info)
				changed = true
				continue
			}
			unmatched = append(unmatched, kc)
			continue
		}

		c := &cards[i]
		if c.Number == kc.Number {
			continue
		}
		if c.ControlPath == defaultControlPath(c.Number) {
			c.ControlPath = defaultControlPath(kc.Number)
		}
		c.Number = kc.Number
		changed = true
	}

	if changed {
		r.Replace(cards)
	}
	return unmatched, nil
}

func indexOf(cards []ucm.CardInfo, kc KernelCard) int {
	for i, c := range cards {
		if strings.EqualFold(c.Name, kc.ID) || strings.EqualFold(c.Name, kc.Name) {
			return i
		}
	}
	return -1
}

func masterFor(kc KernelCard, configDir string) (ucm.CardInfo, bool) {
	for _, name := range []string{kc.Name, kc.ID} {
		if name == "" {
			continue
		}
		if fi, err := os.Stat(filepath.Join(configDir, name)); err == nil && fi.Mode().IsRegular() {
			return ucm.CardInfo{Name: name, Number: kc.Number, ConfigDir: configDir}, true
		}
	}
	return ucm.CardInfo{}, false
}

func defaultControlPath(n int) string {
	return fmt.Sprintf("/dev/snd/controlC%d", n)
}
