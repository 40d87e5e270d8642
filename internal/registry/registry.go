// Package registry holds the set of sound cards the daemon can open,
// loaded from a cards.toml file and optionally completed from the cards the
// kernel currently exposes.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/ucmd/internal/config"
	"github.com/smazurov/ucmd/internal/ucm"
)

// DefaultConfigDir is where use case files live when cards.toml names no
// directory.
const DefaultConfigDir = "/etc/ucmd/usecases"

// cardEntry is one [[cards]] table. Number is a pointer so an absent number
// can be told apart from card 0.
type cardEntry struct {
	Name        string `toml:"name"`
	Number      *int   `toml:"number,omitempty"`
	ControlPath string `toml:"control_path,omitempty"`
	ConfigDir   string `toml:"config_dir,omitempty"`
	Master      string `toml:"master,omitempty"`
}

type file struct {
	ConfigDir string      `toml:"config_dir,omitempty"`
	Cards     []cardEntry `toml:"cards"`
}

// Registry is a concurrency-safe, ordered set of cards. It implements
// ucm.Registry.
type Registry struct {
	mu        sync.RWMutex
	path      string
	configDir string
	cards     []ucm.CardInfo
	listeners []func([]ucm.CardInfo)
}

var _ ucm.Registry = (*Registry)(nil)

// New returns a registry holding cards, not backed by a file.
func New(cards ...ucm.CardInfo) *Registry {
	r := &Registry{configDir: DefaultConfigDir}
	r.cards = normalize(cards, r.configDir)
	return r
}

// Load reads path. A missing file yields an empty registry that Save will
// create.
func Load(path string) (*Registry, error) {
	configDir, cards, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &Registry{path: path, configDir: configDir, cards: cards}, nil
}

// readFile decodes a cards file and fills in defaults.
func readFile(path string) (string, []ucm.CardInfo, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfigDir, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to read cards file: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (string, []ucm.CardInfo, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("failed to parse cards file: %w", err)
	}
	configDir := f.ConfigDir
	if configDir == "" {
		configDir = DefaultConfigDir
	}

	cards := make([]ucm.CardInfo, 0, len(f.Cards))
	seen := make(map[string]bool, len(f.Cards))
	for i, e := range f.Cards {
		if e.Name == "" {
			return "", nil, fmt.Errorf("cards[%d]: missing name", i)
		}
		if seen[e.Name] {
			return "", nil, fmt.Errorf("cards[%d]: duplicate card %q", i, e.Name)
		}
		seen[e.Name] = true

		info := ucm.CardInfo{
			Name:        e.Name,
			ControlPath: e.ControlPath,
			ConfigDir:   e.ConfigDir,
			Master:      e.Master,
		}
		if e.Number != nil {
			info.Number = *e.Number
		}
		cards = append(cards, info)
	}
	return configDir, normalize(cards, configDir), nil
}

// normalize applies the per-card defaults.
func normalize(cards []ucm.CardInfo, configDir string) []ucm.CardInfo {
	out := make([]ucm.CardInfo, len(cards))
	for i, c := range cards {
		if c.ConfigDir == "" {
			c.ConfigDir = configDir
		}
		if c.ControlPath == "" {
			c.ControlPath = defaultControlPath(c.Number)
		}
		out[i] = c
	}
	return out
}

// Path returns the backing file, or "" for an in-memory registry.
func (r *Registry) Path() string {
	return r.path
}

// ConfigDir returns the file-level use case directory.
func (r *Registry) ConfigDir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configDir
}

// Lookup returns the card called name.
func (r *Registry) Lookup(name string) (ucm.CardInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cards {
		if c.Name == name {
			return c, nil
		}
	}
	return ucm.CardInfo{}, ucm.NewError(ucm.CodeNotFound, fmt.Sprintf("unknown card %q", name),
		map[string]any{"card": name})
}

// Names returns the card names in file order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.cards))
	for i, c := range r.cards {
		names[i] = c.Name
	}
	return names
}

// Cards returns a copy of every card.
func (r *Registry) Cards() []ucm.CardInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.cards)
}

// Replace swaps the card list and notifies OnChange listeners.
func (r *Registry) Replace(cards []ucm.CardInfo) {
	r.mu.Lock()
	r.cards = normalize(cards, r.configDir)
	snapshot := slices.Clone(r.cards)
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Upsert adds card or replaces the card with the same name.
func (r *Registry) Upsert(card ucm.CardInfo) {
	cards := r.Cards()
	if i := slices.IndexFunc(cards, func(c ucm.CardInfo) bool { return c.Name == card.Name }); i >= 0 {
		cards[i] = card
	} else {
		cards = append(cards, card)
	}
	r.Replace(cards)
}

// OnChange registers fn to run after every Replace.
func (r *Registry) OnChange(fn func([]ucm.CardInfo)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Save writes the registry back to its file. Values equal to the defaults
// are omitted.
func (r *Registry) Save() error {
	if r.path == "" {
		return errors.New("registry has no backing file")
	}

	r.mu.RLock()
	f := file{Cards: make([]cardEntry, 0, len(r.cards))}
	if r.configDir != DefaultConfigDir {
		f.ConfigDir = r.configDir
	}
	for _, c := range r.cards {
		n := c.Number
		e := cardEntry{Name: c.Name, Number: &n, Master: c.Master}
		if c.ControlPath != defaultControlPath(c.Number) {
			e.ControlPath = c.ControlPath
		}
		if c.ConfigDir != r.configDir {
			e.ConfigDir = c.ConfigDir
		}
		f.Cards = append(f.Cards, e)
	}
	r.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal cards file: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cards file: %w", err)
	}
	return nil
}

// Watch re-reads the backing file whenever it changes and applies it with
// Replace. The caller stops the returned watcher.
func (r *Registry) Watch(logger *slog.Logger, opts ...config.WatcherOption[[]ucm.CardInfo]) (*config.Watcher[[]ucm.CardInfo], error) {
	if r.path == "" {
		return nil, errors.New("registry has no backing file")
	}
	loader := func(path string) ([]ucm.CardInfo, error) {
		configDir, cards, err := readFile(path)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.configDir = configDir
		r.mu.Unlock()
		return cards, nil
	}

	w := config.NewConfigWatcher(r.path, loader, logger, opts...)
	w.OnReload(func(cards []ucm.CardInfo) {
		logger.Info("Card registry reloaded", "cards", len(cards))
		r.Replace(cards)
	})
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("watch cards file: %w", err)
	}
	return w, nil
}
