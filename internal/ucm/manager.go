package ucm

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/smazurov/ucmd/internal/events"
)

// Manager keeps at most one open session per card.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
	autoload []string
	logger   *slog.Logger
}

// NewManager creates a manager that opens sessions with opts. Cards named
// in autoload are re-opened when their hardware comes back.
func NewManager(opts Options, autoload []string) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		autoload: append([]string(nil), autoload...),
		logger:   logger,
	}
}

// Open returns the open session for name, opening it first if needed.
func (m *Manager) Open(ctx context.Context, name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[name]; ok {
		return s, nil
	}
	s, err := Open(ctx, name, m.opts)
	if err != nil {
		return nil, err
	}
	m.sessions[name] = s
	return s, nil
}

// Get returns the open session for name.
func (m *Manager) Get(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[name]
	if !ok {
		return nil, notFoundf("card %q is not open", name)
	}
	return s, nil
}

// IsOpen reports whether name has an open session.
func (m *Manager) IsOpen(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[name]
	return ok
}

// Close closes and forgets the session for name.
func (m *Manager) Close(name string) error {
	m.mu.Lock()
	s, ok := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()

	if !ok {
		return notFoundf("card %q is not open", name)
	}
	return s.Close()
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cards returns the names of the open sessions, sorted.
func (m *Manager) Cards() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleRegistryChange closes sessions whose card is no longer registered.
func (m *Manager) HandleRegistryChange() {
	if m.opts.Registry == nil {
		return
	}
	known := m.opts.Registry.Names()
	for _, name := range m.Cards() {
		if slices.Contains(known, name) {
			continue
		}
		m.logger.Info("Card removed from registry, closing session", "card", name)
		if err := m.Close(name); err != nil {
			m.logger.Warn("Failed to close session", "card", name, "error", err)
		}
	}
}

// HandleHotplug closes a card's session when its control device goes away
// and re-opens autoload cards when it comes back.
func (m *Manager) HandleHotplug(ctx context.Context, ev events.CardHotplugEvent) {
	name := ev.Card
	if name == "" {
		name = m.cardByNumber(ev.Number)
	}
	if name == "" {
		m.logger.Debug("Hotplug event for unregistered card", "number", ev.Number, "action", ev.Action)
		return
	}

	switch ev.Action {
	case "remove":
		if !m.IsOpen(name) {
			return
		}
		m.logger.Info("Card removed, closing session", "card", name)
		if err := m.Close(name); err != nil {
			m.logger.Warn("Failed to close session", "card", name, "error", err)
		}
	case "add":
		if !slices.Contains(m.autoload, name) || m.IsOpen(name) {
			return
		}
		m.logger.Info("Card added, opening session", "card", name)
		if _, err := m.Open(ctx, name); err != nil {
			m.logger.Error("Failed to open session", "card", name, "error", err)
		}
	}
}

func (m *Manager) cardByNumber(n int) string {
	if m.opts.Registry == nil {
		return ""
	}
	for _, name := range m.opts.Registry.Names() {
		info, err := m.opts.Registry.Lookup(name)
		if err == nil && info.Number == n {
			return name
		}
	}
	return ""
}
