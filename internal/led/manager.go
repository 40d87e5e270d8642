package led

import (
	"sync"

	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/logging"
	"github.com/smazurov/ucmd/internal/ucm"
)

// Manager follows verb changes on every card and sets the activity LED:
// off while all cards are inactive, blinking while any card is in a call,
// solid otherwise.
type Manager struct {
	controller Controller
	eventBus   *events.Bus
	logger     logging.Logger

	mu      sync.Mutex
	verbs   map[string]string // card -> active verb
	current Pattern
	unsubs  []func()
}

// NewManager creates a Manager. Call Start to subscribe.
func NewManager(controller Controller, eventBus *events.Bus, logger logging.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
		verbs:      make(map[string]string),
	}
}

// Start turns the LED off and begins listening for card events.
func (m *Manager) Start() {
	m.mu.Lock()
	m.apply(PatternOff)
	m.mu.Unlock()

	m.unsubs = append(m.unsubs,
		m.eventBus.Subscribe(func(e events.VerbChangedEvent) {
			m.setVerb(e.Card, e.To)
		}),
		m.eventBus.Subscribe(func(e events.SessionClosedEvent) {
			m.setVerb(e.Card, ucm.VerbInactive)
		}),
	)
	m.logger.Info("LED manager started", "leds", m.controller.Available())
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil

	m.mu.Lock()
	m.apply(PatternOff)
	m.mu.Unlock()
	m.logger.Info("LED manager stopped")
}

// Pattern returns the pattern last applied.
func (m *Manager) Pattern() Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) setVerb(card, verb string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if verb == ucm.VerbInactive || verb == "" {
		delete(m.verbs, card)
	} else {
		m.verbs[card] = verb
	}
	m.logger.Debug("Card verb changed", "card", card, "verb", verb)
	m.apply(patternFor(m.verbs))
}

// patternFor maps the set of active verbs to an LED pattern.
func patternFor(verbs map[string]string) Pattern {
	if len(verbs) == 0 {
		return PatternOff
	}
	for _, verb := range verbs {
		if verb == ucm.VerbVoiceCall || verb == ucm.VerbVoiceIP {
			return PatternBlink
		}
	}
	return PatternSolid
}

// apply must be called with mu held.
func (m *Manager) apply(p Pattern) {
	if p == m.current {
		return
	}
	if err := m.controller.Set(RoleActivity, p); err != nil {
		m.logger.Warn("Failed to set activity LED", "pattern", p, "error", err)
		return
	}
	m.current = p
}
