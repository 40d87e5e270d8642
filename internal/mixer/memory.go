// Package mixer provides ucm.Mixer implementations: the kernel ALSA control
// interface, an in-process recorder, and a logging decorator.
package mixer

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/smazurov/ucmd/internal/ucm"
)

// Write is one recorded control write.
type Write struct {
	Control string   `json:"control" yaml:"control"`
	Kind    string   `json:"kind" yaml:"kind"`
	Values  []string `json:"values" yaml:"values"`
}

// Memory is a mixer that records writes instead of touching hardware.
// By default every control name exists.
type Memory struct {
	mu      sync.Mutex
	writes  []Write
	known   map[string]bool
	failing map[string]error
	closed  bool
}

// NewMemory returns a mixer that accepts any control. When controls are
// given, only those exist and lookups of other names fail with
// ucm.ErrNoControl.
func NewMemory(controls ...string) *Memory {
	m := &Memory{failing: make(map[string]error)}
	if len(controls) > 0 {
		m.known = make(map[string]bool, len(controls))
		for _, c := range controls {
			m.known[c] = true
		}
	}
	return m
}

// Opener adapts m to ucm.MixerOpener, handing out m for every card.
func (m *Memory) Opener() ucm.MixerOpener {
	return func(ucm.CardInfo) (ucm.Mixer, error) {
		return m, nil
	}
}

// Fail makes writes to control return err.
func (m *Memory) Fail(control string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[control] = err
}

// Writes returns a copy of the recorded writes in order.
func (m *Memory) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// WritesTo returns the recorded writes to one control.
func (m *Memory) WritesTo(control string) []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Write
	for _, w := range m.writes {
		if w.Control == control {
			out = append(out, w)
		}
	}
	return out
}

// Reset forgets the recorded writes.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) Control(name string) (ucm.Control, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known != nil && !m.known[name] {
		return nil, fmt.Errorf("%w: %s", ucm.ErrNoControl, name)
	}
	return &memoryControl{m: m, name: name}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) record(control, kind string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing[control]; err != nil {
		return err
	}
	m.writes = append(m.writes, Write{Control: control, Kind: kind, Values: values})
	return nil
}

type memoryControl struct {
	m    *Memory
	name string
}

func (c *memoryControl) SetInt(v int) error {
	return c.m.record(c.name, "int", []string{strconv.Itoa(v)})
}

func (c *memoryControl) SetString(s string) error {
	return c.m.record(c.name, "string", []string{s})
}

func (c *memoryControl) SetMulti(values []string) error {
	return c.m.record(c.name, "multi", append([]string(nil), values...))
}
