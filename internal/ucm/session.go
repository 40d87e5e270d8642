package ucm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/metrics"
)

// Identifiers accepted by Get, GetList, GetI and Set.
const (
	IdentVerb             = "_verb"
	IdentVerbs            = "_verbs"
	IdentDevices          = "_devices"
	IdentModifiers        = "_modifiers"
	IdentEnabledDevices   = "_enadevs"
	IdentEnabledModifiers = "_enamods"
	IdentEnableDevice     = "_enadev"
	IdentDisableDevice    = "_disdev"
	IdentEnableModifier   = "_enamod"
	IdentDisableModifier  = "_dismod"
	IdentSwitchDevice     = "_swdev"
	IdentSwitchModifier   = "_swmod"
	IdentDeviceStatus     = "_devstatus"
	IdentModifierStatus   = "_modstatus"

	IdentPlaybackPCM = "PlaybackPCM"
	IdentCapturePCM  = "CapturePCM"
	IdentPlaybackCTL = "PlaybackCTL"
	IdentCaptureCTL  = "CaptureCTL"
)

// Publisher receives session state changes. *events.Bus satisfies it.
type Publisher interface {
	Publish(ev events.Event)
}

// Options configures a session.
type Options struct {
	Registry    Registry
	MixerOpener MixerOpener
	// Calibrator defaults to UnsupportedCalibrator.
	Calibrator Calibrator
	Logger     *slog.Logger
	Events     Publisher
	// StrictDisable makes a guard-refused _disdev return ErrDeviceBusy
	// instead of succeeding without a state change.
	StrictDisable bool
}

// Session is the run-time use case state of one open card. All methods are
// safe for concurrent use, including while the background parse runs.
type Session struct {
	mu       sync.Mutex
	info     CardInfo
	card     Card
	registry Registry
	mixer    Mixer
	cal      Calibrator
	logger   *slog.Logger
	events   Publisher
	strict   bool

	verb      string
	verbIndex int
	devices   IdentList
	modifiers IdentList
	rxID      int
	txID      int

	deviceSnapshot   []string
	modifierSnapshot []string

	parseCancel context.CancelFunc
	parseDone   chan struct{}
	parseWG     sync.WaitGroup
	parseErrs   []string
	parsed      bool
	closed      bool
}

// Open resolves name through the registry, parses the first verb of the
// card's master file and starts parsing the remaining verbs in the
// background. A parse failure is logged and recorded in ParseErrors; the
// session is still returned with whatever was parsed.
func Open(ctx context.Context, name string, opts Options) (*Session, error) {
	if name == "" {
		return nil, invalidArgf("empty card name")
	}
	if opts.Registry == nil {
		return nil, invalidArgf("no card registry")
	}
	info, err := opts.Registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if info.ControlPath == "" {
		info.ControlPath = fmt.Sprintf("/dev/snd/controlC%d", info.Number)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cal := opts.Calibrator
	if cal == nil {
		cal = UnsupportedCalibrator{}
	}

	s := &Session{
		info:      info,
		card:      Card{Info: info},
		registry:  opts.Registry,
		cal:       cal,
		logger:    logger.With("card", info.Name),
		events:    opts.Events,
		strict:    opts.StrictDisable,
		verb:      VerbInactive,
		verbIndex: -1,
		rxID:      -1,
		txID:      -1,
		parseDone: make(chan struct{}),
	}
	s.logger.Info("Opening use case manager", "number", info.Number, "control", info.ControlPath)

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	start := time.Now()
	entries, rest := s.parseFirst()
	metrics.ObserveParse(info.Name, "first", time.Since(start))

	if rest {
		parseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.parseCancel = cancel
		s.parseWG.Add(1)
		go s.parseRemaining(parseCtx, entries[1:], start)
	} else {
		s.mu.Lock()
		s.parsed = true
		s.mu.Unlock()
		close(s.parseDone)
	}

	if opts.MixerOpener != nil {
		m, err := opts.MixerOpener(info)
		if err != nil {
			s.logger.Error("Failed to open mixer", "control", info.ControlPath, "error", err)
		} else {
			s.mixer = m
		}
	}
	if err := s.cal.Init(); err != nil {
		s.logger.Warn("Calibration loader unavailable", "error", err)
	}

	s.publish(events.SessionOpenedEvent{Card: info.Name, Timestamp: timestamp()})
	s.recordState()
	return s, nil
}

// parseFirst parses the master file and the first verb it lists. It
// reports whether the background stage should run.
func (s *Session) parseFirst() ([]MasterEntry, bool) {
	entries, err := ParseMaster(s.info.MasterPath())
	if err != nil {
		s.logger.Error("Failed to parse master config", "path", s.info.MasterPath(), "error", err)
		s.recordParseError(err)
		return nil, false
	}
	if len(entries) == 0 {
		s.logger.Warn("Master config lists no use cases", "path", s.info.MasterPath())
		return nil, false
	}

	v, err := ParseVerbFile(joinConfigPath(s.info.ConfigDir, entries[0].File), entries[0].Verb, s.info.Name)
	if err != nil {
		s.logger.Error("Failed to parse verb", "verb", entries[0].Verb, "error", err)
		s.recordParseError(err)
		return entries, false
	}
	s.mu.Lock()
	s.card.Verbs = append(s.card.Verbs, v)
	s.mu.Unlock()
	s.logger.Debug("Parsed verb", "verb", v.Name, "devices", len(v.Devices), "modifiers", len(v.Modifiers))
	return entries, true
}

func (s *Session) parseRemaining(ctx context.Context, entries []MasterEntry, start time.Time) {
	defer s.parseWG.Done()
	defer close(s.parseDone)

	for _, e := range entries {
		if ctx.Err() != nil {
			s.logger.Debug("Background parse cancelled")
			return
		}
		v, err := ParseVerbFile(joinConfigPath(s.info.ConfigDir, e.File), e.Verb, s.info.Name)
		if err != nil {
			s.logger.Error("Failed to parse verb", "verb", e.Verb, "error", err)
			s.recordParseError(err)
			continue
		}
		s.mu.Lock()
		s.card.Verbs = append(s.card.Verbs, v)
		s.mu.Unlock()
		s.logger.Debug("Parsed verb", "verb", v.Name, "devices", len(v.Devices), "modifiers", len(v.Modifiers))
	}

	elapsed := time.Since(start)
	metrics.ObserveParse(s.info.Name, "full", elapsed)

	s.mu.Lock()
	s.parsed = true
	ev := events.ParseCompletedEvent{
		Card:       s.info.Name,
		Verbs:      s.card.VerbNames(),
		Errors:     append([]string(nil), s.parseErrs...),
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  timestamp(),
	}
	s.mu.Unlock()

	s.logger.Info("Use case parsing complete", "verbs", len(ev.Verbs), "errors", len(ev.Errors), "duration", elapsed)
	s.publish(ev)
}

func (s *Session) recordParseError(err error) {
	s.mu.Lock()
	s.parseErrs = append(s.parseErrs, err.Error())
	s.mu.Unlock()
}

// Close stops the background parse, disables every active use case and
// releases the mixer and calibration loader.
func (s *Session) Close() error {
	if s.parseCancel != nil {
		s.parseCancel()
	}
	s.parseWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return invalidArgf("session for %q already closed", s.info.Name)
	}
	s.resetLocked()
	s.card.Verbs = nil

	if err := s.cal.Deinit(); err != nil && !errors.Is(err, ErrUnsupported) {
		s.logger.Warn("Calibration deinit failed", "error", err)
	}
	var closeErr error
	if s.mixer != nil {
		if err := s.mixer.Close(); err != nil {
			closeErr = fmt.Errorf("close mixer: %w", err)
		}
		s.mixer = nil
	}
	s.closed = true

	s.publish(events.SessionClosedEvent{Card: s.info.Name, Timestamp: timestamp()})
	metrics.DeleteCardMetrics(s.info.Name)
	s.logger.Info("Closed use case manager")
	return closeErr
}

// Reset disables every active modifier, the current verb and every active
// device, leaving the session Inactive.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.resetLocked()
	s.recordState()
	return nil
}

func (s *Session) resetLocked() {
	mods := s.modifiers.Names()
	for i := len(mods) - 1; i >= 0; i-- {
		_ = s.modifiers.Remove(mods[i])
		if err := s.identSetControlsForAllDevices(mods[i], false); err != nil {
			s.logger.Debug("Modifier disable during reset failed", "modifier", mods[i], "error", err)
		}
	}

	if s.verb != VerbInactive {
		if err := s.identSetControlsForAllDevices(s.verb, false); err != nil {
			s.logger.Debug("Verb disable during reset failed", "verb", s.verb, "error", err)
		}
		s.verb = VerbInactive
	}

	devs := s.devices.Names()
	for i := len(devs) - 1; i >= 0; i-- {
		_ = s.devices.Remove(devs[i])
		if err := s.setDeviceForAllIdent(devs[i], false); err != nil {
			s.logger.Debug("Device disable during reset failed", "device", devs[i], "error", err)
		}
	}

	s.deviceSnapshot = nil
	s.modifierSnapshot = nil
	s.rxID, s.txID = -1, -1
}

// Reload is accepted for API compatibility and does nothing.
func (s *Session) Reload() error {
	return nil
}

// Wait blocks until the background parse finished or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.parseDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseErrors returns the verb parse failures seen so far.
func (s *Session) ParseErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.parseErrs...)
}

// Name returns the card name the session was opened with.
func (s *Session) Name() string {
	return s.info.Name
}

// Info returns the card identity resolved at open.
func (s *Session) Info() CardInfo {
	return s.info
}

func (s *Session) checkOpen() error {
	if s.closed {
		return invalidArgf("session for %q is closed", s.info.Name)
	}
	return nil
}

// Get returns a single value. The empty identifier returns the card name.
func (s *Session) Get(identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	if identifier == "" {
		return s.info.Name, nil
	}
	if identifier == IdentVerb {
		return s.verb, nil
	}

	kind, name, _ := strings.Cut(identifier, "/")
	switch kind {
	case IdentPlaybackPCM, IdentCapturePCM:
		t := s.table()
		if t == nil {
			return "", invalidArgf("invalid current verb %q", s.verb)
		}
		rec, ok := t.Record(name)
		if !ok {
			return "", invalidArgf("no device or modifier %q", name)
		}
		value := rec.PlaybackPCM
		if kind == IdentCapturePCM {
			value = rec.CapturePCM
		}
		if value == "" {
			return "", noDevicef("%s not set for %q", kind, name)
		}
		return value, nil
	case IdentPlaybackCTL, IdentCaptureCTL:
		if s.info.ControlPath == "" {
			return "", noDevicef("no control device for %q", s.info.Name)
		}
		return s.info.ControlPath, nil
	}
	return "", invalidArgf("unknown identifier %q", identifier)
}

// GetList returns a list of names. The empty identifier returns the card
// names known to the registry.
func (s *Session) GetList(identifier string) ([]string, error) {
	if identifier == "" {
		return s.registry.Names(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	switch identifier {
	case IdentVerbs:
		return s.card.VerbNames(), nil
	case IdentDevices, IdentModifiers:
		if s.verb == VerbInactive {
			return nil, invalidArgf("no verb set, current verb is %s", VerbInactive)
		}
		i := s.card.VerbIndex(s.verb)
		if i < 0 {
			return nil, invalidArgf("verb %q not parsed", s.verb)
		}
		v := s.card.Verbs[i]
		if identifier == IdentDevices {
			return append([]string(nil), v.Devices...), nil
		}
		return append([]string(nil), v.Modifiers...), nil
	case IdentEnabledDevices:
		s.deviceSnapshot = rebuildSnapshot(&s.devices)
		return append([]string(nil), s.deviceSnapshot...), nil
	case IdentEnabledModifiers:
		s.modifierSnapshot = rebuildSnapshot(&s.modifiers)
		return append([]string(nil), s.modifierSnapshot...), nil
	}
	return nil, invalidArgf("unknown list identifier %q", identifier)
}

// rebuildSnapshot copies l by position, replacing the previous snapshot.
func rebuildSnapshot(l *IdentList) []string {
	out := make([]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		name, err := l.At(i)
		if err != nil {
			break
		}
		out = append(out, name)
	}
	return out
}

// GetI returns 1 if the named device or modifier is in the enabled set.
func (s *Session) GetI(identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	kind, name, ok := strings.Cut(identifier, "/")
	if !ok || name == "" {
		return 0, invalidArgf("invalid identifier %q", identifier)
	}
	var list *IdentList
	switch kind {
	case IdentDeviceStatus:
		list = &s.devices
	case IdentModifierStatus:
		list = &s.modifiers
	default:
		return 0, invalidArgf("unknown identifier %q", identifier)
	}
	if list.Contains(name) {
		return 1, nil
	}
	return 0, nil
}

// Set changes the verb or enables, disables or switches a device or
// modifier. _swdev/<old> and _swmod/<old> disable old and enable value.
func (s *Session) Set(identifier, value string) error {
	err := s.set(identifier, value)
	metrics.RecordSet(s.info.Name, strings.SplitN(identifier, "/", 2)[0], err)
	return err
}

func (s *Session) set(identifier, value string) error {
	kind, old, compound := strings.Cut(identifier, "/")
	if compound {
		switch kind {
		case IdentSwitchDevice:
			return s.switchDevice(old, value)
		case IdentSwitchModifier:
			return s.switchModifier(old, value)
		}
		return invalidArgf("unknown identifier %q", identifier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if value == "" {
		return invalidArgf("empty value for %q", identifier)
	}
	s.logger.Debug("Set", "identifier", identifier, "value", value)

	var err error
	switch identifier {
	case IdentVerb:
		err = s.setVerb(value)
	case IdentEnableDevice:
		err = s.enableDevice(value)
	case IdentDisableDevice:
		err = s.disableDevice(value)
	case IdentEnableModifier:
		err = s.enableModifier(value)
	case IdentDisableModifier:
		err = s.disableModifier(value)
	default:
		return invalidArgf("unknown identifier %q", identifier)
	}
	s.recordState()
	return err
}

// switchDevice releases the lock between the disable and enable steps;
// the enable step goes through Set and takes it again.
func (s *Session) switchDevice(old, value string) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	if old != "" {
		if err := s.devices.Remove(old); err != nil {
			s.logger.Debug("Ignoring disable of device not in enabled list", "device", old)
		} else {
			if err := s.setDeviceForAllIdent(old, false); err != nil {
				s.logger.Debug("Device not disabled cleanly", "device", old, "error", err)
			}
			s.publish(events.DeviceDisabledEvent{Card: s.info.Name, Device: old, Timestamp: timestamp()})
		}
	}
	s.mu.Unlock()
	return s.set(IdentEnableDevice, value)
}

func (s *Session) switchModifier(old, value string) error {
	if old != "" {
		if err := s.set(IdentDisableModifier, old); err != nil {
			s.logger.Debug("Modifier not disabled", "modifier", old, "error", err)
		}
	}
	return s.set(IdentEnableModifier, value)
}

func (s *Session) setVerb(value string) error {
	index := s.card.VerbIndex(value)
	if index < 0 && value != VerbInactive {
		return invalidArgf("invalid verb %q", value)
	}

	from := s.verb
	if from != VerbInactive {
		if err := s.identSetControlsForAllDevices(from, false); err != nil {
			s.logger.Error("Failed to disable controls for verb", "verb", from, "error", err)
		}
	}

	s.verb = value
	var err error
	if value != VerbInactive {
		s.verbIndex = index
		err = s.identSetControlsForAllDevices(value, true)
	}
	s.logger.Info("Verb changed", "from", from, "to", value)
	s.publish(events.VerbChangedEvent{Card: s.info.Name, From: from, To: value, Timestamp: timestamp()})
	return err
}

func (s *Session) enableDevice(dev string) error {
	if s.devices.Contains(dev) {
		s.logger.Debug("Device already enabled", "device", dev)
		return nil
	}
	s.devices.Add(dev)
	err := s.setDeviceForAllIdent(dev, true)
	s.publish(events.DeviceEnabledEvent{Card: s.info.Name, Device: dev, Timestamp: timestamp()})
	return err
}

func (s *Session) disableDevice(dev string) error {
	active, err := s.devices.Active(dev)
	if err != nil {
		return err
	}
	// A device without its own record is never marked active, but its
	// composites may still be applied, so the guard runs first.
	if reason, busy := s.deviceInUse(dev); busy {
		s.logger.Info("Device still in use, ignoring disable", "device", dev, "use_case", reason)
		s.publish(events.DeviceDisableRefusedEvent{
			Card:      s.info.Name,
			Device:    dev,
			Reason:    reason,
			Timestamp: timestamp(),
		})
		if s.strict {
			return NewError(CodeDeviceBusy, fmt.Sprintf("device %q still used by %q", dev, reason),
				map[string]any{"device": dev, "use_case": reason})
		}
		return nil
	}

	if err := s.devices.Remove(dev); err != nil {
		return err
	}
	if !active {
		// Nothing was written for this device.
		s.publish(events.DeviceDisabledEvent{Card: s.info.Name, Device: dev, Timestamp: timestamp()})
		return nil
	}
	err = s.applyControls(dev, false)
	s.publish(events.DeviceDisabledEvent{Card: s.info.Name, Device: dev, Timestamp: timestamp()})
	return err
}

func (s *Session) enableModifier(mod string) error {
	t := s.table()
	if t == nil {
		return invalidArgf("no verb selected")
	}
	if !t.HasModifier(mod) {
		return invalidArgf("invalid modifier %q for verb %q", mod, t.Name)
	}
	if s.modifiers.Contains(mod) {
		s.logger.Debug("Modifier already enabled", "modifier", mod)
		return nil
	}
	s.modifiers.Add(mod)
	err := s.identSetControlsForAllDevices(mod, true)
	s.publish(events.ModifierEnabledEvent{Card: s.info.Name, Modifier: mod, Timestamp: timestamp()})
	return err
}

func (s *Session) disableModifier(mod string) error {
	if err := s.modifiers.Remove(mod); err != nil {
		return err
	}
	err := s.identSetControlsForAllDevices(mod, false)
	s.publish(events.ModifierDisabledEvent{Card: s.info.Name, Modifier: mod, Timestamp: timestamp()})
	return err
}

// Snapshot returns a deep copy of the parsed card and the current state.
func (s *Session) Snapshot() CardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := CardSnapshot{
		Card:             s.info.Name,
		Number:           s.info.Number,
		ControlPath:      s.info.ControlPath,
		ParseComplete:    s.parsed,
		CurrentVerb:      s.verb,
		EnabledDevices:   s.devices.Names(),
		EnabledModifiers: s.modifiers.Names(),
		RxID:             s.rxID,
		TxID:             s.txID,
		Verbs:            make([]Verb, len(s.card.Verbs)),
	}
	s.devices.Each(func(name string, active bool) {
		if active {
			snap.ActiveDevices = append(snap.ActiveDevices, name)
		}
	})
	for i, v := range s.card.Verbs {
		snap.Verbs[i] = cloneVerb(v)
	}
	return snap
}
