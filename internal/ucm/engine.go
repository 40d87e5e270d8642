package ucm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/metrics"
)

// errNoVoiceUseCase reports that no voice verb or modifier is active, so a
// record's calibration goes out as an audio table instead.
var errNoVoiceUseCase = errors.New("no voice use case active")

// The methods in this file expect s.mu to be held.

// table returns the record table records resolve against: the verb most
// recently selected with _verb. It stays selected after _verb Inactive.
func (s *Session) table() *Verb {
	if s.verbIndex < 0 || s.verbIndex >= len(s.card.Verbs) {
		return nil
	}
	return s.card.Verbs[s.verbIndex]
}

func (s *Session) lookup(name string) (*Record, bool) {
	t := s.table()
	if t == nil {
		return nil, false
	}
	return t.Record(name)
}

// applyControls writes the enable or disable sequence of the named case.
// A failed enable rolls back by writing the whole disable sequence.
func (s *Session) applyControls(name string, enable bool) error {
	t := s.table()
	if t == nil {
		return invalidArgf("no verb table selected (current verb %q)", s.verb)
	}
	rec, ok := t.Record(name)
	if !ok {
		return noDevicef("no use case %q in verb %q", name, t.Name)
	}
	if s.mixer == nil {
		return noDevicef("control device %s not open", s.info.ControlPath)
	}

	s.logger.Debug("Applying mixer controls", "case", name, "enable", enable)
	if enable && rec.HasCalibration() {
		if err := s.applyVoiceCalibration(rec); err != nil {
			s.pushAudioCalibration(rec)
		}
	}

	ops := rec.Disable
	if enable {
		ops = rec.Enable
	}
	var firstErr error
	for _, op := range ops {
		err := s.writeOp(op)
		if err == nil {
			continue
		}
		if enable {
			s.logger.Error("Failed to enable mixer controls, rolling back", "case", name, "control", op.Control, "error", err)
			for _, undo := range rec.Disable {
				if uerr := s.writeOp(undo); uerr != nil {
					s.logger.Warn("Rollback write failed", "case", name, "control", undo.Control, "error", uerr)
				}
			}
			return fmt.Errorf("enable %q: control %q: %w", name, op.Control, err)
		}
		s.logger.Warn("Failed to write disable control", "case", name, "control", op.Control, "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("disable %q: control %q: %w", name, op.Control, err)
		}
	}
	return firstErr
}

// writeOp writes one operation. Controls the card does not expose are
// skipped.
func (s *Session) writeOp(op MixerOp) error {
	ctl, err := s.mixer.Control(op.Control)
	if err != nil {
		s.logger.Debug("Skipping unknown mixer control", "control", op.Control, "error", err)
		return nil
	}
	switch op.Type {
	case OpInt:
		s.logger.Debug("Setting mixer control", "control", op.Control, "value", op.Int)
		err = ctl.SetInt(op.Int)
	case OpMulti:
		s.logger.Debug("Setting multi value", "control", op.Control, "values", op.Multi)
		err = ctl.SetMulti(op.Multi)
	default:
		s.logger.Debug("Setting mixer control", "control", op.Control, "value", op.String)
		err = ctl.SetString(op.String)
	}
	metrics.RecordMixerWrite(s.info.Name, op.Type.String(), err)
	return err
}

func (s *Session) voiceActive() bool {
	if strings.HasPrefix(s.verb, VerbVoiceCall) || strings.HasPrefix(s.verb, VerbVoiceIP) {
		return true
	}
	for _, m := range s.modifiers.Names() {
		if strings.HasPrefix(m, ModPlayVoice) || strings.HasPrefix(m, ModPlayVoIP) {
			return true
		}
	}
	return false
}

// applyVoiceCalibration pairs rec with the first other active device and
// pushes the RX/TX voice tables if the pair changed. Any error makes the
// caller fall back to an audio table push.
func (s *Session) applyVoiceCalibration(rec *Record) error {
	if !s.voiceActive() {
		s.rxID, s.txID = -1, -1
		return errNoVoiceUseCase
	}

	peerName := ""
	for _, d := range s.devices.Names() {
		if d != rec.Name {
			peerName = d
			break
		}
	}
	if peerName == "" {
		return nil
	}
	peer, ok := s.lookup(peerName)
	if !ok {
		s.logger.Error("No valid device found for voice calibration", "device", peerName)
		return invalidArgf("no record for device %q", peerName)
	}

	rx, tx := peer.AcdbID, rec.AcdbID
	if rec.Capability == CapRX {
		rx, tx = rec.AcdbID, peer.AcdbID
	}
	if rx == AcdbSpeakerRX && tx == AcdbHandsetTX {
		tx = AcdbSpeakerTX
	}
	if rx == s.rxID && tx == s.txID {
		s.logger.Debug("Voice calibration already pushed", "rx_id", rx, "tx_id", tx)
		return nil
	}

	s.rxID, s.txID = rx, tx
	s.logger.Debug("Pushing voice calibration", "rx_id", rx, "tx_id", tx)
	err := s.cal.SendVoiceCal(rx, tx)
	if err != nil {
		s.logger.Warn("Voice calibration push failed", "rx_id", rx, "tx_id", tx, "error", err)
	}
	metrics.RecordCalibration(s.info.Name, "voice", err)
	s.publish(events.CalibrationPushedEvent{
		Card:      s.info.Name,
		Kind:      "voice",
		RxID:      rx,
		TxID:      tx,
		Error:     errString(err),
		Timestamp: timestamp(),
	})
	return nil
}

func (s *Session) pushAudioCalibration(rec *Record) {
	s.logger.Debug("Pushing audio calibration", "acdb_id", rec.AcdbID, "capability", rec.Capability)
	err := s.cal.SendAudioCal(rec.AcdbID, rec.Capability)
	if err != nil {
		s.logger.Warn("Audio calibration push failed", "acdb_id", rec.AcdbID, "error", err)
	}
	metrics.RecordCalibration(s.info.Name, "audio", err)
	s.publish(events.CalibrationPushedEvent{
		Card:       s.info.Name,
		Kind:       "audio",
		AcdbID:     rec.AcdbID,
		Capability: rec.Capability,
		Error:      errString(err),
		Timestamp:  timestamp(),
	})
}

// enableBareDevice writes a device's own enable sequence once per
// activation and marks it active.
func (s *Session) enableBareDevice(dev string) error {
	if active, err := s.devices.Active(dev); err == nil && active {
		return nil
	}
	if _, ok := s.lookup(dev); !ok {
		return nil
	}
	if err := s.applyControls(dev, true); err != nil {
		return err
	}
	return s.devices.SetActive(dev, true)
}

// identSetControlsForAllDevices applies a verb or modifier on its own and
// combined with every enabled device.
func (s *Session) identSetControlsForAllDevices(ident string, enable bool) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if _, ok := s.lookup(ident); ok {
		keep(s.applyControls(ident, enable))
	} else {
		s.logger.Debug("Use case not valid without device combination", "case", ident)
	}

	for _, dev := range s.devices.Names() {
		composite := ident + dev
		if _, ok := s.lookup(composite); !ok {
			s.logger.Debug("No valid use case found", "case", composite)
			continue
		}
		if enable {
			keep(s.enableBareDevice(dev))
		}
		keep(s.applyControls(composite, enable))
	}
	return firstErr
}

// setDeviceForAllIdent applies a device combined with the current verb and
// every enabled modifier. On enable the device's own sequence goes first,
// once. On disable it goes last.
func (s *Session) setDeviceForAllIdent(dev string, enable bool) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	bareDone := false
	if s.verb != VerbInactive {
		composite := s.verb + dev
		if _, ok := s.lookup(composite); ok {
			if enable {
				keep(s.enableBareDevice(dev))
				bareDone = true
			}
			keep(s.applyControls(composite, enable))
		} else {
			s.logger.Debug("No valid use case found", "case", composite)
		}
	}

	for _, mod := range s.modifiers.Names() {
		composite := mod + dev
		if _, ok := s.lookup(composite); !ok {
			s.logger.Debug("No valid use case found", "case", composite)
			continue
		}
		if enable && !bareDone {
			keep(s.enableBareDevice(dev))
			bareDone = true
		}
		keep(s.applyControls(composite, enable))
	}

	if enable && !bareDone {
		keep(s.enableBareDevice(dev))
	}
	if !enable {
		if _, ok := s.lookup(dev); ok {
			keep(s.applyControls(dev, false))
		}
		_ = s.devices.SetActive(dev, false)
	}
	return firstErr
}

// deviceInUse reports the first active composite case that still routes
// through dev.
func (s *Session) deviceInUse(dev string) (string, bool) {
	if s.table() == nil {
		return "", false
	}
	if s.verb != VerbInactive {
		if _, ok := s.lookup(s.verb + dev); ok {
			return s.verb + dev, true
		}
	}
	for _, mod := range s.modifiers.Names() {
		if _, ok := s.lookup(mod + dev); ok {
			return mod + dev, true
		}
	}
	return "", false
}

func (s *Session) publish(ev events.Event) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}

func (s *Session) recordState() {
	metrics.SetSessionState(s.info.Name, s.verb, s.devices.Len(), s.modifiers.Len())
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
