// Package acdb provides calibration loaders for the use case manager.
//
// The real acoustic calibration database is vendor firmware this daemon
// does not ship. Backends here either report it as unsupported, or accept
// and record pushes so that tools and the API can show what would be
// loaded.
package acdb

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/ucmd/internal/ucm"
)

// Backend names accepted by New.
const (
	BackendNone = "none"
	BackendLog  = "log"
)

// New returns the calibrator for backend. An empty backend means none.
func New(backend string, logger *slog.Logger) (ucm.Calibrator, error) {
	switch backend {
	case "", BackendNone:
		return ucm.UnsupportedCalibrator{}, nil
	case BackendLog:
		return Logging(NewRecorder(), logger), nil
	}
	return nil, fmt.Errorf("unknown calibration backend %q", backend)
}

// Call is one recorded calibration request.
type Call struct {
	Kind       string `json:"kind" doc:"init, deinit, voice or audio"`
	RxID       int    `json:"rx_id,omitempty"`
	TxID       int    `json:"tx_id,omitempty"`
	AcdbID     int    `json:"acdb_id,omitempty"`
	Capability int    `json:"capability,omitempty"`
}

// Recorder accepts every call and remembers it.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	err   error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent pushes return err. Pass nil to clear.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsOf returns the recorded calls of one kind.
func (r *Recorder) CallsOf(kind string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) Init() error   { return r.add(Call{Kind: "init"}) }
func (r *Recorder) Deinit() error { return r.add(Call{Kind: "deinit"}) }

func (r *Recorder) SendVoiceCal(rxID, txID int) error {
	return r.add(Call{Kind: "voice", RxID: rxID, TxID: txID})
}

func (r *Recorder) SendAudioCal(acdbID, capability int) error {
	return r.add(Call{Kind: "audio", AcdbID: acdbID, Capability: capability})
}

func (r *Recorder) add(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if c.Kind == "voice" || c.Kind == "audio" {
		return r.err
	}
	return nil
}

// Logging wraps next so every call is logged.
func Logging(next ucm.Calibrator, logger *slog.Logger) ucm.Calibrator {
	return &loggingCalibrator{next: next, logger: logger}
}

type loggingCalibrator struct {
	next   ucm.Calibrator
	logger *slog.Logger
}

func (l *loggingCalibrator) Init() error {
	err := l.next.Init()
	l.logger.Debug("Calibration init", "error", err)
	return err
}

func (l *loggingCalibrator) Deinit() error {
	err := l.next.Deinit()
	l.logger.Debug("Calibration deinit", "error", err)
	return err
}

func (l *loggingCalibrator) SendVoiceCal(rxID, txID int) error {
	err := l.next.SendVoiceCal(rxID, txID)
	l.logger.Info("Voice calibration", "rx_id", rxID, "tx_id", txID, "error", err)
	return err
}

func (l *loggingCalibrator) SendAudioCal(acdbID, capability int) error {
	err := l.next.SendAudioCal(acdbID, capability)
	l.logger.Info("Audio calibration", "acdb_id", acdbID, "capability", capability, "error", err)
	return err
}
