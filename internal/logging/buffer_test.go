package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestRingBufferWrapsInOrder(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		rb.Write(LogEntry{Message: msg})
	}

	got := rb.ReadAll()
	if len(got) != 3 || rb.Count() != 3 {
		t.Fatalf("got %d entries, count %d", len(got), rb.Count())
	}
	for i, want := range []string{"c", "d", "e"} {
		if got[i].Message != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].Message, want)
		}
		if got[i].Seq != uint64(i+3) {
			t.Errorf("entry %d seq = %d, want %d", i, got[i].Seq, i+3)
		}
	}

	since := rb.Since(4)
	if len(since) != 1 || since[0].Message != "e" {
		t.Errorf("Since(4) = %+v", since)
	}
	if rb.Since(5) != nil {
		t.Error("Since(latest) should be empty")
	}
}

func TestRingBufferEmpty(t *testing.T) {
	rb := NewRingBuffer(0)
	if rb.ReadAll() != nil {
		t.Error("expected no entries")
	}
	rb.Write(LogEntry{Message: "only"})
	if got := rb.ReadAll(); len(got) != 1 || got[0].Message != "only" {
		t.Errorf("got %+v", got)
	}
}

func TestBufferHandlerExtractsModuleAndCard(t *testing.T) {
	mutex.Lock()
	logBuffer = NewRingBuffer(10)
	var seen []LogEntry
	logCallback = func(e LogEntry) { seen = append(seen, e) }
	mutex.Unlock()
	t.Cleanup(func() {
		mutex.Lock()
		logCallback = nil
		mutex.Unlock()
	})

	level := &slog.LevelVar{}
	logger := slog.New(NewBufferHandler(level)).With("module", "ucm", "card", "snd_soc_msm")
	logger.Debug("dropped")
	logger.Info("Verb changed", "to", "HiFi", slog.Group("cal", "rx_id", 15), "error", errors.New("boom"))

	entries := GetBuffer().ReadAll()
	if len(entries) != 1 || len(seen) != 1 {
		t.Fatalf("entries=%d callbacks=%d", len(entries), len(seen))
	}
	e := entries[0]
	if e.Module != "ucm" || e.Card != "snd_soc_msm" || e.Level != "info" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Attributes["to"] != "HiFi" || e.Attributes["error"] != "boom" {
		t.Errorf("attributes = %v", e.Attributes)
	}
	if e.Attributes["cal.rx_id"] != int64(15) {
		t.Errorf("group attribute = %v (%T)", e.Attributes["cal.rx_id"], e.Attributes["cal.rx_id"])
	}
	if seen[0].Seq != e.Seq {
		t.Error("callback should receive the sequenced entry")
	}
	if _, ok := e.Attributes["card"]; ok {
		t.Error("card should not be duplicated into attributes")
	}

	if !logger.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled")
	}
}
