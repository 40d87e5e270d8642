package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type cardsFile struct {
	ConfigDir string   `toml:"config_dir"`
	Cards     []string `toml:"cards"`
}

func loadCardsFile(path string) (cardsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cardsFile{}, err
	}
	var cfg cardsFile
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[cardsFile]) *Watcher[cardsFile] {
	t.Helper()
	opts = append([]WatcherOption[cardsFile]{WithDebounce[cardsFile](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loadCardsFile, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	time.Sleep(50 * time.Millisecond)
	return w
}

func TestConfigWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.toml")
	if err := os.WriteFile(path, []byte(`cards = ["a"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	received := make(chan cardsFile, 4)
	w := startWatcher(t, path)
	w.OnReload(func(cfg cardsFile) { received <- cfg })

	if err := os.WriteFile(path, []byte("config_dir = \"/x\"\ncards = [\"a\", \"b\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.ConfigDir != "/x" || len(cfg.Cards) != 2 {
			t.Errorf("got %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestConfigWatcher_RenameOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.toml")
	if err := os.WriteFile(path, []byte(`cards = ["a"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	received := make(chan cardsFile, 4)
	w := startWatcher(t, path)
	w.OnReload(func(cfg cardsFile) { received <- cfg })

	tmp := filepath.Join(dir, ".cards.toml.swp")
	if err := os.WriteFile(tmp, []byte(`cards = ["renamed"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if len(cfg.Cards) != 1 || cfg.Cards[0] != "renamed" {
			t.Errorf("got %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.toml")
	if err := os.WriteFile(path, []byte(`cards = []`), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(cardsFile) { calls.Add(1) })

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte(`x = 1`), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("handler called %d times for an unrelated file", n)
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.toml")
	if err := os.WriteFile(path, []byte(`cards = []`), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := startWatcher(t, path, WithDebounce[cardsFile](200*time.Millisecond))
	w.OnReload(func(cardsFile) { calls.Add(1) })

	for range 5 {
		if err := os.WriteFile(path, []byte(`cards = ["x"]`), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(600 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("expected one debounced reload, got %d", n)
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.toml")
	if err := os.WriteFile(path, []byte(`cards = []`), 0o644); err != nil {
		t.Fatal(err)
	}

	var kept, dropped atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(cardsFile) { kept.Add(1) })
	unsubscribe := w.OnReload(func(cardsFile) { dropped.Add(1) })
	unsubscribe()

	if err := os.WriteFile(path, []byte(`cards = ["y"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for kept.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if kept.Load() == 0 {
		t.Fatal("remaining handler not called")
	}
	if dropped.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.toml")
	if err := os.WriteFile(path, []byte(`cards = []`), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 4)
	var reloads atomic.Int32
	w := startWatcher(t, path, WithErrorHandler[cardsFile](func(err error) { errs <- err }))
	w.OnReload(func(cardsFile) { reloads.Add(1) })

	if err := os.WriteFile(path, []byte(`cards = [`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected a parse error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error callback")
	}
	if reloads.Load() != 0 {
		t.Error("handlers must not see a failed load")
	}
}

func TestConfigWatcher_StopWithoutStart(t *testing.T) {
	w := NewConfigWatcher("/nonexistent/cards.toml", loadCardsFile, newTestLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	if err := w.Start(); err == nil {
		_ = w.Stop()
		t.Error("expected error watching a missing directory")
	}
}
