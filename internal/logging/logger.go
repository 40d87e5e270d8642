package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 1000

// SyslogIdentifier tags every journal entry.
const SyslogIdentifier = "ucmd"

// Module names used with GetLogger.
const (
	ModuleMain     = "main"
	ModuleUCM      = "ucm"
	ModuleParser   = "parser"
	ModuleMixer    = "mixer"
	ModuleACDB     = "acdb"
	ModuleRegistry = "registry"
	ModuleAPI      = "api"
	ModuleHTTP     = "http"
	ModuleHotplug  = "hotplug"
	ModuleLED      = "led"
)

// Modules lists the modules that accept a level override in [logging].
var Modules = []string{
	ModuleUCM, ModuleParser, ModuleMixer, ModuleACDB,
	ModuleRegistry, ModuleAPI, ModuleHTTP, ModuleHotplug, ModuleLED,
}

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`

	// Output receives console records. Nil means stdout. One-shot
	// commands pass stderr so records stay out of their results.
	Output io.Writer `toml:"-"`
}

type moduleEntry struct {
	logger  *slog.Logger
	level   *slog.LevelVar
	handler *swapHandler
}

// swapHandler lets Initialize rebuild the outputs behind loggers that
// were handed out before it ran.
type swapHandler struct {
	inner atomic.Pointer[slog.Handler]
}

func (s *swapHandler) set(h slog.Handler) { s.inner.Store(&h) }

func (s *swapHandler) current() slog.Handler { return *s.inner.Load() }

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.current().WithAttrs(attrs)
}

func (s *swapHandler) WithGroup(name string) slog.Handler {
	return s.current().WithGroup(name)
}

var (
	mutex       sync.RWMutex
	config      Config
	configured  bool
	modules     = make(map[string]*moduleEntry)
	rootLevel   = &slog.LevelVar{}
	logBuffer   *RingBuffer
	logCallback LogCallback
)

// Initialize sets up the logging system. Loggers handed out earlier keep
// their identity and are rebuilt against the new outputs and levels.
func Initialize(cfg Config) {
	mutex.Lock()
	defer mutex.Unlock()

	config = cfg
	configured = true
	if logBuffer == nil {
		logBuffer = NewRingBuffer(defaultBufferSize)
	}

	rootLevel.Set(defaultLevel())
	for module, entry := range modules {
		entry.level.Set(levelFor(module))
		entry.handler.set(moduleHandler(module, entry.level))
	}
	slog.SetDefault(slog.New(newHandler(rootLevel)))
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback sets a callback to be called for each new log entry.
// Used for publishing log events to SSE clients.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	entry, ok := modules[module]
	mutex.RUnlock()
	if ok {
		return entry.logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	return moduleLocked(module).logger
}

// SetModuleLevel changes a module's level at run time. Loggers already
// handed out for the module follow the change.
func SetModuleLevel(module, level string) error {
	parsed := parseLevel(level)
	if parsed == nil {
		return fmt.Errorf("unknown log level %q", level)
	}

	mutex.Lock()
	defer mutex.Unlock()
	moduleLocked(module).level.Set(*parsed)
	if config.Modules == nil {
		config.Modules = make(map[string]string)
	}
	config.Modules[module] = levelToString(*parsed)
	return nil
}

// ModuleLevels reports the effective level of every known module.
func ModuleLevels() map[string]string {
	mutex.RLock()
	defer mutex.RUnlock()

	levels := make(map[string]string, len(Modules)+len(modules))
	for _, module := range Modules {
		levels[module] = levelToString(levelFor(module))
	}
	for module, entry := range modules {
		levels[module] = levelToString(entry.level.Level())
	}
	return levels
}

// moduleLocked returns the entry for module, creating it on first use.
// The caller holds the write lock.
func moduleLocked(module string) *moduleEntry {
	if entry, ok := modules[module]; ok {
		return entry
	}
	level := &slog.LevelVar{}
	level.Set(levelFor(module))
	handler := &swapHandler{}
	handler.set(moduleHandler(module, level))
	entry := &moduleEntry{logger: slog.New(handler), level: level, handler: handler}
	modules[module] = entry
	return entry
}

func moduleHandler(module string, level slog.Leveler) slog.Handler {
	return newHandler(level).WithAttrs([]slog.Attr{slog.String("module", module)})
}

// defaultLevel is the configured global level, or info.
func defaultLevel() slog.Level {
	if parsed := parseLevel(config.Level); parsed != nil {
		return *parsed
	}
	return slog.LevelInfo
}

// levelFor resolves a module's level from its override or the global level.
func levelFor(module string) slog.Level {
	if parsed := parseLevel(config.Modules[module]); parsed != nil {
		return *parsed
	}
	return defaultLevel()
}

// newHandler fans records out to the console, the journal when it is
// reachable, and the ring buffer behind the log stream.
func newHandler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	var console slog.Handler
	if config.Format == "json" {
		console = slog.NewJSONHandler(out, opts)
	} else {
		console = slog.NewTextHandler(out, opts)
	}

	var handlers []slog.Handler
	if writerAttached(out) {
		handlers = append(handlers, console)
	}
	if configured && IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// writerAttached reports whether w leads somewhere. A file counts when it
// is a terminal, pipe, socket or regular file; /dev/null is a device and
// does not.
func writerAttached(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return w != nil
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts a level name to a slog.Level, or nil if unknown.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
