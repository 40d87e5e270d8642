package logging

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalHandler sends records to the systemd journal. Attribute keys
// become upper-case journal fields, so a session's card is queryable as
// CARD=<name> and a grouped attribute cal.rx_id as CAL_RX_ID.
type JournalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewJournalHandler creates a journal handler filtered at level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	return journal.Send(r.Message, journalPriority(r.Level), h.fields(r))
}

// fields builds the journal variables for r. MESSAGE and PRIORITY are
// added by journal.Send.
func (h *JournalHandler) fields(r slog.Record) map[string]string {
	fields := map[string]string{"SYSLOG_IDENTIFIER": SyslogIdentifier}
	for _, a := range h.attrs {
		putJournalField(fields, h.groups, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		putJournalField(fields, h.groups, a)
		return true
	})
	return fields
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(slices.Clip(h.attrs), attrs...)
	return &next
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(slices.Clip(h.groups), name)
	return &next
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

func putJournalField(fields map[string]string, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	path := groups
	if a.Key != "" {
		path = append(slices.Clip(groups), a.Key)
	}

	v := a.Value
	switch v.Kind() {
	case slog.KindGroup:
		for _, member := range v.Group() {
			putJournalField(fields, path, member)
		}
		return
	case slog.KindFloat64:
		fields[journalKey(strings.Join(path, "_"))] = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		fields[journalKey(strings.Join(path, "_"))] = v.Time().Format(time.RFC3339Nano)
	default:
		fields[journalKey(strings.Join(path, "_"))] = v.String()
	}
}

// IsJournalAvailable reports whether journald is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}

// journalKey upper-cases key and replaces anything outside [A-Z0-9_].
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
