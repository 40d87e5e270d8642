package events

// Event type constants for kelindar/event.
const (
	TypeVerbChanged uint32 = iota + 1
	TypeDeviceEnabled
	TypeDeviceDisabled
	TypeDeviceDisableRefused
	TypeModifierEnabled
	TypeModifierDisabled
	TypeParseCompleted
	TypeCalibrationPushed
	TypeSessionOpened
	TypeSessionClosed
	TypeCardHotplug
	TypeLogEntry
	TypeCardMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// VerbChangedEvent is published after the active verb of a card changes.
type VerbChangedEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	From      string `json:"from" example:"Inactive" doc:"Previous verb"`
	To        string `json:"to" example:"HiFi" doc:"New verb"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for VerbChangedEvent.
func (e VerbChangedEvent) Type() uint32 { return TypeVerbChanged }

// DeviceEnabledEvent is published when a device joins the enabled set.
type DeviceEnabledEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Device    string `json:"device" example:"Speaker" doc:"Device name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceEnabledEvent.
func (e DeviceEnabledEvent) Type() uint32 { return TypeDeviceEnabled }

// DeviceDisabledEvent is published when a device leaves the enabled set.
type DeviceDisabledEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Device    string `json:"device" example:"Speaker" doc:"Device name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDisabledEvent.
func (e DeviceDisabledEvent) Type() uint32 { return TypeDeviceDisabled }

// DeviceDisableRefusedEvent is published when a device disable is ignored
// because an active verb or modifier still routes through the device.
type DeviceDisableRefusedEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Device    string `json:"device" example:"Headset" doc:"Device name"`
	Reason    string `json:"reason" example:"Play FMHeadset" doc:"Use case that still depends on the device"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDisableRefusedEvent.
func (e DeviceDisableRefusedEvent) Type() uint32 { return TypeDeviceDisableRefused }

// ModifierEnabledEvent is published when a modifier joins the enabled set.
type ModifierEnabledEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Modifier  string `json:"modifier" example:"Play FM" doc:"Modifier name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ModifierEnabledEvent.
func (e ModifierEnabledEvent) Type() uint32 { return TypeModifierEnabled }

// ModifierDisabledEvent is published when a modifier leaves the enabled set.
type ModifierDisabledEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Modifier  string `json:"modifier" example:"Play FM" doc:"Modifier name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ModifierDisabledEvent.
func (e ModifierDisabledEvent) Type() uint32 { return TypeModifierDisabled }

// ParseCompletedEvent is published when the background parse of a card ends.
type ParseCompletedEvent struct {
	Card       string   `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Verbs      []string `json:"verbs" doc:"Verbs available after parsing"`
	Errors     []string `json:"errors,omitempty" doc:"Verb files that failed to parse"`
	DurationMs int64    `json:"duration_ms" example:"12" doc:"Time spent parsing"`
	Timestamp  string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ParseCompletedEvent.
func (e ParseCompletedEvent) Type() uint32 { return TypeParseCompleted }

// CalibrationPushedEvent is published after a calibration table is sent.
type CalibrationPushedEvent struct {
	Card       string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Kind       string `json:"kind" example:"voice" doc:"Calibration kind: voice or audio"`
	RxID       int    `json:"rx_id,omitempty" example:"15" doc:"Voice RX calibration id"`
	TxID       int    `json:"tx_id,omitempty" example:"11" doc:"Voice TX calibration id"`
	AcdbID     int    `json:"acdb_id,omitempty" example:"7" doc:"Audio calibration id"`
	Capability int    `json:"capability,omitempty" example:"1" doc:"Audio calibration capability bits"`
	Error      string `json:"error,omitempty" doc:"Loader error, if the push failed"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CalibrationPushedEvent.
func (e CalibrationPushedEvent) Type() uint32 { return TypeCalibrationPushed }

// SessionOpenedEvent is published after a card session is opened.
type SessionOpenedEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionOpenedEvent.
func (e SessionOpenedEvent) Type() uint32 { return TypeSessionOpened }

// SessionClosedEvent is published after a card session is closed.
type SessionClosedEvent struct {
	Card      string `json:"card" example:"snd_soc_msm" doc:"Card name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionClosedEvent.
func (e SessionClosedEvent) Type() uint32 { return TypeSessionClosed }

// CardHotplugEvent represents a sound card control node appearing or going away.
type CardHotplugEvent struct {
	Action    string `json:"action" example:"add" doc:"Kernel action: add, remove, change"`
	Number    int    `json:"number" example:"0" doc:"Kernel card number"`
	DevName   string `json:"dev_name" example:"snd/controlC0" doc:"Device node relative to /dev"`
	Card      string `json:"card,omitempty" example:"snd_soc_msm" doc:"Registry card name, if known"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CardHotplugEvent.
func (e CardHotplugEvent) Type() uint32 { return TypeCardHotplug }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"ucm" doc:"Source module"`
	Card       string         `json:"card,omitempty" example:"snd_soc_msm" doc:"Card the entry was logged for"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// CardMetricsEvent carries periodic session counters for one card.
type CardMetricsEvent struct {
	EventType       string `json:"type"`
	Card            string `json:"card"`
	Verb            string `json:"verb"`
	ActiveDevices   string `json:"active_devices"`
	ActiveModifiers string `json:"active_modifiers"`
	MixerWrites     string `json:"mixer_writes"`
	MixerErrors     string `json:"mixer_errors"`
}

// Type returns the event type identifier for CardMetricsEvent.
func (e CardMetricsEvent) Type() uint32 { return TypeCardMetrics }
