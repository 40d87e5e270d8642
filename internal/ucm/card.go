package ucm

// Well-known verb and modifier names.
const (
	VerbInactive   = "Inactive"
	VerbHiFi       = "HiFi"
	VerbHiFiRec    = "HiFi Rec"
	VerbVoiceCall  = "Voice Call"
	VerbVoiceIP    = "Voice Call IP"
	VerbFMRec      = "FM REC"
	VerbFMA2DPRec  = "FM A2DP REC"
	ModPlayVoice   = "Play Voice"
	ModPlayVoIP    = "Voice Call IP"
	ModCaptureVoIP = "Capture VOIP"
	ModPlayFM      = "Play FM"
	ModCaptureFM   = "Capture FM"
	ModPlayLPA     = "Play LPA"
)

// Capability bits carried by a record's ACDBID field.
const (
	CapRX    = 0x1
	CapTX    = 0x2
	CapVoice = 0x4
)

// Calibration table ids used by the voice pairing correction.
const (
	AcdbHandsetRX = 7
	AcdbHandsetTX = 4
	AcdbSpeakerRX = 15
	AcdbSpeakerTX = 11
	AcdbHeadsetRX = 10
	AcdbHeadsetTX = 8
)

// PCMPrefix is prepended to the digits of PlaybackPCM and CapturePCM fields.
const PCMPrefix = "hw:0,"

// OpType is the value kind of a mixer control operation. The numeric values
// match the type field of control lines in verb files.
type OpType int

const (
	OpString OpType = 0
	OpInt    OpType = 1
	OpMulti  OpType = 2
)

func (t OpType) String() string {
	switch t {
	case OpString:
		return "string"
	case OpInt:
		return "int"
	case OpMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// MixerOp is one control write in an enable or disable sequence.
type MixerOp struct {
	Control string   `json:"control" yaml:"control"`
	Type    OpType   `json:"type" yaml:"type"`
	Int     int      `json:"int,omitempty" yaml:"int,omitempty"`
	String  string   `json:"string,omitempty" yaml:"string,omitempty"`
	Multi   []string `json:"multi,omitempty" yaml:"multi,omitempty"`
}

// Record is the control description of one verb, device, modifier or
// composite case within a verb file.
type Record struct {
	Name        string    `json:"name" yaml:"name"`
	Enable      []MixerOp `json:"enable,omitempty" yaml:"enable,omitempty"`
	Disable     []MixerOp `json:"disable,omitempty" yaml:"disable,omitempty"`
	PlaybackPCM string    `json:"playback_pcm,omitempty" yaml:"playback_pcm,omitempty"`
	CapturePCM  string    `json:"capture_pcm,omitempty" yaml:"capture_pcm,omitempty"`
	AcdbID      int       `json:"acdb_id,omitempty" yaml:"acdb_id,omitempty"`
	Capability  int       `json:"capability,omitempty" yaml:"capability,omitempty"`
}

// HasCalibration reports whether the record names a calibration table.
func (r *Record) HasCalibration() bool {
	return r.AcdbID != 0 && r.Capability != 0
}

// Verb is the parsed content of one verb file.
type Verb struct {
	Name      string   `json:"name" yaml:"name"`
	File      string   `json:"file" yaml:"file"`
	Devices   []string `json:"devices" yaml:"devices"`
	Modifiers []string `json:"modifiers" yaml:"modifiers"`
	Records   []Record `json:"records" yaml:"records"`
}

// Record returns the record whose case name equals name.
func (v *Verb) Record(name string) (*Record, bool) {
	for i := range v.Records {
		if v.Records[i].Name == name {
			return &v.Records[i], true
		}
	}
	return nil, false
}

// HasModifier reports whether name is a modifier section of this verb.
func (v *Verb) HasModifier(name string) bool {
	for _, m := range v.Modifiers {
		if m == name {
			return true
		}
	}
	return false
}

// CardInfo is the static identity of a card as resolved by a Registry.
type CardInfo struct {
	Name        string `json:"name" toml:"name"`
	Number      int    `json:"number" toml:"number"`
	ControlPath string `json:"control_path" toml:"control_path"`
	ConfigDir   string `json:"config_dir" toml:"config_dir"`
	// Master is the master file name relative to ConfigDir. Empty means Name.
	Master string `json:"master,omitempty" toml:"master,omitempty"`
}

// MasterPath returns the location of the card's master file.
func (c CardInfo) MasterPath() string {
	master := c.Master
	if master == "" {
		master = c.Name
	}
	return joinConfigPath(c.ConfigDir, master)
}

// Registry resolves card names to card identities.
type Registry interface {
	Lookup(name string) (CardInfo, error)
	Names() []string
}

// Card is the parsed description of one sound card. Verbs is append-only
// while the background parse runs.
type Card struct {
	Info  CardInfo
	Verbs []*Verb
}

// VerbIndex returns the index of the named verb, or -1.
func (c *Card) VerbIndex(name string) int {
	for i, v := range c.Verbs {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// VerbNames returns the parsed verb names in master file order.
func (c *Card) VerbNames() []string {
	names := make([]string, len(c.Verbs))
	for i, v := range c.Verbs {
		names[i] = v.Name
	}
	return names
}

// CardSnapshot is a point-in-time copy of a session for inspection.
type CardSnapshot struct {
	Card             string   `json:"card" yaml:"card"`
	Number           int      `json:"number" yaml:"number"`
	ControlPath      string   `json:"control_path" yaml:"control_path"`
	ParseComplete    bool     `json:"parse_complete" yaml:"parse_complete"`
	CurrentVerb      string   `json:"current_verb" yaml:"current_verb"`
	EnabledDevices   []string `json:"enabled_devices" yaml:"enabled_devices"`
	EnabledModifiers []string `json:"enabled_modifiers" yaml:"enabled_modifiers"`
	ActiveDevices    []string `json:"active_devices,omitempty" yaml:"active_devices,omitempty"`
	RxID             int      `json:"rx_id" yaml:"rx_id"`
	TxID             int      `json:"tx_id" yaml:"tx_id"`
	Verbs            []Verb   `json:"verbs" yaml:"verbs"`
}

func cloneVerb(v *Verb) Verb {
	out := Verb{
		Name:      v.Name,
		File:      v.File,
		Devices:   append([]string(nil), v.Devices...),
		Modifiers: append([]string(nil), v.Modifiers...),
		Records:   make([]Record, len(v.Records)),
	}
	for i, r := range v.Records {
		r.Enable = cloneOps(r.Enable)
		r.Disable = cloneOps(r.Disable)
		out.Records[i] = r
	}
	return out
}

func cloneOps(ops []MixerOp) []MixerOp {
	if ops == nil {
		return nil
	}
	out := make([]MixerOp, len(ops))
	for i, op := range ops {
		op.Multi = append([]string(nil), op.Multi...)
		out[i] = op
	}
	return out
}
