package ucm

import (
	"bytes"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
)

// MasterEntry is one SectionUseCase of a card's master file.
type MasterEntry struct {
	Verb string `json:"verb" yaml:"verb"`
	File string `json:"file" yaml:"file"`
}

// ParseMaster reads the master file at path and returns its use case
// entries in file order.
func ParseMaster(path string) ([]MasterEntry, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	defer release()
	return parseMasterData(data), nil
}

func parseMasterData(data []byte) []MasterEntry {
	var entries []MasterEntry
	verb := ""
	pending := false
	lines := newLineReader(data)
	for {
		line, ok := lines.next()
		if !ok {
			break
		}
		if !pending {
			i := bytes.Index(line, []byte("SectionUseCase"))
			if i < 0 {
				continue
			}
			rest := line[i:]
			dot := bytes.IndexByte(rest, '.')
			if dot < 0 {
				continue
			}
			name, ok := firstQuoted(rest[dot+1:])
			if !ok {
				continue
			}
			verb, pending = name, true
			continue
		}
		i := bytes.Index(line, []byte("File"))
		if i < 0 {
			continue
		}
		if file, ok := firstQuoted(line[i:]); ok {
			entries = append(entries, MasterEntry{Verb: verb, File: file})
		}
		pending = false
	}
	return entries
}

// ParseVerbFile reads one verb file. cardName is the case name given to
// sections that carry no Name field.
func ParseVerbFile(path, verb, cardName string) (*Verb, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	defer release()

	v, err := parseVerbData(data, cardName)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			if e.Context == nil {
				e.Context = map[string]any{}
			}
			e.Context["file"] = path
		}
		return nil, err
	}
	v.Name = verb
	v.File = path
	return v, nil
}

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionVerb
	sectionDevice
	sectionModifier
)

func classifySection(line []byte) sectionKind {
	line = bytes.TrimLeft(line, " \t")
	switch {
	case hasPrefixFold(line, "SectionVerb"):
		return sectionVerb
	case hasPrefixFold(line, "SectionDevice"):
		return sectionDevice
	case hasPrefixFold(line, "SectionModifier"):
		return sectionModifier
	default:
		return sectionNone
	}
}

// parseVerbData makes two passes over data. The first sizes the device,
// modifier and record tables; the second fills them.
func parseVerbData(data []byte, cardName string) (*Verb, error) {
	var records, devices, modifiers int
	lines := newLineReader(data)
	for {
		line, ok := lines.next()
		if !ok {
			break
		}
		switch classifySection(line) {
		case sectionVerb:
			records++
		case sectionDevice:
			records++
			devices++
		case sectionModifier:
			records++
			modifiers++
		}
	}

	v := &Verb{
		Devices:   make([]string, 0, devices),
		Modifiers: make([]string, 0, modifiers),
		Records:   make([]Record, 0, records),
	}
	lines = newLineReader(data)
	for {
		line, ok := lines.next()
		if !ok {
			break
		}
		kind := classifySection(line)
		if kind == sectionNone {
			continue
		}
		rec, err := parseSection(lines, cardName)
		if err != nil {
			return nil, err
		}
		v.Records = append(v.Records, rec)
		switch kind {
		case sectionDevice:
			v.Devices = append(v.Devices, rec.Name)
		case sectionModifier:
			v.Modifiers = append(v.Modifiers, rec.Name)
		}
	}
	return v, nil
}

type seqState int

const (
	seqNone seqState = iota
	seqEnable
	seqDisable
)

// parseSection consumes lines up to and including EndSection.
func parseSection(lines *lineReader, cardName string) (Record, error) {
	var rec Record
	seq := seqNone
	for {
		line, ok := lines.next()
		if !ok {
			break
		}
		trimmed := bytes.TrimSpace(line)
		if hasPrefixFold(trimmed, "EndSection") {
			break
		}

		if containsFold(line, "EndSequence") {
			seq = seqNone
			continue
		}
		switch seq {
		case seqEnable, seqDisable:
			if len(trimmed) == 0 || trimmed[0] == '#' {
				continue
			}
			op, err := parseControl(line)
			if err != nil {
				err.Context = map[string]any{"line": lines.lineNo}
				return Record{}, err
			}
			if seq == seqEnable {
				rec.Enable = append(rec.Enable, op)
			} else {
				rec.Disable = append(rec.Disable, op)
			}
			continue
		}

		switch {
		case containsFold(line, "EnableSequence"):
			rec.Enable = make([]MixerOp, 0, lines.countUntilEndSequence())
			seq = seqEnable
		case containsFold(line, "DisableSequence"):
			rec.Disable = make([]MixerOp, 0, lines.countUntilEndSequence())
			seq = seqDisable
		case containsFold(line, "PlaybackPCM"):
			rec.PlaybackPCM = parsePCM(line)
		case containsFold(line, "CapturePCM"):
			rec.CapturePCM = parsePCM(line)
		case containsFold(line, "ACDBID"):
			rec.AcdbID, rec.Capability = parseACDB(line)
		case containsFold(line, "Name"):
			if name, ok := firstQuoted(line); ok && rec.Name == "" {
				rec.Name = name
			}
		}
	}
	if rec.Name == "" {
		rec.Name = cardName
	}
	return rec, nil
}

// parseControl decodes a 'name':type:value line.
func parseControl(line []byte) (MixerOp, *Error) {
	open := bytes.IndexByte(line, '\'')
	if open < 0 {
		return MixerOp{}, invalidArgf("control line without quoted name: %q", line)
	}
	rest := line[open+1:]
	end := bytes.IndexByte(rest, '\'')
	if end < 0 {
		return MixerOp{}, invalidArgf("unterminated control name: %q", line)
	}
	op := MixerOp{Control: string(rest[:end])}
	rest = bytes.TrimLeft(rest[end+1:], ":")
	sep := bytes.IndexByte(rest, ':')
	if sep < 0 {
		return MixerOp{}, invalidArgf("control %q has no value", op.Control)
	}
	kind := bytes.TrimSpace(rest[:sep])
	value := string(bytes.TrimRight(rest[sep+1:], "\r\n"))
	if value == "" {
		return MixerOp{}, invalidArgf("control %q has no value", op.Control)
	}

	switch {
	case bytes.HasPrefix(kind, []byte("0")):
		op.Type = OpString
		op.String = value
	case bytes.HasPrefix(kind, []byte("1")):
		op.Type = OpInt
		op.Int = atoi(value)
	case bytes.HasPrefix(kind, []byte("2")):
		op.Type = OpMulti
		op.Multi = parseMulti(value)
	default:
		return MixerOp{}, invalidArgf("control %q has unknown type %q", op.Control, kind)
	}
	return op, nil
}

// parseMulti splits a multi value list. A single percentage token is kept
// verbatim; every other token is read as hex and stored in decimal.
func parseMulti(value string) []string {
	tokens := strings.Fields(value)
	if len(tokens) == 1 && strings.Contains(tokens[0], "%") {
		return tokens
	}
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = strconv.FormatUint(uint64(parseHexPrefix(tok)), 10)
	}
	return out
}

// parseHexPrefix reads the leading hex digits of s, with an optional 0x
// prefix. Anything unparsable reads as zero and overflow saturates.
func parseHexPrefix(s string) uint32 {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if end := strings.IndexFunc(s, func(r rune) bool { return !isHexDigit(r) }); end >= 0 {
		s = s[:end]
	}
	// ParseUint yields 0 on a syntax error and the maximum on overflow.
	v, _ := strconv.ParseUint(s, 16, 32)
	return uint32(v)
}

func isHexDigit(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

// parsePCM returns the PCM device path for a PlaybackPCM or CapturePCM line.
func parsePCM(line []byte) string {
	i := bytes.IndexAny(line, "0123456789")
	if i < 0 {
		return ""
	}
	j := i
	for j < len(line) && line[j] >= '0' && line[j] <= '9' {
		j++
	}
	return PCMPrefix + string(line[i:j])
}

// parseACDB reads "ACDBID id:capability". A line without digits yields 0, 0.
func parseACDB(line []byte) (id, capability int) {
	i := bytes.IndexAny(line, "0123456789")
	if i < 0 {
		return 0, 0
	}
	rest := string(line[i:])
	idPart, capPart, found := strings.Cut(rest, ":")
	id = atoi(idPart)
	if found {
		capability = atoi(capPart)
	}
	return id, capability
}

// atoi parses an optionally signed leading decimal number, ignoring
// leading blanks and any trailing text.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		return -n
	}
	return n
}

func firstQuoted(b []byte) (string, bool) {
	open := bytes.IndexByte(b, '"')
	if open < 0 {
		return "", false
	}
	rest := b[open+1:]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return string(rest[:end]), true
}

func hasPrefixFold(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && bytes.EqualFold(b[:len(prefix)], []byte(prefix))
}

func containsFold(b []byte, sub string) bool {
	return bytes.Contains(bytes.ToLower(b), []byte(strings.ToLower(sub)))
}

func joinConfigPath(dir, file string) string {
	if filepath.IsAbs(file) || dir == "" {
		return file
	}
	return filepath.Join(dir, file)
}

// lineReader walks newline separated lines of a mapped file without copying.
type lineReader struct {
	data   []byte
	pos    int
	lineNo int
}

func newLineReader(data []byte) *lineReader {
	return &lineReader{data: data}
}

func (r *lineReader) next() ([]byte, bool) {
	if r.pos >= len(r.data) {
		return nil, false
	}
	rest := r.data[r.pos:]
	r.lineNo++
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		r.pos += i + 1
		return bytes.TrimSuffix(rest[:i], []byte("\r")), true
	}
	r.pos = len(r.data)
	return bytes.TrimSuffix(rest, []byte("\r")), true
}

// countUntilEndSequence counts the lines ahead of the cursor that precede
// the next EndSequence or EndSection.
func (r *lineReader) countUntilEndSequence() int {
	peek := lineReader{data: r.data, pos: r.pos}
	n := 0
	for {
		line, ok := peek.next()
		if !ok || containsFold(line, "EndSequence") || hasPrefixFold(bytes.TrimSpace(line), "EndSection") {
			return n
		}
		n++
	}
}
