package ucm_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/ucm"
)

const testCard = "snd_soc_msm"

// staticRegistry is a fixed set of cards.
type staticRegistry struct {
	mu    sync.Mutex
	cards map[string]ucm.CardInfo
}

func newRegistry(cards ...ucm.CardInfo) *staticRegistry {
	r := &staticRegistry{cards: make(map[string]ucm.CardInfo)}
	for _, c := range cards {
		r.cards[c.Name] = c
	}
	return r
}

func (r *staticRegistry) Lookup(name string) (ucm.CardInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[name]
	if !ok {
		return ucm.CardInfo{}, ucm.NewError(ucm.CodeNotFound, "unknown card "+name, nil)
	}
	return c, nil
}

func (r *staticRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.cards))
	for n := range r.cards {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *staticRegistry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cards, name)
}

// recorder captures published events synchronously.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(typ uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type() == typ {
			n++
		}
	}
	return n
}

// cardDir lays out a master file plus verb files in a temp dir and returns
// the card identity pointing at it.
func cardDir(t *testing.T, verbs []verbFile) ucm.CardInfo {
	t.Helper()
	dir := t.TempDir()

	var master strings.Builder
	master.WriteString("# use cases for " + testCard + "\n")
	for _, v := range verbs {
		fmt.Fprintf(&master, "SectionUseCase.%q {\n\tFile %q\n\tComment \"test\"\nEndSection\n\n", v.name, v.file)
		require.NoError(t, os.WriteFile(filepath.Join(dir, v.file), []byte(v.body), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, testCard), []byte(master.String()), 0o644))

	return ucm.CardInfo{
		Name:        testCard,
		Number:      0,
		ControlPath: "/dev/snd/controlC0",
		ConfigDir:   dir,
	}
}

type verbFile struct {
	name string
	file string
	body string
}

// section renders one use case section.
func section(kind, name string, fields string, enable, disable []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section%s %q {\n\tName %q\n", kind, name, name)
	if fields != "" {
		b.WriteString("\t" + fields + "\n")
	}
	if len(enable) > 0 {
		b.WriteString("\tEnableSequence\n")
		for _, op := range enable {
			b.WriteString("\t\t" + op + "\n")
		}
		b.WriteString("\tEndSequence\n")
	}
	if len(disable) > 0 {
		b.WriteString("\tDisableSequence\n")
		for _, op := range disable {
			b.WriteString("\t\t" + op + "\n")
		}
		b.WriteString("\tEndSequence\n")
	}
	b.WriteString("EndSection\n\n")
	return b.String()
}

func hifiFile() verbFile {
	body := section("Verb", ucm.VerbHiFi, `PlaybackPCM "0"`,
		[]string{"'HiFi Route':1:1"}, []string{"'HiFi Route':1:0"}) +
		section("Device", "Speaker", "ACDBID 15:1",
			[]string{"'volume':1:80"}, []string{"'volume':1:0"}) +
		section("Device", "Headset", "ACDBID 10:1",
			[]string{"'Headset Switch':0:On"}, []string{"'Headset Switch':0:Off"}) +
		section("Device", "Earpiece", "",
			[]string{"'Earpiece Gain':1:5", "'Earpiece Switch':1:1"},
			[]string{"'Earpiece Gain':1:0", "'Earpiece Switch':1:0"}) +
		section("Modifier", ucm.ModPlayFM, "",
			[]string{"'FM Route':1:1"}, []string{"'FM Route':1:0"}) +
		section("Modifier", ucm.ModPlayLPA, `PlaybackPCM "4"`,
			[]string{"'LPA Route':1:1"}, []string{"'LPA Route':1:0"}) +
		section("Device", ucm.ModPlayFM+"Headset", "",
			[]string{"'FM Headset':1:1"}, []string{"'FM Headset':1:0"}) +
		section("Device", ucm.ModPlayLPA+"Headset", "",
			[]string{"'LPA Headset':2:0x1 0x2"}, []string{"'LPA Headset':2:0 0"})
	return verbFile{name: ucm.VerbHiFi, file: "HiFi", body: body}
}

func voiceFile() verbFile {
	body := section("Verb", ucm.VerbVoiceCall, `PlaybackPCM "2"`,
		[]string{"'Voice Route':1:1"}, []string{"'Voice Route':1:0"}) +
		section("Device", "Speaker", "ACDBID 15:1",
			[]string{"'volume':1:60"}, []string{"'volume':1:0"}) +
		section("Device", "Handset", "ACDBID 4:2",
			[]string{"'Mic Switch':1:1"}, []string{"'Mic Switch':1:0"}) +
		section("Device", "Headset", "ACDBID 10:1",
			[]string{"'Headset Switch':0:On"}, []string{"'Headset Switch':0:Off"}) +
		section("Device", ucm.VerbVoiceCall+"Speaker", "",
			[]string{"'Voice Speaker':1:1"}, []string{"'Voice Speaker':1:0"})
	return verbFile{name: ucm.VerbVoiceCall, file: "VoiceCall", body: body}
}
