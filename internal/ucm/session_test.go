package ucm_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/ucmd/internal/acdb"
	"github.com/smazurov/ucmd/internal/events"
	"github.com/smazurov/ucmd/internal/mixer"
	"github.com/smazurov/ucmd/internal/ucm"
)

type fixture struct {
	s   *ucm.Session
	mix *mixer.Memory
	cal *acdb.Recorder
	ev  *recorder
}

func openCard(t *testing.T, info ucm.CardInfo, mutate ...func(*ucm.Options)) fixture {
	t.Helper()
	f := fixture{mix: mixer.NewMemory(), cal: acdb.NewRecorder(), ev: &recorder{}}
	opts := ucm.Options{
		Registry:    newRegistry(info),
		MixerOpener: f.mix.Opener(),
		Calibrator:  f.cal,
		Events:      f.ev,
	}
	for _, m := range mutate {
		m(&opts)
	}

	s, err := ucm.Open(context.Background(), info.Name, opts)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	t.Cleanup(func() { _ = s.Close() })

	f.s = s
	return f
}

func values(writes []mixer.Write) []string {
	var out []string
	for _, w := range writes {
		out = append(out, strings.Join(w.Values, " "))
	}
	return out
}

func TestOpenReturnsCardName(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	name, err := f.s.Get("")
	require.NoError(t, err)
	assert.Equal(t, testCard, name)

	verb, err := f.s.Get(ucm.IdentVerb)
	require.NoError(t, err)
	assert.Equal(t, ucm.VerbInactive, verb)

	cards, err := f.s.GetList("")
	require.NoError(t, err)
	assert.Equal(t, []string{testCard}, cards)

	assert.Equal(t, 1, f.ev.count(events.TypeSessionOpened))
}

func TestOpenUnknownCard(t *testing.T) {
	_, err := ucm.Open(context.Background(), "nope", ucm.Options{Registry: newRegistry()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ucm.ErrNotFound)

	_, err = ucm.Open(context.Background(), "", ucm.Options{Registry: newRegistry()})
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)

	_, err = ucm.Open(context.Background(), testCard, ucm.Options{})
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)
}

func TestVerbRoundTrip(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile(), voiceFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	verb, err := f.s.Get(ucm.IdentVerb)
	require.NoError(t, err)
	assert.Equal(t, ucm.VerbHiFi, verb)
	assert.Equal(t, []string{"1"}, values(f.mix.WritesTo("HiFi Route")))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbVoiceCall))
	assert.Equal(t, []string{"1", "0"}, values(f.mix.WritesTo("HiFi Route")))
	assert.Equal(t, []string{"1"}, values(f.mix.WritesTo("Voice Route")))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbInactive))
	verb, err = f.s.Get(ucm.IdentVerb)
	require.NoError(t, err)
	assert.Equal(t, ucm.VerbInactive, verb)
	assert.Equal(t, []string{"1", "0"}, values(f.mix.WritesTo("Voice Route")))

	err = f.s.Set(ucm.IdentVerb, "Karaoke")
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)

	assert.Equal(t, 3, f.ev.count(events.TypeVerbChanged))
}

func TestEnableDeviceWritesVolumeOnce(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))

	assert.Equal(t, []string{"80"}, values(f.mix.WritesTo("volume")))

	status, err := f.s.GetI(ucm.IdentDeviceStatus + "/Speaker")
	require.NoError(t, err)
	assert.Equal(t, 1, status)

	require.NoError(t, f.s.Set(ucm.IdentDisableDevice, "Speaker"))
	assert.Equal(t, []string{"80", "0"}, values(f.mix.WritesTo("volume")))

	status, err = f.s.GetI(ucm.IdentDeviceStatus + "/Speaker")
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestEnableDeviceTwiceIsIdempotent(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))

	devs, err := f.s.GetList(ucm.IdentEnabledDevices)
	require.NoError(t, err)
	assert.Equal(t, []string{"Speaker"}, devs)
	assert.Len(t, f.mix.WritesTo("volume"), 1)
}

func TestDisableGuardKeepsDeviceForModifier(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Headset"))
	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM))
	assert.Equal(t, []string{"1"}, values(f.mix.WritesTo("FM Headset")))

	require.NoError(t, f.s.Set(ucm.IdentDisableDevice, "Headset"), "refused disable reports success")

	status, err := f.s.GetI(ucm.IdentDeviceStatus + "/Headset")
	require.NoError(t, err)
	assert.Equal(t, 1, status)
	assert.Equal(t, []string{"On"}, values(f.mix.WritesTo("Headset Switch")))
	assert.Equal(t, 1, f.ev.count(events.TypeDeviceDisableRefused))
}

func TestDisableGuardStrict(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}), func(o *ucm.Options) { o.StrictDisable = true })

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Headset"))
	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM))

	err := f.s.Set(ucm.IdentDisableDevice, "Headset")
	require.Error(t, err)
	assert.ErrorIs(t, err, ucm.ErrDeviceBusy)
	assert.Equal(t, -int(syscall.EBUSY), ucm.Errno(err))

	status, _ := f.s.GetI(ucm.IdentDeviceStatus + "/Headset")
	assert.Equal(t, 1, status)
}

func TestTwoModifiersShareDevice(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Headset"))
	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM))
	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayLPA))
	require.NoError(t, f.s.Set(ucm.IdentDisableModifier, ucm.ModPlayFM))

	assert.Equal(t, []string{"On"}, values(f.mix.WritesTo("Headset Switch")), "bare Headset sequence must stay applied")
	assert.Equal(t, []string{"1", "0"}, values(f.mix.WritesTo("FM Headset")))
	assert.Equal(t, []string{"1 2"}, values(f.mix.WritesTo("LPA Headset")))

	mods, err := f.s.GetList(ucm.IdentEnabledModifiers)
	require.NoError(t, err)
	assert.Equal(t, []string{ucm.ModPlayLPA}, mods)

	status, err := f.s.GetI(ucm.IdentModifierStatus + "/" + ucm.ModPlayFM)
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestModifierValidation(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	err := f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM)
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument, "no verb selected yet")

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	err = f.s.Set(ucm.IdentEnableModifier, "Capture VOIP")
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)

	err = f.s.Set(ucm.IdentDisableModifier, ucm.ModPlayFM)
	assert.ErrorIs(t, err, ucm.ErrNotFound)

	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM))
	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM))
	mods, _ := f.s.GetList(ucm.IdentEnabledModifiers)
	assert.Equal(t, []string{ucm.ModPlayFM}, mods)
	assert.Len(t, f.mix.WritesTo("FM Route"), 1)
}

func TestSwitchDeviceAndModifier(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))
	require.NoError(t, f.s.Set(ucm.IdentSwitchDevice+"/Speaker", "Headset"))

	devs, _ := f.s.GetList(ucm.IdentEnabledDevices)
	assert.Equal(t, []string{"Headset"}, devs)
	assert.Equal(t, []string{"80", "0"}, values(f.mix.WritesTo("volume")))
	assert.Equal(t, []string{"On"}, values(f.mix.WritesTo("Headset Switch")))

	// A stale old device is ignored and the new one is still enabled.
	require.NoError(t, f.s.Set(ucm.IdentSwitchDevice+"/Handset", "Speaker"))
	devs, _ = f.s.GetList(ucm.IdentEnabledDevices)
	assert.Equal(t, []string{"Headset", "Speaker"}, devs)

	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM))
	require.NoError(t, f.s.Set(ucm.IdentSwitchModifier+"/"+ucm.ModPlayFM, ucm.ModPlayLPA))
	mods, _ := f.s.GetList(ucm.IdentEnabledModifiers)
	assert.Equal(t, []string{ucm.ModPlayLPA}, mods)
	assert.Equal(t, []string{"1", "0"}, values(f.mix.WritesTo("FM Route")))
}

func TestDisableUnknownDevice(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))
	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))

	err := f.s.Set(ucm.IdentDisableDevice, "Speaker")
	assert.ErrorIs(t, err, ucm.ErrNotFound)
}

func TestEnableDeviceBeforeVerb(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	// No verb has been selected, so there is no table to resolve against.
	err := f.s.Set(ucm.IdentEnableDevice, "Speaker")
	require.NoError(t, err)
	assert.Empty(t, f.mix.Writes())

	// The device was only a member; disabling it writes nothing.
	require.NoError(t, f.s.Set(ucm.IdentDisableDevice, "Speaker"))
	assert.Empty(t, f.mix.Writes())
}

func TestDisableGuardCoversCompositeOnlyDevice(t *testing.T) {
	// BT has no record of its own, only the HiFiBT combination.
	body := section("Verb", ucm.VerbHiFi, "",
		[]string{"'HiFi Route':1:1"}, []string{"'HiFi Route':1:0"}) +
		section("Device", ucm.VerbHiFi+"BT", "",
			[]string{"'BT Route':1:1"}, []string{"'BT Route':1:0"})
	f := openCard(t, cardDir(t, []verbFile{{name: ucm.VerbHiFi, file: "HiFi", body: body}}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "BT"))
	assert.Equal(t, []string{"1"}, values(f.mix.WritesTo("BT Route")))
	snap := f.s.Snapshot()
	assert.Equal(t, []string{"BT"}, snap.EnabledDevices)
	assert.Empty(t, snap.ActiveDevices, "BT has no sequence of its own")

	require.NoError(t, f.s.Set(ucm.IdentDisableDevice, "BT"), "refused disable reports success")
	status, err := f.s.GetI(ucm.IdentDeviceStatus + "/BT")
	require.NoError(t, err)
	assert.Equal(t, 1, status, "HiFiBT still routes through BT")
	assert.Equal(t, 1, f.ev.count(events.TypeDeviceDisableRefused))

	// Leaving the verb retracts the combination.
	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbInactive))
	assert.Equal(t, []string{"1", "0"}, values(f.mix.WritesTo("BT Route")))

	// With no combination left the disable goes through.
	require.NoError(t, f.s.Set(ucm.IdentDisableDevice, "BT"))
	status, err = f.s.GetI(ucm.IdentDeviceStatus + "/BT")
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestEnabledListsAndActiveDevices(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	// Headset joins before a verb exists, so nothing is written for it.
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Headset"))
	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))
	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayLPA))

	devs, err := f.s.GetList(ucm.IdentEnabledDevices)
	require.NoError(t, err)
	assert.Equal(t, []string{"Headset", "Speaker"}, devs)
	mods, err := f.s.GetList(ucm.IdentEnabledModifiers)
	require.NoError(t, err)
	assert.Equal(t, []string{ucm.ModPlayLPA}, mods)

	// Play LPA has a Headset combination, which activates Headset as well.
	snap := f.s.Snapshot()
	assert.Equal(t, []string{"Headset", "Speaker"}, snap.ActiveDevices)
}

func TestVerbAppliesToEnabledDevices(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile(), voiceFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))
	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbVoiceCall))

	// Voice Call has a Speaker combination, applied for the already enabled device.
	assert.Equal(t, []string{"1"}, values(f.mix.WritesTo("Voice Speaker")))
	// Speaker was already active, so its own sequence is not written again.
	assert.Equal(t, []string{"80"}, values(f.mix.WritesTo("volume")))
}

func TestRollbackOnFailedEnable(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))
	boom := errors.New("write failed")
	f.mix.Fail("Earpiece Switch", boom)

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	err := f.s.Set(ucm.IdentEnableDevice, "Earpiece")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, -int(syscall.EIO), ucm.Errno(err))

	assert.Equal(t, []string{"5", "0"}, values(f.mix.WritesTo("Earpiece Gain")), "gain rolled back")
}

func TestAudioCalibrationOutsideVoice(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))

	assert.Equal(t, []acdb.Call{{Kind: "audio", AcdbID: 15, Capability: ucm.CapRX}}, f.cal.CallsOf("audio"))
	assert.Empty(t, f.cal.CallsOf("voice"))

	snap := f.s.Snapshot()
	assert.Equal(t, -1, snap.RxID)
	assert.Equal(t, -1, snap.TxID)
}

func TestVoiceCalibrationPairing(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile(), voiceFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbVoiceCall))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))
	assert.Empty(t, f.cal.Calls()[1:], "no peer device yet")

	// Handset is TX (4); Speaker fills RX (15). 15/4 is corrected to 15/11.
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Handset"))
	assert.Equal(t, []acdb.Call{{Kind: "voice", RxID: 15, TxID: 11}}, f.cal.CallsOf("voice"))

	// Same pair again: no new push.
	require.NoError(t, f.s.Set(ucm.IdentDisableDevice, "Handset"))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Handset"))
	assert.Len(t, f.cal.CallsOf("voice"), 1)

	// Headset is RX (10) and pairs with the first other device, Speaker.
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Headset"))
	voice := f.cal.CallsOf("voice")
	require.Len(t, voice, 2)
	assert.Equal(t, acdb.Call{Kind: "voice", RxID: 10, TxID: 15}, voice[1])
	assert.Empty(t, f.cal.CallsOf("audio"))

	snap := f.s.Snapshot()
	assert.Equal(t, 10, snap.RxID)
	assert.Equal(t, 15, snap.TxID)
	assert.Equal(t, 2, f.ev.count(events.TypeCalibrationPushed))
}

func TestCalibrationFailureIsNotFatal(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))
	f.cal.FailWith(errors.New("no acdb"))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))
	assert.Equal(t, []string{"80"}, values(f.mix.WritesTo("volume")))
}

func TestGetValues(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	_, err := f.s.Get(ucm.IdentPlaybackPCM + "/" + ucm.VerbHiFi)
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument, "no verb table selected")

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))

	pcm, err := f.s.Get(ucm.IdentPlaybackPCM + "/" + ucm.VerbHiFi)
	require.NoError(t, err)
	assert.Equal(t, "hw:0,0", pcm)

	pcm, err = f.s.Get(ucm.IdentPlaybackPCM + "/" + ucm.ModPlayLPA)
	require.NoError(t, err)
	assert.Equal(t, "hw:0,4", pcm)

	_, err = f.s.Get(ucm.IdentCapturePCM + "/" + ucm.VerbHiFi)
	assert.ErrorIs(t, err, ucm.ErrNoSuchDevice)
	assert.Equal(t, -int(syscall.ENODEV), ucm.Errno(err))

	_, err = f.s.Get(ucm.IdentPlaybackPCM + "/Bluetooth")
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)

	ctl, err := f.s.Get(ucm.IdentCaptureCTL + "/Speaker")
	require.NoError(t, err)
	assert.Equal(t, "/dev/snd/controlC0", ctl)

	_, err = f.s.Get("Volume/Speaker")
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)
	assert.Equal(t, -int(syscall.EINVAL), ucm.Errno(err))
}

func TestGetLists(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile(), voiceFile()}))

	verbs, err := f.s.GetList(ucm.IdentVerbs)
	require.NoError(t, err)
	assert.Equal(t, []string{ucm.VerbHiFi, ucm.VerbVoiceCall}, verbs)

	_, err = f.s.GetList(ucm.IdentDevices)
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)
	_, err = f.s.GetList(ucm.IdentModifiers)
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	mods, err := f.s.GetList(ucm.IdentModifiers)
	require.NoError(t, err)
	assert.Equal(t, []string{ucm.ModPlayFM, ucm.ModPlayLPA}, mods)

	_, err = f.s.GetList("_bogus")
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)

	_, err = f.s.GetI("_devstatus")
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)
	_, err = f.s.GetI("_volume/Speaker")
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)
}

func TestSetRejectsBadInput(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	assert.ErrorIs(t, f.s.Set(ucm.IdentVerb, ""), ucm.ErrInvalidArgument)
	assert.ErrorIs(t, f.s.Set("_volume", "1"), ucm.ErrInvalidArgument)
	assert.ErrorIs(t, f.s.Set("_volume/x", "1"), ucm.ErrInvalidArgument)
	assert.NoError(t, f.s.Reload())
}

func TestParseRoundTrip(t *testing.T) {
	const n, k, m = 5, 4, 3

	var verbs []verbFile
	for v := range n {
		name := fmt.Sprintf("Verb%d", v)
		body := section("Verb", name, "", []string{fmt.Sprintf("'V%d':1:1", v)}, nil)
		for d := range k {
			body += section("Device", fmt.Sprintf("Dev%d", d), "", []string{fmt.Sprintf("'D%d':1:1", d)}, nil)
		}
		for md := range m {
			body += section("Modifier", fmt.Sprintf("Mod%d", md), "", nil, []string{fmt.Sprintf("'M%d':1:0", md)})
		}
		verbs = append(verbs, verbFile{name: name, file: fmt.Sprintf("verb%d.conf", v), body: body})
	}
	f := openCard(t, cardDir(t, verbs))

	got, err := f.s.GetList(ucm.IdentVerbs)
	require.NoError(t, err)
	require.Len(t, got, n)

	for _, v := range got {
		require.NoError(t, f.s.Set(ucm.IdentVerb, v))
		devs, err := f.s.GetList(ucm.IdentDevices)
		require.NoError(t, err)
		assert.Len(t, devs, k)
		mods, err := f.s.GetList(ucm.IdentModifiers)
		require.NoError(t, err)
		assert.Len(t, mods, m)
	}

	assert.Empty(t, f.s.ParseErrors())
	assert.Equal(t, 1, f.ev.count(events.TypeParseCompleted))
	assert.True(t, f.s.Snapshot().ParseComplete)
}

func TestBrokenVerbIsSkipped(t *testing.T) {
	broken := verbFile{
		name: "Broken",
		file: "Broken",
		body: section("Device", "X", "", []string{"'A':9:1"}, nil),
	}
	f := openCard(t, cardDir(t, []verbFile{hifiFile(), broken, voiceFile()}))

	verbs, err := f.s.GetList(ucm.IdentVerbs)
	require.NoError(t, err)
	assert.Equal(t, []string{ucm.VerbHiFi, ucm.VerbVoiceCall}, verbs)
	assert.Len(t, f.s.ParseErrors(), 1)
}

func TestMissingMasterStillOpens(t *testing.T) {
	info := ucm.CardInfo{Name: testCard, ConfigDir: t.TempDir()}
	f := openCard(t, info)

	verbs, err := f.s.GetList(ucm.IdentVerbs)
	require.NoError(t, err)
	assert.Empty(t, verbs)
	assert.Len(t, f.s.ParseErrors(), 1)
	assert.Equal(t, "/dev/snd/controlC0", f.s.Info().ControlPath, "control path defaults from card number")
}

func TestNoMixer(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}), func(o *ucm.Options) {
		o.MixerOpener = func(ucm.CardInfo) (ucm.Mixer, error) { return nil, errors.New("no such file") }
	})

	err := f.s.Set(ucm.IdentVerb, ucm.VerbHiFi)
	assert.ErrorIs(t, err, ucm.ErrNoSuchDevice)
}

func TestUnknownControlsAreSkipped(t *testing.T) {
	info := cardDir(t, []verbFile{hifiFile()})
	mem := mixer.NewMemory("volume")
	f := openCard(t, info, func(o *ucm.Options) { o.MixerOpener = mem.Opener() })

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Speaker"))
	assert.Equal(t, []string{"80"}, values(mem.Writes()))
}

func TestReset(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))

	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, f.s.Set(ucm.IdentEnableDevice, "Headset"))
	require.NoError(t, f.s.Set(ucm.IdentEnableModifier, ucm.ModPlayFM))
	require.NoError(t, f.s.Reset())

	verb, _ := f.s.Get(ucm.IdentVerb)
	assert.Equal(t, ucm.VerbInactive, verb)
	devs, _ := f.s.GetList(ucm.IdentEnabledDevices)
	assert.Empty(t, devs)
	mods, _ := f.s.GetList(ucm.IdentEnabledModifiers)
	assert.Empty(t, mods)

	assert.Equal(t, []string{"1", "0"}, values(f.mix.WritesTo("FM Route")))
	assert.Equal(t, []string{"1", "0"}, values(f.mix.WritesTo("HiFi Route")))
	assert.Equal(t, []string{"On", "Off"}, values(f.mix.WritesTo("Headset Switch")))
}

func TestCloseDuringBackgroundParse(t *testing.T) {
	verbs := []verbFile{hifiFile()}
	for i := range 200 {
		name := fmt.Sprintf("Extra%03d", i)
		verbs = append(verbs, verbFile{
			name: name,
			file: name,
			body: section("Verb", name, "", []string{"'X':1:1"}, nil),
		})
	}
	info := cardDir(t, verbs)
	mem := mixer.NewMemory()

	s, err := ucm.Open(context.Background(), testCard, ucm.Options{
		Registry:    newRegistry(info),
		MixerOpener: mem.Opener(),
	})
	require.NoError(t, err)

	// The first verb is usable before the background parse finishes.
	require.NoError(t, s.Set(ucm.IdentVerb, ucm.VerbHiFi))
	require.NoError(t, s.Close())
	assert.True(t, mem.Closed())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx), "Close joins the parser")

	_, err = s.Get(ucm.IdentVerb)
	assert.ErrorIs(t, err, ucm.ErrInvalidArgument)
	assert.ErrorIs(t, s.Close(), ucm.ErrInvalidArgument)
}

func TestConcurrentCallsDuringParse(t *testing.T) {
	verbs := []verbFile{hifiFile()}
	for i := range 50 {
		name := fmt.Sprintf("Extra%02d", i)
		verbs = append(verbs, verbFile{name: name, file: name, body: section("Verb", name, "", nil, nil)})
	}
	info := cardDir(t, verbs)

	s, err := ucm.Open(context.Background(), testCard, ucm.Options{
		Registry:    newRegistry(info),
		MixerOpener: mixer.NewMemory().Opener(),
	})
	require.NoError(t, err)
	defer s.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			_, _ = s.GetList(ucm.IdentVerbs)
			_, _ = s.GetI(ucm.IdentDeviceStatus + "/Speaker")
		}
	}()
	for range 20 {
		_ = s.Set(ucm.IdentVerb, ucm.VerbHiFi)
		_ = s.Set(ucm.IdentEnableDevice, "Speaker")
		_ = s.Set(ucm.IdentDisableDevice, "Speaker")
	}
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	verbsNow, err := s.GetList(ucm.IdentVerbs)
	require.NoError(t, err)
	assert.Len(t, verbsNow, 51)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	f := openCard(t, cardDir(t, []verbFile{hifiFile()}))
	require.NoError(t, f.s.Set(ucm.IdentVerb, ucm.VerbHiFi))

	snap := f.s.Snapshot()
	require.Len(t, snap.Verbs, 1)
	assert.Equal(t, ucm.VerbHiFi, snap.CurrentVerb)
	snap.Verbs[0].Records[0].Enable[0].Int = 99

	again := f.s.Snapshot()
	assert.Equal(t, 1, again.Verbs[0].Records[0].Enable[0].Int)
}

func TestErrnoMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{ucm.ErrInvalidArgument, -int(syscall.EINVAL)},
		{ucm.ErrNoSuchDevice, -int(syscall.ENODEV)},
		{ucm.ErrNotFound, -int(syscall.ENOENT)},
		{ucm.ErrOutOfMemory, -int(syscall.ENOMEM)},
		{ucm.ErrUnsupported, -int(syscall.EPERM)},
		{ucm.ErrDeviceBusy, -int(syscall.EBUSY)},
		{fmt.Errorf("wrapped: %w", ucm.ErrNotFound), -int(syscall.ENOENT)},
		{errors.New("other"), -int(syscall.EIO)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ucm.Errno(tt.err), "%v", tt.err)
	}

	e := ucm.NewErrorWithCause(ucm.CodeNoSuchDevice, "mixer gone", errors.New("EIO"), nil)
	assert.True(t, e.HasCode(ucm.CodeNoSuchDevice))
	assert.ErrorIs(t, e, ucm.ErrNoSuchDevice)
	assert.NotErrorIs(t, e, ucm.ErrNotFound)
	assert.Equal(t, ucm.CodeNoSuchDevice, ucm.CodeOf(fmt.Errorf("x: %w", e)))
	assert.Contains(t, e.Error(), "mixer gone")
}
