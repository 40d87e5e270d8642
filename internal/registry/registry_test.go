package registry

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/ucmd/internal/config"
	"github.com/smazurov/ucmd/internal/ucm"
)

const sampleCards = `
config_dir = "/usr/share/ucmd"

[[cards]]
name = "snd_soc_msm"
number = 0

[[cards]]
name = "snd_soc_msm_2x"
number = 1
control_path = "/dev/snd/controlC9"
master = "msm_2x.conf"

[[cards]]
name = "usb"
config_dir = "/opt/usb"
`

func writeCards(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	r, err := Load(writeCards(t, sampleCards))
	require.NoError(t, err)

	assert.Equal(t, []string{"snd_soc_msm", "snd_soc_msm_2x", "usb"}, r.Names())
	assert.Equal(t, "/usr/share/ucmd", r.ConfigDir())

	msm, err := r.Lookup("snd_soc_msm")
	require.NoError(t, err)
	assert.Equal(t, ucm.CardInfo{
		Name:        "snd_soc_msm",
		Number:      0,
		ControlPath: "/dev/snd/controlC0",
		ConfigDir:   "/usr/share/ucmd",
	}, msm)
	assert.Equal(t, "/usr/share/ucmd/snd_soc_msm", msm.MasterPath())

	x2, err := r.Lookup("snd_soc_msm_2x")
	require.NoError(t, err)
	assert.Equal(t, "/dev/snd/controlC9", x2.ControlPath)
	assert.Equal(t, "/usr/share/ucmd/msm_2x.conf", x2.MasterPath())

	usb, err := r.Lookup("usb")
	require.NoError(t, err)
	assert.Equal(t, "/opt/usb", usb.ConfigDir)
}

func TestLoadMissingFile(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "cards.toml"))
	require.NoError(t, err)
	assert.Empty(t, r.Names())
	assert.Equal(t, DefaultConfigDir, r.ConfigDir())
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"syntax":    "[[cards]\nname=",
		"no name":   "[[cards]]\nnumber = 1\n",
		"duplicate": "[[cards]]\nname = \"a\"\n[[cards]]\nname = \"a\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeCards(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	r := New(ucm.CardInfo{Name: "a"})
	_, err := r.Lookup("b")
	assert.ErrorIs(t, err, ucm.ErrNotFound)
	assert.Equal(t, -2, ucm.Errno(err))
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeCards(t, sampleCards)
	r, err := Load(path)
	require.NoError(t, err)

	r.Upsert(ucm.CardInfo{Name: "hdmi", Number: 2})
	require.NoError(t, r.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Cards(), again.Cards())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "controlC0", "default control paths are not written")
	assert.Contains(t, string(data), "controlC9")

	assert.Error(t, New().Save(), "in-memory registry has nowhere to save")
}

func TestReplaceNotifies(t *testing.T) {
	r := New(ucm.CardInfo{Name: "a"}, ucm.CardInfo{Name: "b"})

	var got []ucm.CardInfo
	r.OnChange(func(cards []ucm.CardInfo) { got = cards })
	r.Replace([]ucm.CardInfo{{Name: "b", Number: 3}})

	assert.Equal(t, []string{"b"}, r.Names())
	require.Len(t, got, 1)
	assert.Equal(t, "/dev/snd/controlC3", got[0].ControlPath)
	assert.Equal(t, DefaultConfigDir, got[0].ConfigDir)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hdmi"), []byte("# master"), 0o644))
	r, err := Load(writeCards(t, "config_dir = \""+dir+"\"\n[[cards]]\nname = \"snd_soc_msm\"\n[[cards]]\nname = \"pinned\"\ncontrol_path = \"/dev/snd/by-id/x\"\n"))
	require.NoError(t, err)

	lister := func() ([]KernelCard, error) {
		return []KernelCard{
			{Number: 1, ID: "SND_SOC_MSM", Name: "msm"},
			{Number: 2, ID: "HDMI", Name: "hdmi"},
			{Number: 3, ID: "Pinned", Name: "pinned"},
			{Number: 4, ID: "USB", Name: "usb-audio"},
		}, nil
	}
	unmatched, err := r.Discover(lister)
	require.NoError(t, err)

	require.Len(t, unmatched, 1)
	assert.Equal(t, "USB", unmatched[0].ID)
	assert.Equal(t, []string{"snd_soc_msm", "pinned", "hdmi"}, r.Names())

	msm, _ := r.Lookup("snd_soc_msm")
	assert.Equal(t, 1, msm.Number)
	assert.Equal(t, "/dev/snd/controlC1", msm.ControlPath)

	pinned, _ := r.Lookup("pinned")
	assert.Equal(t, 3, pinned.Number)
	assert.Equal(t, "/dev/snd/by-id/x", pinned.ControlPath, "explicit control path is kept")

	hdmi, _ := r.Lookup("hdmi")
	assert.Equal(t, 2, hdmi.Number)
	assert.Equal(t, dir, hdmi.ConfigDir)
}

func TestDiscoverListerError(t *testing.T) {
	r := New()
	_, err := r.Discover(func() ([]KernelCard, error) { return nil, os.ErrPermission })
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestWatchReplacesCards(t *testing.T) {
	path := writeCards(t, sampleCards)
	r, err := Load(path)
	require.NoError(t, err)

	var mu sync.Mutex
	changed := make(chan []string, 1)
	r.OnChange(func(cards []ucm.CardInfo) {
		mu.Lock()
		defer mu.Unlock()
		names := make([]string, len(cards))
		for i, c := range cards {
			names[i] = c.Name
		}
		select {
		case changed <- names:
		default:
		}
	})

	w, err := r.Watch(testLogger(), config.WithDebounce[[]ucm.CardInfo](50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("[[cards]]\nname = \"only\"\n"), 0o644))

	select {
	case names := <-changed:
		assert.Equal(t, []string{"only"}, names)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for registry reload")
	}
	assert.Equal(t, DefaultConfigDir, r.ConfigDir())
}
