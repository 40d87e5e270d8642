package mixer

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/ucmd/internal/ucm"
)

func TestMemoryRecordsWrites(t *testing.T) {
	m := NewMemory()

	ctl, err := m.Control("Speaker Volume")
	require.NoError(t, err)
	require.NoError(t, ctl.SetInt(80))
	require.NoError(t, ctl.SetString("ON"))
	require.NoError(t, ctl.SetMulti([]string{"1", "2"}))

	writes := m.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, Write{Control: "Speaker Volume", Kind: "int", Values: []string{"80"}}, writes[0])
	assert.Equal(t, Write{Control: "Speaker Volume", Kind: "string", Values: []string{"ON"}}, writes[1])
	assert.Equal(t, Write{Control: "Speaker Volume", Kind: "multi", Values: []string{"1", "2"}}, writes[2])

	m.Reset()
	assert.Empty(t, m.Writes())
}

func TestMemoryKnownControls(t *testing.T) {
	m := NewMemory("A", "B")

	_, err := m.Control("A")
	require.NoError(t, err)

	_, err = m.Control("C")
	require.Error(t, err)
	assert.ErrorIs(t, err, ucm.ErrNoControl)
}

func TestMemoryFail(t *testing.T) {
	m := NewMemory()
	boom := errors.New("boom")
	m.Fail("Bad", boom)

	bad, err := m.Control("Bad")
	require.NoError(t, err)
	assert.ErrorIs(t, bad.SetInt(1), boom)

	good, err := m.Control("Good")
	require.NoError(t, err)
	require.NoError(t, good.SetInt(1))

	assert.Len(t, m.Writes(), 1)
	assert.Len(t, m.WritesTo("Good"), 1)
	assert.Empty(t, m.WritesTo("Bad"))
}

func TestMemoryOpener(t *testing.T) {
	m := NewMemory()
	got, err := m.Opener()(ucm.CardInfo{Name: "snd_soc_msm"})
	require.NoError(t, err)
	assert.Same(t, m, got)

	require.NoError(t, got.Close())
	assert.True(t, m.Closed())
}

func TestLoggingDecorator(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	m := NewMemory()
	opener := LoggingOpener(m.Opener(), logger)
	mx, err := opener(ucm.CardInfo{Name: "snd_soc_msm"})
	require.NoError(t, err)

	ctl, err := mx.Control("Volume")
	require.NoError(t, err)
	require.NoError(t, ctl.SetInt(42))
	require.NoError(t, ctl.SetMulti([]string{"1%"}))

	out := buf.String()
	assert.Contains(t, out, "control=Volume")
	assert.Contains(t, out, "value=42")
	assert.Contains(t, out, "card=snd_soc_msm")
	assert.Equal(t, 2, strings.Count(out, "Mixer write"))

	assert.Len(t, m.Writes(), 2)
}

func TestLoggingPassesLookupErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mx := Logging(NewMemory("Only"), logger)

	_, err := mx.Control("Missing")
	assert.ErrorIs(t, err, ucm.ErrNoControl)
}
