package acdb

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/ucmd/internal/ucm"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	for _, backend := range []string{"", BackendNone} {
		cal, err := New(backend, logger)
		require.NoError(t, err)
		assert.ErrorIs(t, cal.SendVoiceCal(1, 2), ucm.ErrUnsupported)
		assert.ErrorIs(t, cal.Init(), ucm.ErrUnsupported)
	}

	cal, err := New(BackendLog, logger)
	require.NoError(t, err)
	assert.NoError(t, cal.SendAudioCal(7, ucm.CapRX))

	_, err = New("acdb-loader", logger)
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	require.NoError(t, r.Init())
	require.NoError(t, r.SendVoiceCal(ucm.AcdbSpeakerRX, ucm.AcdbSpeakerTX))
	require.NoError(t, r.SendAudioCal(ucm.AcdbHandsetRX, ucm.CapRX))
	require.NoError(t, r.Deinit())

	assert.Equal(t, []Call{
		{Kind: "init"},
		{Kind: "voice", RxID: 15, TxID: 11},
		{Kind: "audio", AcdbID: 7, Capability: 1},
		{Kind: "deinit"},
	}, r.Calls())
	assert.Len(t, r.CallsOf("voice"), 1)
}

func TestRecorderFailWith(t *testing.T) {
	r := NewRecorder()
	boom := errors.New("loader crashed")
	r.FailWith(boom)

	assert.ErrorIs(t, r.SendAudioCal(1, 1), boom)
	assert.NoError(t, r.Init(), "init is not affected")
	assert.Len(t, r.Calls(), 2, "failed pushes are still recorded")

	r.FailWith(nil)
	assert.NoError(t, r.SendVoiceCal(1, 2))
}

func TestLoggingCalibrator(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewRecorder()
	cal := Logging(r, logger)

	require.NoError(t, cal.Init())
	require.NoError(t, cal.SendVoiceCal(10, 8))
	require.NoError(t, cal.Deinit())

	out := buf.String()
	assert.Contains(t, out, "Voice calibration")
	assert.Contains(t, out, "rx_id=10")
	assert.Contains(t, out, "tx_id=8")
	assert.Len(t, r.Calls(), 3)
}
