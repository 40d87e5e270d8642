package ucm

// Calibrator pushes acoustic calibration tables to the audio DSP.
type Calibrator interface {
	Init() error
	Deinit() error
	SendVoiceCal(rxID, txID int) error
	SendAudioCal(acdbID, capability int) error
}

// UnsupportedCalibrator is used when no calibration loader is present.
// Every call fails with ErrUnsupported.
type UnsupportedCalibrator struct{}

func (UnsupportedCalibrator) Init() error { return ErrUnsupported }
func (UnsupportedCalibrator) Deinit() error { return ErrUnsupported }
func (UnsupportedCalibrator) SendVoiceCal(_, _ int) error { return ErrUnsupported }
func (UnsupportedCalibrator) SendAudioCal(_, _ int) error { return ErrUnsupported }
