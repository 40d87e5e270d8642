package led

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewController(t *testing.T) {
	tests := []struct {
		name     string
		led      string
		model    string
		wantSysf bool
		wantLED  string
	}{
		{"Explicit", "sys_led", "unknown", true, "sys_led"},
		{"NanoPC", "", "FriendlyElec NanoPC-T6", true, "usr_led"},
		{"RaspberryPi", "", "Raspberry Pi 4 Model B Rev 1.4", true, "ACT"},
		{"Unknown", "", "unknown", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newController("/nonexistent", tt.led, tt.model, nil)
			s, ok := ctrl.(*sysfs)
			if ok != tt.wantSysf {
				t.Fatalf("controller = %T, want sysfs %v", ctrl, tt.wantSysf)
			}
			if ok && s.leds[RoleActivity] != tt.wantLED {
				t.Errorf("activity LED = %q, want %q", s.leds[RoleActivity], tt.wantLED)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	if err := os.WriteFile(path, []byte("Raspberry Pi 5\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := detectBoard(path); got != "Raspberry Pi 5" {
		t.Errorf("detectBoard() = %q", got)
	}
	if got := detectBoard(filepath.Join(t.TempDir(), "missing")); got != "unknown" {
		t.Errorf("detectBoard(missing) = %q, want unknown", got)
	}
}
