package led

import (
	"os"
	"strings"

	"github.com/smazurov/ucmd/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boardLEDs maps a device tree model substring to the LED that shows
// audio activity on that board.
var boardLEDs = []struct {
	model string
	led   string
}{
	{"NanoPC-T6", "usr_led"},
	{"Orange Pi", "green_led"},
	{"Raspberry Pi", "ACT"},
	{"Qualcomm", "green"},
}

// New returns a controller for the activity LED. A non-empty name selects
// the sysfs LED directly; otherwise the board is detected. Boards without
// a known LED get a no-op controller.
func New(name string, logger logging.Logger) Controller {
	return newController(sysfsLEDPath, name, detectBoard(deviceTreeModelPath), logger)
}

func newController(root, name, model string, logger logging.Logger) Controller {
	if name == "" {
		for _, b := range boardLEDs {
			if strings.Contains(model, b.model) {
				name = b.led
				break
			}
		}
	}
	if name == "" {
		if logger != nil {
			logger.Info("No activity LED for this board, using no-op controller", "board_model", model)
		}
		return newNoop(logger)
	}
	if logger != nil {
		logger.Info("Using sysfs activity LED", "board_model", model, "led", name)
	}
	return newSysfs(root, map[string]string{RoleActivity: name})
}

// detectBoard reads the device tree model, which is NUL terminated.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
