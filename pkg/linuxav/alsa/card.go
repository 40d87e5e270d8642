//go:build linux

package alsa

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// devDir is where the kernel exposes ALSA device nodes.
var devDir = "/dev/snd"

// Card is the kernel's view of one sound card.
type Card struct {
	Number    int    `json:"number"`
	ID        string `json:"id"`
	Driver    string `json:"driver"`
	Name      string `json:"name"`
	LongName  string `json:"long_name"`
	MixerName string `json:"mixer_name"`
	// PCMDevices lists the PCM device numbers on the card.
	PCMDevices []int `json:"pcm_devices,omitempty"`
}

// ControlPath returns the control device node of card n.
func ControlPath(n int) string {
	return filepath.Join(devDir, "controlC"+strconv.Itoa(n))
}

// ParseControlPath extracts the card number from a controlC<N> path.
func ParseControlPath(path string) (int, error) {
	rest, ok := strings.CutPrefix(filepath.Base(path), "controlC")
	if !ok || rest == "" {
		return 0, fmt.Errorf("not a control device: %s", path)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid card number in %s", path)
	}
	return n, nil
}

// FormatPCM returns the "hw:C,D" name of a PCM device.
func FormatPCM(card, device int) string {
	return "hw:" + strconv.Itoa(card) + "," + strconv.Itoa(device)
}

// ParsePCM splits a "hw:C,D" name into card and device numbers.
func ParsePCM(name string) (card, device int, err error) {
	rest, ok := strings.CutPrefix(name, "hw:")
	if !ok {
		return 0, 0, fmt.Errorf("not a hw PCM name: %q", name)
	}
	c, d, ok := strings.Cut(rest, ",")
	if !ok {
		return 0, 0, fmt.Errorf("missing device number in %q", name)
	}
	if card, err = strconv.Atoi(c); err != nil {
		return 0, 0, fmt.Errorf("invalid card number in %q: %w", name, err)
	}
	if device, err = strconv.Atoi(d); err != nil {
		return 0, 0, fmt.Errorf("invalid device number in %q: %w", name, err)
	}
	return card, device, nil
}

// ListCards returns every card that has a readable control device, sorted
// by card number. Cards whose control device cannot be queried are skipped.
func ListCards() ([]Card, error) {
	paths, err := filepath.Glob(filepath.Join(devDir, "controlC*"))
	if err != nil {
		return nil, err
	}

	var cards []Card
	for _, path := range paths {
		n, err := ParseControlPath(path)
		if err != nil {
			continue
		}
		card, err := ReadCard(n)
		if err != nil {
			continue
		}
		cards = append(cards, card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Number < cards[j].Number })
	return cards, nil
}

// ReadCard queries the control device of card n.
func ReadCard(n int) (Card, error) {
	path := ControlPath(n)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return Card{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = unix.Close(fd) }()

	var info sndCtlCardInfo
	if err := ioctl(fd, sndrvCtlIoctlCardInfo, unsafe.Pointer(&info)); err != nil {
		return Card{}, fmt.Errorf("card info %s: %w", path, err)
	}

	card := Card{
		Number:    int(info.card),
		ID:        cstr(info.id[:]),
		Driver:    cstr(info.driver[:]),
		Name:      cstr(info.name[:]),
		LongName:  cstr(info.longname[:]),
		MixerName: cstr(info.mixername[:]),
	}

	dev := int32(-1)
	for {
		if err := ioctl(fd, sndrvCtlIoctlPCMNextDevice, unsafe.Pointer(&dev)); err != nil || dev < 0 {
			break
		}
		card.PCMDevices = append(card.PCMDevices, int(dev))
	}
	return card, nil
}
