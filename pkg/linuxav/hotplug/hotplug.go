//go:build linux

// Package hotplug watches kernel uevents for sound card arrival and removal.
//
// Events are read from a NETLINK_KOBJECT_UEVENT socket without cgo or
// libudev. Only the sound subsystem is reported, and only for control
// devices (snd/controlC<N>), which the kernel creates once per card.
package hotplug

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Uevent actions reported for sound cards.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
)

// SubsystemSound is the uevent subsystem of ALSA devices.
const SubsystemSound = "sound"

// controlPrefix is the DEVNAME prefix of a card's control device.
const controlPrefix = "snd/controlC"

// netlinkKobjectUEvent is the netlink protocol for kernel object events.
const netlinkKobjectUEvent = 15

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string
	Subsystem string
	DevName   string // e.g. "snd/controlC0"
	DevPath   string
	Env       map[string]string
}

// CardEvent reports a sound card control device appearing or going away.
type CardEvent struct {
	Action  string
	Number  int
	DevName string
}

// Monitor reads sound card uevents from the kernel.
type Monitor struct {
	fd int
}

// NewMonitor opens a netlink socket bound to the kernel broadcast group.
func NewMonitor() (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Monitor{fd: fd}, nil
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run sends card events to out until ctx is cancelled or the socket fails.
// out is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, out chan<- CardEvent) error {
	defer close(out)

	// Wake up once a second to notice cancellation.
	tv := unix.Timeval{Sec: 1}
	if err := unix.SetsockoptTimeval(m.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return err
	}

	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}

		ev := ParseUEvent(buf[:n])
		if ev == nil {
			continue
		}
		ce, ok := ToCardEvent(*ev)
		if !ok {
			continue
		}

		select {
		case out <- ce:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ToCardEvent converts a sound control device uevent. Other events are
// rejected.
func ToCardEvent(ev Event) (CardEvent, bool) {
	if ev.Subsystem != SubsystemSound {
		return CardEvent{}, false
	}
	n, ok := CardNumber(ev)
	if !ok {
		return CardEvent{}, false
	}
	return CardEvent{Action: ev.Action, Number: n, DevName: ev.DevName}, true
}

// CardNumber extracts N from a snd/controlC<N> device name.
func CardNumber(ev Event) (int, bool) {
	rest, ok := strings.CutPrefix(ev.DevName, controlPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseUEvent decodes "ACTION@KOBJ\0KEY=VALUE\0...". Messages re-broadcast
// by udevd carry a binary "libudev" header; their properties are read
// from the offset the header names.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, []byte(udevPrefix)) {
		return parseUdevMessage(data)
	}

	parts := bytes.Split(data, []byte{0})
	action, kobj, ok := splitHeaderLine(parts[0])
	if !ok {
		return nil
	}
	return newEvent(action, kobj, parts[1:])
}

// libudev monitor framing: an 8-byte "libudev\0" prefix, a big-endian
// magic, then native-endian header size, properties offset and length.
const (
	udevPrefix    = "libudev\x00"
	udevMagic     = 0xfeedcafe
	udevHeaderLen = 24
)

func parseUdevMessage(data []byte) *Event {
	if len(data) >= udevHeaderLen && binary.BigEndian.Uint32(data[8:12]) == udevMagic {
		off := int(binary.NativeEndian.Uint32(data[16:20]))
		n := int(binary.NativeEndian.Uint32(data[20:24]))
		if off < udevHeaderLen || n < 0 || off > len(data) || n > len(data)-off {
			return nil
		}
		ev := newEvent("", "", bytes.Split(data[off:off+n], []byte{0}))
		ev.Action, ev.KObj = ev.Env["ACTION"], ev.Env["DEVPATH"]
		// udev reports the device node path, the kernel the devtmpfs name.
		ev.DevName = strings.TrimPrefix(ev.DevName, "/dev/")
		if ev.Action == "" {
			return nil
		}
		return ev
	}

	// Without a readable header, fall back to the first segment that
	// looks like a kernel "action@kobj" line.
	parts := bytes.Split(data, []byte{0})
	for i, part := range parts {
		if action, kobj, ok := splitHeaderLine(part); ok {
			return newEvent(action, kobj, parts[i+1:])
		}
	}
	return nil
}

// splitHeaderLine accepts "action@kobj" where action is lower-case letters.
func splitHeaderLine(line []byte) (string, string, bool) {
	action, kobj, ok := strings.Cut(string(line), "@")
	if !ok || action == "" {
		return "", "", false
	}
	for _, r := range action {
		if r < 'a' || r > 'z' {
			return "", "", false
		}
	}
	return action, kobj, true
}

func newEvent(action, kobj string, env [][]byte) *Event {
	ev := &Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for _, part := range env {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVNAME":
			ev.DevName = value
		case "DEVPATH":
			ev.DevPath = value
		}
	}
	return ev
}
