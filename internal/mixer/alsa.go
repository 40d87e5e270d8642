//go:build linux

package mixer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gen2brain/alsa"

	"github.com/smazurov/ucmd/internal/ucm"
)

// OpenALSA opens the control device of card through the kernel ALSA
// control interface.
func OpenALSA(card ucm.CardInfo) (ucm.Mixer, error) {
	if card.Number < 0 {
		return nil, fmt.Errorf("invalid card number %d", card.Number)
	}
	m, err := alsa.MixerOpen(uint(card.Number))
	if err != nil {
		return nil, fmt.Errorf("open mixer for card %d: %w", card.Number, err)
	}
	return &alsaMixer{m: m}, nil
}

type alsaMixer struct {
	m *alsa.Mixer
}

func (a *alsaMixer) Control(name string) (ucm.Control, error) {
	ctl, err := a.m.CtlByName(name)
	if err != nil || ctl == nil {
		return nil, fmt.Errorf("%w: %s", ucm.ErrNoControl, name)
	}
	return &alsaControl{ctl: ctl}, nil
}

func (a *alsaMixer) Close() error {
	return a.m.Close()
}

type alsaControl struct {
	ctl *alsa.MixerCtl
}

func (c *alsaControl) writable() error {
	if c.ctl.Access()&uint32(alsa.SNDRV_CTL_ELEM_ACCESS_WRITE) == 0 {
		return fmt.Errorf("control %q is read-only", c.ctl.Name())
	}
	return nil
}

// SetInt writes v to every value of the control.
func (c *alsaControl) SetInt(v int) error {
	if err := c.writable(); err != nil {
		return err
	}
	if c.ctl.Type() == alsa.SNDRV_CTL_ELEM_TYPE_INTEGER64 {
		return c.setAll(func(i uint) error { return c.ctl.SetValue64(i, int64(v)) })
	}
	return c.setAll(func(i uint) error { return c.ctl.SetValue(i, v) })
}

// SetString selects an enumerated item by name. Integer and boolean
// controls accept the string form of their value.
func (c *alsaControl) SetString(s string) error {
	if err := c.writable(); err != nil {
		return err
	}
	switch c.ctl.Type() {
	case alsa.SNDRV_CTL_ELEM_TYPE_ENUMERATED:
		return c.ctl.SetEnumByString(s)
	case alsa.SNDRV_CTL_ELEM_TYPE_INTEGER, alsa.SNDRV_CTL_ELEM_TYPE_BOOLEAN, alsa.SNDRV_CTL_ELEM_TYPE_INTEGER64:
		v, err := parseIntValue(s)
		if err != nil {
			return fmt.Errorf("control %q: %w", c.ctl.Name(), err)
		}
		return c.SetInt(v)
	}
	return fmt.Errorf("control %q of type %s does not take a string", c.ctl.Name(), c.ctl.TypeString())
}

// SetMulti writes one token per value index. An "N%" token is applied to
// every index as a percentage of the control's range.
func (c *alsaControl) SetMulti(values []string) error {
	if err := c.writable(); err != nil {
		return err
	}
	if len(values) == 0 {
		return errors.New("no values")
	}

	if len(values) == 1 && strings.HasSuffix(values[0], "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(values[0], "%"))
		if err != nil {
			return fmt.Errorf("invalid percentage %q", values[0])
		}
		return c.setAll(func(i uint) error { return c.ctl.SetPercent(i, pct) })
	}

	n := uint(c.ctl.NumValues())
	if uint(len(values)) > n {
		return fmt.Errorf("control %q has %d values, got %d", c.ctl.Name(), n, len(values))
	}

	if c.ctl.Type() == alsa.SNDRV_CTL_ELEM_TYPE_BYTES {
		data := make([]byte, n)
		for i, s := range values {
			v, err := strconv.ParseUint(s, 10, 8)
			if err != nil {
				return fmt.Errorf("invalid byte value %q", s)
			}
			data[i] = byte(v)
		}
		return c.ctl.SetArray(data)
	}

	for i, s := range values {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer value %q", s)
		}
		if err := c.ctl.SetValue(uint(i), v); err != nil {
			return err
		}
	}
	return nil
}

func (c *alsaControl) setAll(set func(i uint) error) error {
	for i := uint(0); i < uint(c.ctl.NumValues()); i++ {
		if err := set(i); err != nil {
			return err
		}
	}
	return nil
}

func parseIntValue(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes":
		return 1, nil
	case "off", "false", "no":
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid integer value %q", s)
	}
	return v, nil
}
