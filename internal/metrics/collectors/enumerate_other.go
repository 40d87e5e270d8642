//go:build !linux

package collectors

import "errors"

func enumerateCards() ([]soundCard, error) {
	return nil, errors.New("sound card enumeration requires linux")
}
