//go:build linux

package collectors

import "github.com/gen2brain/alsa"

func enumerateCards() ([]soundCard, error) {
	cards, err := alsa.EnumerateCards()
	if err != nil {
		return nil, err
	}
	out := make([]soundCard, len(cards))
	for i, c := range cards {
		out[i] = soundCard{Number: c.ID, ID: c.Name}
	}
	return out, nil
}
