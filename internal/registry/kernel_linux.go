//go:build linux

package registry

import "github.com/smazurov/ucmd/pkg/linuxav/alsa"

// KernelCards lists the cards behind /dev/snd/controlC*.
func KernelCards() ([]KernelCard, error) {
	cards, err := alsa.ListCards()
	if err != nil {
		return nil, err
	}
	out := make([]KernelCard, len(cards))
	for i, c := range cards {
		out[i] = KernelCard{Number: c.Number, ID: c.ID, Name: c.Name, Driver: c.Driver}
	}
	return out, nil
}
