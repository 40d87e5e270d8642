//go:build !linux

package mixer

import (
	"errors"

	"github.com/smazurov/ucmd/internal/ucm"
)

// OpenALSA is only available on Linux.
func OpenALSA(_ ucm.CardInfo) (ucm.Mixer, error) {
	return nil, errors.New("ALSA mixer requires linux")
}
