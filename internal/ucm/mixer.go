package ucm

// Mixer is an open control device of one card.
type Mixer interface {
	// Control resolves a control by name. It returns ErrNoControl when the
	// card exposes no such control.
	Control(name string) (Control, error)
	Close() error
}

// Control is a single writable mixer control.
type Control interface {
	SetInt(v int) error
	SetString(s string) error
	SetMulti(values []string) error
}

// MixerOpener opens the control device of a card.
type MixerOpener func(card CardInfo) (Mixer, error)
