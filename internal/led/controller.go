// Package led drives a board LED from the audio state of open cards.
package led

// Pattern is what an LED shows.
type Pattern string

// Supported patterns.
const (
	PatternOff   Pattern = "off"
	PatternSolid Pattern = "solid"
	PatternBlink Pattern = "blink"
)

// Controller abstracts LED hardware across boards.
type Controller interface {
	// Set switches the LED with the given role to pattern.
	Set(role string, pattern Pattern) error

	// Available returns the LED roles this controller can drive.
	Available() []string
}

// RoleActivity is the LED that follows audio activity.
const RoleActivity = "activity"
