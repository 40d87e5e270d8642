//go:build linux

// Package alsa reads sound card identity straight from the kernel's ALSA
// control devices, without cgo.
//
// # Card Enumeration
//
// Use ListCards to discover every card with a control device:
//
//	cards, err := alsa.ListCards()
//	for _, c := range cards {
//	    fmt.Printf("%d [%s]: %s (%s)\n", c.Number, c.ID, c.Name, alsa.ControlPath(c.Number))
//	}
package alsa
