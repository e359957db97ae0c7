// Package platform connects the strip bank to an output device: real
// APA102 strips over SPI on a Raspberry Pi, or a terminal simulation.
package platform

import (
	"lichtwerk.net/lichtwerk/strip"
)

// Platform is an output device for pixel frames. It doubles as the bank's
// Transmitter, so a finished frame flows straight from Bank.Update into
// the device.
type Platform interface {
	strip.Transmitter

	// Start claims the device (SPI/GPIO, or the terminal).
	Start() error

	// Stop releases all device resources.
	Stop()
}

// NullPlatform swallows frames. Used headless and in tests.
type NullPlatform struct{}

func (NullPlatform) Start() error                { return nil }
func (NullPlatform) Stop()                       {}
func (NullPlatform) Transmit(int, []strip.Pixel) {}
