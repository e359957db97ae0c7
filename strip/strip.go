// Package strip holds the pixel memory for all LED strips and pushes
// finished frames to a Transmitter. It mirrors the contract of a
// double-buffered DMA driver: writes go to a working buffer, Update copies
// the frame aside and transmits it asynchronously, and IsBusy reports an
// in-flight transmission. The animation engine never touches the hardware
// directly, it only talks to a Bank.
package strip

import (
	"errors"
	"fmt"
	"sync/atomic"
)

const (
	// AllStrips addresses every strip in broadcast operations.
	AllStrips = 255
	// MaxGlobal is the highest global brightness value (APA102 5-bit field).
	MaxGlobal = 31
	// UseDefault selects the bank-wide default global brightness. Any value
	// above MaxGlobal behaves the same.
	UseDefault = 255
)

var (
	ErrNoSuchStrip = errors.New("no such strip")
	ErrNoSuchPixel = errors.New("no such pixel")
	ErrBadRange    = errors.New("invalid pixel range")
)

// Pixel is one LED's colour plus its 0..31 global brightness.
type Pixel struct {
	R      uint8
	G      uint8
	B      uint8
	Global uint8
}

// Transmitter sends a finished frame to the physical or simulated device.
// It is called from its own goroutine; the frame slice is owned by the
// callee until it returns.
type Transmitter interface {
	Transmit(strip int, frame []Pixel)
}

type stripBuf struct {
	work  []Pixel
	front []Pixel
	busy  atomic.Bool
	dirty bool
}

// Bank owns the pixel buffers of all strips.
type Bank struct {
	strips        []*stripBuf
	tx            Transmitter
	defaultGlobal atomic.Uint32
}

// NewBank creates a bank with one strip per entry of sizes (the number of
// pixels on that strip). tx may be nil, in which case Update only swaps
// buffers and the bank never reports busy.
func NewBank(tx Transmitter, sizes ...int) *Bank {
	b := &Bank{tx: tx}
	for _, n := range sizes {
		if n < 0 {
			n = 0
		}
		b.strips = append(b.strips, &stripBuf{
			work:  make([]Pixel, n),
			front: make([]Pixel, n),
		})
	}
	b.defaultGlobal.Store(MaxGlobal)
	return b
}

func (b *Bank) NumStrips() int {
	return len(b.strips)
}

// StripLen returns the number of pixels on a strip, 0 if it does not exist.
func (b *Bank) StripLen(strip int) int {
	if strip < 0 || strip >= len(b.strips) {
		return 0
	}
	return len(b.strips[strip].work)
}

// SetDefaultGlobal sets the brightness used whenever a write passes
// UseDefault. Values above MaxGlobal are capped.
func (b *Bank) SetDefaultGlobal(g uint8) {
	if g > MaxGlobal {
		g = MaxGlobal
	}
	b.defaultGlobal.Store(uint32(g))
}

func (b *Bank) DefaultGlobal() uint8 {
	return uint8(b.defaultGlobal.Load())
}

// IsValidPixel reports whether the strip exists and the pixel index is on it.
func (b *Bank) IsValidPixel(strip, pixel int) bool {
	return strip >= 0 && strip < len(b.strips) &&
		pixel >= 0 && pixel < len(b.strips[strip].work)
}

func (b *Bank) resolveGlobal(global uint8) uint8 {
	if global > MaxGlobal {
		return b.DefaultGlobal()
	}
	return global
}

// SetPixel writes one pixel using the default global brightness. With
// force false the write is skipped (and the strip not marked dirty) when
// the pixel already holds that value.
func (b *Bank) SetPixel(strip, pixel int, r, g, bl uint8, force bool) error {
	return b.SetPixelGlobal(strip, pixel, r, g, bl, UseDefault, force)
}

// SetPixelGlobal writes one pixel with an explicit global brightness.
func (b *Bank) SetPixelGlobal(strip, pixel int, r, g, bl, global uint8, force bool) error {
	if !b.IsValidPixel(strip, pixel) {
		return fmt.Errorf("set pixel %d:%d: %w", strip, pixel, ErrNoSuchPixel)
	}
	px := Pixel{R: r, G: g, B: bl, Global: b.resolveGlobal(global)}
	s := b.strips[strip]
	if !force && s.work[pixel] == px {
		return nil
	}
	s.work[pixel] = px
	s.dirty = true
	return nil
}

// GetPixel returns a copy of the pixel from the working buffer.
func (b *Bank) GetPixel(strip, pixel int) (Pixel, error) {
	if !b.IsValidPixel(strip, pixel) {
		return Pixel{}, fmt.Errorf("get pixel %d:%d: %w", strip, pixel, ErrNoSuchPixel)
	}
	return b.strips[strip].work[pixel], nil
}

// FillRange sets every pixel in [start, stop] to the same colour.
func (b *Bank) FillRange(strip, start, stop int, r, g, bl, global uint8) error {
	if !b.IsValidPixel(strip, start) || !b.IsValidPixel(strip, stop) {
		return fmt.Errorf("fill %d:[%d,%d]: %w", strip, start, stop, ErrNoSuchPixel)
	}
	if start > stop {
		return fmt.Errorf("fill %d:[%d,%d]: %w", strip, start, stop, ErrBadRange)
	}
	px := Pixel{R: r, G: g, B: bl, Global: b.resolveGlobal(global)}
	s := b.strips[strip]
	for i := start; i <= stop; i++ {
		if s.work[i] != px {
			s.work[i] = px
			s.dirty = true
		}
	}
	return nil
}

// Clear blacks out a strip (or all strips).
func (b *Bank) Clear(strip int) error {
	if strip == AllStrips {
		for i := range b.strips {
			b.clearOne(i)
		}
		return nil
	}
	if strip < 0 || strip >= len(b.strips) {
		return fmt.Errorf("clear strip %d: %w", strip, ErrNoSuchStrip)
	}
	b.clearOne(strip)
	return nil
}

func (b *Bank) clearOne(strip int) {
	s := b.strips[strip]
	for i := range s.work {
		s.work[i] = Pixel{}
	}
	s.dirty = true
}

// IsBusy reports whether a transmission is in flight on the strip, or on
// any strip for AllStrips. Unknown strips read as not busy.
func (b *Bank) IsBusy(strip int) bool {
	if strip == AllStrips {
		for _, s := range b.strips {
			if s.busy.Load() {
				return true
			}
		}
		return false
	}
	if strip < 0 || strip >= len(b.strips) {
		return false
	}
	return b.strips[strip].busy.Load()
}

// Update copies the working buffer to the front buffer and transmits it
// asynchronously. Returns false if nothing was pushed, because the strip is
// still busy or nothing changed since the last update.
func (b *Bank) Update(strip int) bool {
	if strip == AllStrips {
		any := false
		for i := range b.strips {
			if b.updateOne(i) {
				any = true
			}
		}
		return any
	}
	if strip < 0 || strip >= len(b.strips) {
		return false
	}
	return b.updateOne(strip)
}

func (b *Bank) updateOne(strip int) bool {
	s := b.strips[strip]
	if !s.dirty || s.busy.Load() {
		return false
	}
	copy(s.front, s.work)
	s.dirty = false
	if b.tx == nil {
		return true
	}
	s.busy.Store(true)
	go func(idx int, frame []Pixel) {
		b.tx.Transmit(idx, frame)
		s.busy.Store(false)
	}(strip, s.front)
	return true
}
