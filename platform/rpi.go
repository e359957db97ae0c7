package platform

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"lichtwerk.net/lichtwerk/strip"
)

// RaspberryPiPlatform drives APA102 strips over the Pi's SPI0 bus. Strips
// are daisy-chained in index order, so one SPI exchange carries all of
// them.
type RaspberryPiPlatform struct {
	spiSpeed  int
	colorCorr [3]float64
	sizes     []int

	mu      sync.Mutex
	frames  [][]strip.Pixel
	buffer  []byte
	started bool
}

// NewRaspberryPiPlatform prepares the SPI driver for strips of the given
// sizes. colorCorr scales the three channels to compensate for LED tint;
// zero values mean no correction.
func NewRaspberryPiPlatform(spiSpeed int, colorCorr [3]float64, sizes ...int) *RaspberryPiPlatform {
	for i := range colorCorr {
		if colorCorr[i] <= 0 {
			colorCorr[i] = 1.0
		}
	}
	total := 0
	frames := make([][]strip.Pixel, len(sizes))
	for i, size := range sizes {
		frames[i] = make([]strip.Pixel, size)
		total += size
	}
	// APA102 framing: 4 start bytes, 4 per LED, total/16+1 end bytes
	bufSize := 4 + 4*total + total/16 + 1
	return &RaspberryPiPlatform{
		spiSpeed:  spiSpeed,
		colorCorr: colorCorr,
		sizes:     sizes,
		frames:    frames,
		buffer:    make([]byte, bufSize),
	}
}

func (p *RaspberryPiPlatform) Start() error {
	slog.Info("Initialise GPIO and SPI...")
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("failed to open gpio: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return fmt.Errorf("failed to begin spi: %w", err)
	}
	rpio.SpiSpeed(p.spiSpeed)
	p.started = true
	return nil
}

func (p *RaspberryPiPlatform) Stop() {
	if !p.started {
		return
	}
	// blank the chain before letting go of the bus
	p.mu.Lock()
	for i := range p.frames {
		for j := range p.frames[i] {
			p.frames[i][j] = strip.Pixel{}
		}
	}
	p.exchangeLocked()
	p.mu.Unlock()

	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		slog.Error("Error closing gpio", "error", err)
	}
	p.started = false
}

// Transmit stores the strip's frame and pushes the whole chain out.
func (p *RaspberryPiPlatform) Transmit(stripIdx int, frame []strip.Pixel) {
	if stripIdx < 0 || stripIdx >= len(p.frames) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(p.frames[stripIdx], frame)
	if p.started {
		p.exchangeLocked()
	}
}

func (p *RaspberryPiPlatform) exchangeLocked() {
	rpio.SpiExchange(p.buildFrameLocked())
}

// buildFrameLocked serializes all chained strips into one APA102 frame:
// a zero start frame, one brightness/blue/green/red quad per LED and
// trailing clock bytes.
func (p *RaspberryPiPlatform) buildFrameLocked() []byte {
	display := p.buffer
	copy(display[0:4], []byte{0x00, 0x00, 0x00, 0x00})

	offset := 4
	for _, frame := range p.frames {
		for i := range frame {
			px := &frame[i]
			red := byte(math.Min(float64(px.R)*p.colorCorr[0], 255))
			green := byte(math.Min(float64(px.G)*p.colorCorr[1], 255))
			blue := byte(math.Min(float64(px.B)*p.colorCorr[2], 255))

			// protocol: brightness byte, blue, green, red
			display[offset] = 0xE0 | (px.Global & 0x1F)
			display[offset+1] = blue
			display[offset+2] = green
			display[offset+3] = red
			offset += 4
		}
	}
	for i := offset; i < len(display); i++ {
		display[i] = 0xFF
	}
	return display
}
