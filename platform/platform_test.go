package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichtwerk.net/lichtwerk/strip"
)

func TestAPA102FrameLayout(t *testing.T) {
	p := NewRaspberryPiPlatform(0, [3]float64{}, 2)
	p.Transmit(0, []strip.Pixel{
		{R: 255, Global: 31},
		{G: 128, Global: 1},
	})

	// 4 start bytes, one brightness/blue/green/red quad per LED, the
	// remainder 0xFF clock bytes
	expected := []byte{
		0x00, 0x00, 0x00, 0x00,
		0xFF, 0, 0, 255,
		0xE1, 0, 128, 0,
		0xFF,
	}
	assert.Equal(t, expected, p.buildFrameLocked())
}

func TestAPA102ColourCorrection(t *testing.T) {
	p := NewRaspberryPiPlatform(0, [3]float64{0.5, 1, 2}, 1)
	p.Transmit(0, []strip.Pixel{{R: 200, G: 100, B: 200, Global: 31}})

	frame := p.buildFrameLocked()
	require.Len(t, frame, 4+4+1)
	assert.Equal(t, byte(255), frame[5], "blue is corrected and capped")
	assert.Equal(t, byte(100), frame[6])
	assert.Equal(t, byte(100), frame[7], "red is halved")
}

func TestAPA102ChainsStripsInOrder(t *testing.T) {
	p := NewRaspberryPiPlatform(0, [3]float64{}, 1, 1)
	p.Transmit(1, []strip.Pixel{{B: 10, Global: 31}})
	p.Transmit(0, []strip.Pixel{{R: 20, Global: 31}})

	frame := p.buildFrameLocked()
	assert.Equal(t, byte(20), frame[7], "strip 0 leads the chain")
	assert.Equal(t, byte(10), frame[9])
}

func TestRenderFrame(t *testing.T) {
	top, bottom := renderFrame([]strip.Pixel{
		{},
		{R: 255, Global: 31},
	})
	assert.Equal(t, " [#ff0000]▃[-]", top)
	assert.Equal(t, " [#ff0000]█[-]", bottom)
}

func TestScaledColor(t *testing.T) {
	assert.Equal(t, "[#000000]", scaledColor(strip.Pixel{}))
	assert.Equal(t, "[#ff0000]", scaledColor(strip.Pixel{R: 40}))
	assert.Equal(t, "[#ff8000]", scaledColor(strip.Pixel{R: 100, G: 50}))
}

func TestTUIHistoryBounded(t *testing.T) {
	p := NewTUIPlatform(nil, 3, 1)
	for i := 1; i <= 5; i++ {
		p.Transmit(0, []strip.Pixel{{R: uint8(i)}})
	}

	assert.Equal(t, 3, p.history.Len())
	assert.Equal(t, uint8(3), p.history.At(0)[0][0].R, "the oldest retained frame is the third")
	assert.Equal(t, uint8(5), p.history.At(2)[0][0].R)
	assert.True(t, p.frameEvent.HasPending())
}

func TestNullPlatform(t *testing.T) {
	var p NullPlatform
	require.NoError(t, p.Start())
	p.Transmit(0, nil)
	p.Stop()
}
