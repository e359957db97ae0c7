package colour

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lichtwerk.net/lichtwerk/util"
)

func TestScaled(t *testing.T) {
	c := RGB{R: 255, G: 100, B: 0}
	half := c.Scaled(127)
	assert.Equal(t, uint8(127), half.R)
	assert.Equal(t, uint8(49), half.G)
	assert.Equal(t, uint8(0), half.B)

	assert.Equal(t, c, c.Scaled(255))
	assert.True(t, c.Scaled(0).IsOff())
}

func TestNormalizePower(t *testing.T) {
	// pure red and a mixed hue end up with the same channel power
	red := RGB{R: 255}.NormalizePower(300)
	mixed := RGB{R: 100, G: 100, B: 100}.NormalizePower(300)
	assert.Equal(t, 255, red.Sum())
	assert.Equal(t, 300, mixed.Sum())

	// red saturates at 255 on a single channel
	assert.Equal(t, uint8(255), red.R)

	assert.True(t, RGB{}.NormalizePower(300).IsOff())
	assert.True(t, RGB{R: 10}.NormalizePower(0).IsOff())
}

func TestGet(t *testing.T) {
	rnd := &util.SeqRand{Values: []int{2}}

	assert.Equal(t, RGB{R: 255}, Get(Red, rnd))
	assert.Equal(t, RGB{B: 255}, Get(Random, rnd))
	assert.True(t, Get(Off, rnd).IsOff())
	assert.True(t, Get(NoChange, rnd).IsOff())
}

func TestRainbow(t *testing.T) {
	pal := Rainbow(6)
	assert.Len(t, pal, 6)
	// starts at pure red
	assert.Equal(t, RGB{R: 255}, pal[0])
	// every entry is a fully saturated hue: one channel at max
	for _, c := range pal {
		maxCh := c.R
		if c.G > maxCh {
			maxCh = c.G
		}
		if c.B > maxCh {
			maxCh = c.B
		}
		assert.Equal(t, uint8(255), maxCh)
	}
	assert.Nil(t, Rainbow(0))
}
