package colour

import (
	"github.com/lucasb-eyer/go-colorful"

	"lichtwerk.net/lichtwerk/util"
)

// RGB is a linear 8-bit-per-channel colour. All channel arithmetic in the
// animation engine is plain linear 0-255 maths, no gamma correction.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// IsOff is true if all channels are zero.
func (c RGB) IsOff() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// Scaled returns the colour with every channel scaled by scale/255.
func (c RGB) Scaled(scale uint8) RGB {
	return RGB{
		R: uint8(util.Scale(int(c.R), 255, int(scale))),
		G: uint8(util.Scale(int(c.G), 255, int(scale))),
		B: uint8(util.Scale(int(c.B), 255, int(scale))),
	}
}

// Sum is the total channel power of the colour.
func (c RGB) Sum() int {
	return int(c.R) + int(c.G) + int(c.B)
}

// NormalizePower rescales the colour so the sum of the channels equals
// target, making different hues comparable in perceived output power. A
// black input stays black. Channels are capped at 255, so a target above
// 3*255 saturates to white.
func (c RGB) NormalizePower(target int) RGB {
	sum := c.Sum()
	if sum == 0 || target <= 0 {
		return RGB{}
	}
	scale := func(v uint8) uint8 {
		s := int(v) * target / sum
		if s > 255 {
			s = 255
		}
		return uint8(s)
	}
	return RGB{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}

// Simple names the colours of the built-in palette plus the pseudo-colours
// Random (pick one of the palette), Off (black) and NoChange (callers keep
// whatever colour is currently set).
type Simple int

const (
	Red Simple = iota
	Green
	Blue
	Purple
	Cyan
	Yellow
	White
	nofSimple
	Random
	Off
	NoChange
)

var simpleColours = [nofSimple]RGB{
	{255, 0, 0},
	{0, 255, 0},
	{0, 0, 255},
	{255, 0, 255},
	{0, 255, 255},
	{255, 255, 0},
	{255, 255, 255},
}

// Get resolves a Simple colour to its RGB value. Random picks a palette
// entry using rnd; anything out of range (including Off) is black.
func Get(col Simple, rnd util.Rand) RGB {
	if col == Random {
		return simpleColours[rnd.InRange(int(nofSimple)-1)]
	}
	if col < 0 || col >= nofSimple {
		return RGB{}
	}
	return simpleColours[col]
}

// Pride is the hue table stepped through by the rainbow wheel.
var Pride = []RGB{
	{255, 0, 0},   // red
	{255, 127, 0}, // orange
	{255, 255, 0}, // yellow
	{0, 255, 0},   // green
	{0, 0, 255},   // indigo
	{170, 0, 255}, // purple
}

// Rainbow builds a palette of n fully saturated hues evenly spaced around
// the colour wheel.
func Rainbow(n int) []RGB {
	if n <= 0 {
		return nil
	}
	out := make([]RGB, n)
	for i := 0; i < n; i++ {
		r, g, b := colorful.Hsv(float64(i)*360.0/float64(n), 1, 1).RGB255()
		out[i] = RGB{R: r, G: g, B: b}
	}
	return out
}
