package anim

import (
	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/segment"
	"lichtwerk.net/lichtwerk/util"
)

// LoadFadeColour fills a fade setting's channel extremes from a named
// colour, with min and max each scaled by a 0..255 factor.
func LoadFadeColour(col colour.Simple, fs *segment.FadeSetting, minScale, maxScale uint8, rnd util.Rand) {
	c := colour.Get(col, rnd)
	fs.Min = c.Scaled(minScale)
	fs.Max = c.Scaled(maxScale)
}

// LoadPulseColour fills a pulse setting's max colour from a named colour.
func LoadPulseColour(col colour.Simple, ps *segment.PulseSetting, maxScale uint8, rnd util.Rand) {
	ps.Max = colour.Get(col, rnd).Scaled(maxScale)
}

// LoadFadeBetween sets up a fade from one named colour to another: from
// becomes the min extreme, to becomes the max extreme.
func LoadFadeBetween(from, to colour.Simple, fs *segment.FadeSetting, fromScale, toScale uint8, rnd util.Rand) {
	fs.Min = colour.Get(from, rnd).Scaled(fromScale)
	fs.Max = colour.Get(to, rnd).Scaled(toScale)
}

// SetModeChangeColour loads a named colour into a copy of the fade setting
// and hands it to the engine's crossfade mode change. NoChange keeps the
// setting's own colours.
func SetModeChangeColour(eng *segment.Engine, col colour.Simple, fs *segment.FadeSetting, seg int, switchAtMax bool, minScale, maxScale uint8, rnd util.Rand) error {
	tmp := *fs
	if col != colour.NoChange {
		LoadFadeColour(col, &tmp, minScale, maxScale, rnd)
	}
	return eng.SetModeChange(seg, &tmp, switchAtMax)
}
