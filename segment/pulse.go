package segment

import (
	"fmt"

	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/util"
)

// SetPulse configures (or reconfigures) the pulse of a segment. The
// current pulse cycle is reset; a glitter ring buffer is released and a new
// one allocated for the new setting. id may be AllSegments.
func (e *Engine) SetPulse(id int, ps *PulseSetting) error {
	if ps == nil {
		return fmt.Errorf("set pulse: %w", ErrNilSetting)
	}
	return e.broadcast(id, "set pulse", func(s *seg) error {
		return e.setPulse(s, ps)
	})
}

func (e *Engine) setPulse(s *seg, ps *PulseSetting) error {
	p := &s.pulse
	p.conf = *ps
	p.conf.StartDir = startDir(ps.StartDir)
	p.dir = p.conf.StartDir
	p.cyclesLeft = p.conf.Cycles
	p.done = false
	p.cycleDone = false
	p.active = true

	if ps.Mode.IsGlitter() {
		// The ring is owned by this pulse alone; the old buffer is dropped
		// here and nowhere else.
		p.ring = make([]int, p.conf.LedsMaxPower+p.conf.PixelsPerIteration)
		p.current = 0
		p.moveTicks = e.glitterMoveTicks(p)
		p.countdown = 1 // inject the first subset right away
		p.gcol = [3]int{}
	} else {
		p.ring = nil
		p.current = s.start + p.conf.StartLed - 1
		if p.current > s.stop {
			p.current = s.stop
		}
		if p.current < s.start {
			p.current = s.start
		}
		p.moveTicks = p.conf.PixelTime
		if p.moveTicks < 1 {
			p.moveTicks = 1
		}
		p.countdown = p.moveTicks
	}
	return nil
}

// glitterMoveTicks converts a glitter PixelTime (total fade time in ms for
// one full ring) into update periods per injected subset.
func (e *Engine) glitterMoveTicks(p *pulseState) int {
	ticks := int64(p.conf.PixelTime) / e.periodMillis
	if p.conf.LedsMaxPower > 0 {
		ticks = ticks * int64(p.conf.PixelsPerIteration) / int64(p.conf.LedsMaxPower)
	}
	if ticks < 1 {
		return 1
	}
	return int(ticks)
}

// pulseTick runs one engine visit of the segment's pulse.
func (e *Engine) pulseTick(s *seg) {
	if s.pulse.conf.Mode.IsGlitter() {
		e.glitterTick(s)
		return
	}
	e.windowTick(s)
}

// windowTick advances and draws the moving-window pulse. The window is
// LedsFadeBefore+LedsMaxPower+LedsFadeAfter pixels anchored at the current
// position; pixels outside [start, stop] are simply not written, which also
// covers a pulse configured longer than its segment.
func (e *Engine) windowTick(s *seg) {
	p := &s.pulse
	length := p.conf.LedsFadeBefore + p.conf.LedsMaxPower + p.conf.LedsFadeAfter
	if length <= 0 {
		return
	}

	if util.CountDown(&p.countdown) {
		delta := p.conf.PixelsPerIteration * p.dir
		switch p.conf.Mode {
		case ModeBounce:
			var newDir int
			p.current, newDir = util.BounceValue(p.current, delta, s.start, s.stop)
			if newDir != p.dir {
				// each reflection is one elapsed cycle
				p.dir = newDir
				p.cycleDone = true
				if util.CountDown(&p.cyclesLeft) {
					p.done = true
					p.active = false
				}
			}
		case ModeLoop:
			p.current = util.LoopValue(p.current, delta, s.start, s.stop)
		case ModeLoopEnd:
			p.current += delta
		default:
			return
		}
		p.countdown = p.moveTicks
	}

	for i := 0; i < length; i++ {
		pos := 0
		switch p.conf.Mode {
		case ModeBounce:
			pos, _ = util.BounceValue(p.current, -i*p.dir, s.start, s.stop)
		case ModeLoop:
			pos = util.LoopValue(p.current, -i*p.dir, s.start, s.stop)
		case ModeLoopEnd:
			pos = p.current - i*p.dir
			if i == length-1 {
				// the trailing pixel has cleared the boundary: the whole
				// window is off the segment, snap back and count the cycle
				if p.dir == 1 && pos > s.stop {
					p.current = s.start
					p.cycleDone = true
					if util.CountDown(&p.cyclesLeft) {
						p.done = true
						p.active = false
					}
				} else if p.dir == -1 && pos < s.start {
					p.current = s.stop
					p.cycleDone = true
					if util.CountDown(&p.cyclesLeft) {
						p.done = true
						p.active = false
					}
				}
			}
		}
		if pos >= s.start && pos <= s.stop {
			c := p.colourAt(&s.fade, i+1, length)
			e.writeAbs(s, pos, c.R, c.G, c.B, p.conf.Global)
		}
	}
}

// colourAt computes the colour of window pixel i (1-based from the leading
// edge): a linear ramp from the segment's current fade colour up to the
// pulse colour, the full pulse colour across the plateau, and a ramp back
// down. With a colour sequence configured, the pulse colour is taken from
// the palette indexed by the pixel's position in the window.
func (p *pulseState) colourAt(f *fadeState, i, length int) colour.RGB {
	top := p.conf.Max
	if n := len(p.conf.ColourSeq); n > 0 {
		loops := p.conf.ColourSeqLoops
		if loops < 1 {
			loops = 1
		}
		idx := ((i - 1) * n * loops / length) % n
		top = p.conf.ColourSeq[idx]
	}
	mix := func(ch int, max uint8) uint8 {
		lo := f.col[ch]
		hi := int(max)
		var v int
		switch {
		case i <= p.conf.LedsFadeBefore:
			v = lo + i*(hi-lo)/p.conf.LedsFadeBefore
		case i <= p.conf.LedsFadeBefore+p.conf.LedsMaxPower:
			v = hi
		default:
			v = hi - (i-p.conf.LedsFadeBefore-p.conf.LedsMaxPower)*(hi-lo)/p.conf.LedsFadeAfter
		}
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return uint8(v)
	}
	return colour.RGB{R: mix(0, top.R), G: mix(1, top.G), B: mix(2, top.B)}
}
