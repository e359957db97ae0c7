package segment

import (
	"lichtwerk.net/lichtwerk/util"
)

// glitterTick advances and draws a glitter pulse. The ring buffer holds
// LedsMaxPower persistent points plus one PixelsPerIteration subset in
// flight; every move event injects that many freshly randomized LED
// indices (or clears them, when running backwards), and between move events
// the in-flight subset's shared colour is stepped towards the pulse colour
// while the persistent points are held at full colour.
func (e *Engine) glitterTick(s *seg) {
	p := &s.pulse
	total := p.conf.LedsMaxPower + p.conf.PixelsPerIteration
	if total <= 0 || len(p.ring) < total {
		return
	}

	if util.CountDown(&p.countdown) {
		// Without an active fade repainting the background each tick, stale
		// points have to be cleared by hand.
		if !s.fade.active {
			for _, led := range p.ring {
				e.writeLed(s, led, 0, 0, 0, p.conf.Global)
			}
		}
		if p.current >= total {
			switch p.conf.Mode {
			case ModeGlitterLoop:
				for i := range p.ring {
					p.ring[i] = 0
				}
				p.current = 0
			case ModeGlitterLoopEnd:
				p.current = total
				p.done = true
			}
		}
		if p.current < total {
			e.glitterInject(s, total)
			if p.conf.Mode == ModeGlitterBounce && p.dir == -1 {
				p.gcol = rgbToChannels(p.conf.Max)
			} else {
				// fresh subset fades in from black
				p.gcol = [3]int{}
			}
		}
		p.countdown = p.moveTicks
	}

	e.glitterFadeStep(p)

	// Draw the in-flight subset at the shared fade colour, then walk
	// backwards over the persistent part of the ring holding it at full
	// colour. An unset slot ends the scan.
	idx := p.current
	if idx < total {
		for i := 0; i < p.conf.PixelsPerIteration; i++ {
			idx = ringPrev(idx, total)
			e.writeLed(s, p.ring[idx],
				uint8(p.gcol[0]), uint8(p.gcol[1]), uint8(p.gcol[2]), p.conf.Global)
		}
	}
	for i := 0; i < p.conf.LedsMaxPower; i++ {
		idx = ringPrev(idx, total)
		if p.ring[idx] == 0 {
			break
		}
		e.writeLed(s, p.ring[idx], p.conf.Max.R, p.conf.Max.G, p.conf.Max.B, p.conf.Global)
	}
}

// glitterInject writes one subset of entries at the ring cursor: random
// LED indices moving forward, cleared slots moving backward. Wrapping the
// cursor ends a cycle and decides, per mode, whether the ring restarts,
// persists, bounces or the pulse is done.
func (e *Engine) glitterInject(s *seg, total int) {
	p := &s.pulse
	for i := 0; i < p.conf.PixelsPerIteration; i++ {
		if p.dir == -1 {
			p.ring[p.current] = 0
		} else {
			// 1-based within the segment; 0 is reserved for unset slots
			p.ring[p.current] = e.rnd.InRange(s.stop-s.start) + 1
		}
		if p.dir == -1 && p.current == 0 {
			p.current = 1
		}
		p.current += p.dir
		if p.current >= total {
			p.cycleDone = true
			exhausted := util.CountDown(&p.cyclesLeft)
			switch {
			case p.conf.Mode == ModeGlitterLoopPersist && !exhausted:
				p.current = 0
			case p.conf.Mode == ModeGlitterBounce && !exhausted:
				p.current = total - 1
				p.dir = -1
				return
			case p.conf.Mode == ModeGlitterLoopEnd:
				p.current = total
				if exhausted {
					p.done = true
				}
				return
			default:
				p.current = total
				if exhausted {
					p.done = true
					p.active = false
				}
				return
			}
		} else if p.current == 0 && p.conf.Mode == ModeGlitterBounce {
			p.dir = 1
		}
	}
}

// glitterFadeStep moves the shared subset colour one step towards the
// pulse colour (or back to black, on the removing stroke of a bounce).
func (e *Engine) glitterFadeStep(p *pulseState) {
	max := rgbToChannels(p.conf.Max)
	for ch := 0; ch < 3; ch++ {
		if max[ch] == 0 {
			continue
		}
		rate := max[ch] / p.moveTicks
		if rate < 1 {
			rate = 1
		}
		p.gcol[ch] = util.IncTowards(p.gcol[ch], p.dir, rate, 0, max[ch])
	}
}

func ringPrev(idx, total int) int {
	if idx > 0 {
		return idx - 1
	}
	return total - 1
}
