package segment

import (
	"fmt"

	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/util"
)

// SetFade configures (or reconfigures) the fade of a segment. The current
// fade cycle is reset. id may be AllSegments.
func (e *Engine) SetFade(id int, fs *FadeSetting) error {
	if fs == nil {
		return fmt.Errorf("set fade: %w", ErrNilSetting)
	}
	return e.broadcast(id, "set fade", func(s *seg) error {
		return e.setFade(s, fs)
	})
}

func (e *Engine) setFade(s *seg, fs *FadeSetting) error {
	f := &s.fade
	oldGroup := f.conf.SyncGroup
	f.conf = *fs
	f.conf.StartDir = startDir(fs.StartDir)
	f.handoff = nil

	f.periodMult, f.steps = e.deriveFadeRate(&f.conf, f.rate[:])
	f.countdown = f.periodMult
	f.dir = f.conf.StartDir
	if f.dir == -1 {
		f.col = rgbToChannels(f.conf.Max)
	} else {
		f.col = rgbToChannels(f.conf.Min)
	}
	f.cyclesLeft = f.conf.Cycles
	f.active = true
	f.done = FadeNotDone

	if oldGroup != f.conf.SyncGroup {
		e.groupLeave(oldGroup, segIndex(e, s))
	}
	e.groupJoin(f.conf.SyncGroup, segIndex(e, s))
	return nil
}

func segIndex(e *Engine, s *seg) int {
	for i := range e.segs {
		if &e.segs[i] == s {
			return i
		}
	}
	return -1
}

// deriveFadeRate finds the smallest period multiplier m such that every
// channel with Min != Max moves at least one colour step per update and the
// quantization remainder stays below one step. Raising m stretches the
// update interval (fewer, larger steps) without changing the total fade
// time, which is what keeps long, low-delta fades from stalling at 8-bit
// resolution. Returns the multiplier and the number of updates per
// half-cycle.
func (e *Engine) deriveFadeRate(fs *FadeSetting, rate []int) (mult, steps int) {
	deltas := [3]int{
		absInt(int(fs.Max.R) - int(fs.Min.R)),
		absInt(int(fs.Max.G) - int(fs.Min.G)),
		absInt(int(fs.Max.B) - int(fs.Min.B)),
	}
	fadeMillis := fs.FadeTime.Milliseconds()
	for mult = 1; ; mult++ {
		steps = int(fadeMillis / (e.periodMillis * int64(mult)))
		if steps < 1 {
			// the requested time is below one update interval: finish the
			// half-cycle in a single jump
			steps = 1
		}
		ok := true
		for ch, delta := range deltas {
			rate[ch] = delta / steps
			if delta == 0 {
				continue
			}
			if rate[ch] < 1 || delta-rate[ch]*steps > rate[ch] {
				ok = false
			}
		}
		if ok || steps == 1 {
			return mult, steps
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// fadeTick runs one engine visit of the segment's fade: throttled by the
// period multiplier it advances the colour, then unconditionally fills the
// segment range with the current colour. Pulse writes later in the same
// visit overdraw it.
func (e *Engine) fadeTick(id int, s *seg) {
	f := &s.fade
	// A waiting member polls its group every visit, countdown or not, so a
	// release raised earlier in the same period is never missed.
	if f.done == FadeWaitingSync {
		if g := e.group(f.conf.SyncGroup); g != nil {
			if !g.released && id == g.lowest() && g.allWaiting() {
				g.released = true
			}
			if g.released {
				g.proceed(id)
				f.done = FadeNotDone
				e.fadeAdvanceAtExtreme(s)
			}
		} else {
			// group vanished under us, carry on unsynchronized
			f.done = FadeNotDone
		}
	} else if !f.done.Completed() && util.CountDown(&f.countdown) {
		e.fadeCalc(id, s)
		f.countdown = f.periodMult
	}
	e.sink.FillRange(s.strip, s.start, s.stop,
		uint8(f.col[0]), uint8(f.col[1]), uint8(f.col[2]), segGlobal(f.conf.Global))
}

// fadeCalc advances every channel one derived step towards its extreme and
// handles arrival: sync-group stalling, half-cycle accounting, bounce or
// loop continuation, crossfade hand-off and completion.
func (e *Engine) fadeCalc(id int, s *seg) {
	f := &s.fade
	atExtreme := true
	for ch := 0; ch < 3; ch++ {
		target, other := f.chanExtremes(ch)
		if target == other {
			continue
		}
		if target >= f.col[ch] {
			f.col[ch] = minInt(f.col[ch]+f.rate[ch], target)
		} else {
			f.col[ch] = maxInt(f.col[ch]-f.rate[ch], target)
		}
		if f.col[ch] != target {
			atExtreme = false
		}
	}
	if !atExtreme {
		return
	}
	if g := e.group(f.conf.SyncGroup); g != nil {
		f.done = FadeWaitingSync
		g.arrive(id)
		return
	}
	e.fadeAdvanceAtExtreme(s)
}

// chanExtremes returns the channel value the fade is currently moving
// towards and the opposite one, honouring per-channel reversal (Min > Max).
func (f *fadeState) chanExtremes(ch int) (target, other int) {
	mn, mx := f.conf.minMaxChan(ch)
	if f.dir >= 0 {
		return mx, mn
	}
	return mn, mx
}

func (fs *FadeSetting) minMaxChan(ch int) (int, int) {
	switch ch {
	case 0:
		return int(fs.Min.R), int(fs.Max.R)
	case 1:
		return int(fs.Min.G), int(fs.Max.G)
	default:
		return int(fs.Min.B), int(fs.Max.B)
	}
}

// fadeAdvanceAtExtreme consumes one half-cycle at an extreme and either
// completes the fade (or its crossfade hand-off) or carries on per mode.
func (e *Engine) fadeAdvanceAtExtreme(s *seg) {
	f := &s.fade
	if util.CountDown(&f.cyclesLeft) {
		if f.handoff != nil {
			e.completeHandoff(s)
			return
		}
		if f.conf.SyncGroup != 0 {
			f.done = FadeSyncDone
		} else {
			f.done = FadeDone
		}
		return
	}
	switch f.conf.Mode {
	case ModeBounce:
		f.dir = -f.dir
	case ModeLoop, ModeLoopEnd:
		// snap to the opposite extreme, direction unchanged
		for ch := 0; ch < 3; ch++ {
			_, other := f.chanExtremes(ch)
			f.col[ch] = other
		}
	}
}

// SetModeChange starts a crossfade from the segment's current colour into
// the given fade setting. The crossfade is a one-shot fade to the setting's
// Max (or Min, with switchAtMax false); once it lands, the full setting is
// applied as a fresh fade starting from the landed extreme. Do not follow
// up with SetFade for the same setting, the hand-off does that itself.
func (e *Engine) SetModeChange(id int, fs *FadeSetting, switchAtMax bool) error {
	if fs == nil {
		return fmt.Errorf("set mode change: %w", ErrNilSetting)
	}
	return e.broadcast(id, "set mode change", func(s *seg) error {
		cur := colour.RGB{R: uint8(s.fade.col[0]), G: uint8(s.fade.col[1]), B: uint8(s.fade.col[2])}
		oneShot := *fs
		oneShot.Cycles = 1
		if switchAtMax {
			oneShot.Min = cur
			oneShot.StartDir = 1
		} else {
			oneShot.Max = cur
			oneShot.StartDir = -1
		}
		if err := e.setFade(s, &oneShot); err != nil {
			return err
		}
		s.fade.handoff = &fadeHandoff{pending: *fs, landAtMax: switchAtMax}
		return nil
	})
}

// completeHandoff restores the pending setting after a crossfade's one-shot
// half-cycle has landed. The segment sits exactly on the pending setting's
// extreme, so the fresh fade starts there and moves away from it.
func (e *Engine) completeHandoff(s *seg) {
	f := &s.fade
	pending := f.handoff.pending
	landAtMax := f.handoff.landAtMax
	if landAtMax {
		pending.StartDir = -1
	} else {
		pending.StartDir = 1
	}
	e.setFade(s, &pending)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
