// Package segment is the core animation engine. A segment is a contiguous
// pixel range on one strip with its own fade and pulse state machines; the
// engine owns a fixed-capacity table of segments and recomputes their
// colours tick by tick, writing the results into the strip bank.
package segment

import (
	"fmt"
	"time"

	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/strip"
	"lichtwerk.net/lichtwerk/util"
)

const (
	// MaxSegments is the size of the segment table.
	MaxSegments = 30
	// AllSegments addresses every segment not excluded from broadcasts.
	AllSegments = 255
	// DefaultUpdatePeriod is the time between two full strip updates.
	DefaultUpdatePeriod = 20 * time.Millisecond
	// DefaultCalcCycles is the number of calculation sub-cycles per period.
	DefaultCalcCycles = 4
)

type fadeHandoff struct {
	pending   FadeSetting
	landAtMax bool
}

type fadeState struct {
	col        [3]int // current instantaneous channel values
	rate       [3]int // per-step increment, derived
	dir        int
	countdown  int // updates until the next recompute (period multiplier throttle)
	periodMult int
	steps      int // updates per half-cycle, derived
	cyclesLeft int // remaining half-cycles; 0 = forever
	active     bool
	done       FadeDoneState
	conf       FadeSetting
	// handoff is only non-nil while a mode-change crossfade is in flight;
	// it holds the setting to restore once the one-shot half-cycle lands.
	handoff *fadeHandoff
}

type pulseState struct {
	dir        int
	current    int // window anchor (absolute pixel), or ring cursor in glitter modes
	countdown  int
	moveTicks  int // update periods between move events (converted for glitter)
	cyclesLeft int
	active     bool
	done       bool
	cycleDone  bool // latched when a cycle completes, cleared on reconfigure/restart
	conf       PulseSetting
	// glitter state: ring owns the LED indices currently part of the
	// glitter (1-based within the segment, 0 = unset slot); gcol is the
	// shared in-flight colour of the fading subset.
	ring []int
	gcol [3]int
}

type seg struct {
	strip       int
	start       int
	stop        int
	invert      bool
	noBroadcast bool
	fade        fadeState
	pulse       pulseState
}

// State is a copy of a segment's externally visible state.
type State struct {
	Strip       int
	Start       int
	Stop        int
	Invert      bool
	NoBroadcast bool
	FadeColour  colour.RGB
	FadeDone    FadeDoneState
	FadeActive  bool
	PulseDone   bool
	PulseActive bool
	PulsePos    int
}

// Engine drives all segments. It is not safe for concurrent use; both
// RunIteration and all mutating calls must come from the same goroutine.
type Engine struct {
	sink  *strip.Bank
	clock util.Clock
	rnd   util.Rand

	periodMillis int64
	calcCycles   int

	segs   []seg
	groups map[int]*syncGroup

	nextCall    int64
	calcCycle   int
	currentSeg  int
	lastCalcDur int64 // microseconds spent on the last segment, diagnostics
}

// New creates an engine writing into sink. updatePeriod and calcCycles
// follow the defaults when zero.
func New(sink *strip.Bank, clock util.Clock, rnd util.Rand, updatePeriod time.Duration, calcCycles int) *Engine {
	if updatePeriod <= 0 {
		updatePeriod = DefaultUpdatePeriod
	}
	if calcCycles <= 0 {
		calcCycles = DefaultCalcCycles
	}
	return &Engine{
		sink:         sink,
		clock:        clock,
		rnd:          rnd,
		periodMillis: updatePeriod.Milliseconds(),
		calcCycles:   calcCycles,
		segs:         make([]seg, 0, MaxSegments),
		groups:       make(map[int]*syncGroup),
	}
}

// UpdatePeriod returns the configured time between full strip updates.
func (e *Engine) UpdatePeriod() time.Duration {
	return time.Duration(e.periodMillis) * time.Millisecond
}

// CalcCycles returns the number of sub-cycles one update period is split
// into.
func (e *Engine) CalcCycles() int {
	return e.calcCycles
}

// AddSegment registers a new segment covering [start, stop] on the given
// strip. With invert set, pulse movement and per-LED addressing run from
// stop towards start. Segments with noBroadcast set are skipped by
// operations on AllSegments. Either setting may be nil, leaving that
// sub-state inactive. Returns the segment id.
func (e *Engine) AddSegment(stripIdx, start, stop int, invert, noBroadcast bool, fade *FadeSetting, pulse *PulseSetting) (int, error) {
	if len(e.segs) >= MaxSegments {
		return -1, fmt.Errorf("add segment: %w", ErrCapacity)
	}
	if start > stop {
		return -1, fmt.Errorf("add segment [%d,%d]: %w", start, stop, ErrBadRange)
	}
	if !e.sink.IsValidPixel(stripIdx, start) || !e.sink.IsValidPixel(stripIdx, stop) {
		return -1, fmt.Errorf("add segment %d:[%d,%d]: %w", stripIdx, start, stop, ErrBadRange)
	}
	e.segs = append(e.segs, seg{
		strip:       stripIdx,
		start:       start,
		stop:        stop,
		invert:      invert,
		noBroadcast: noBroadcast,
	})
	id := len(e.segs) - 1
	if fade != nil {
		if err := e.SetFade(id, fade); err != nil {
			return id, err
		}
	}
	if pulse != nil {
		if err := e.SetPulse(id, pulse); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Exists reports whether a segment id is valid.
func (e *Engine) Exists(id int) bool {
	return id >= 0 && id < len(e.segs)
}

// NumSegments returns the number of registered segments.
func (e *Engine) NumSegments() int {
	return len(e.segs)
}

// broadcast applies op to every segment not excluded from broadcasts when
// id is AllSegments, or to the single segment otherwise.
func (e *Engine) broadcast(id int, op string, fn func(*seg) error) error {
	if id == AllSegments {
		for i := range e.segs {
			if e.segs[i].noBroadcast {
				continue
			}
			if err := fn(&e.segs[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if !e.Exists(id) {
		return fmt.Errorf("%s: segment %d: %w", op, id, ErrNoSuchSegment)
	}
	return fn(&e.segs[id])
}

// State returns a copy of the segment's state.
func (e *Engine) State(id int) (State, error) {
	if !e.Exists(id) {
		return State{}, fmt.Errorf("state: segment %d: %w", id, ErrNoSuchSegment)
	}
	s := &e.segs[id]
	return State{
		Strip:       s.strip,
		Start:       s.start,
		Stop:        s.stop,
		Invert:      s.invert,
		NoBroadcast: s.noBroadcast,
		FadeColour:  colour.RGB{R: uint8(s.fade.col[0]), G: uint8(s.fade.col[1]), B: uint8(s.fade.col[2])},
		FadeDone:    s.fade.done,
		FadeActive:  s.fade.active,
		PulseDone:   s.pulse.done,
		PulseActive: s.pulse.active,
		PulsePos:    s.pulse.current,
	}, nil
}

// SetFadeMode swaps the mode of the running fade, effective immediately.
func (e *Engine) SetFadeMode(id int, m Mode) error {
	return e.broadcast(id, "set fade mode", func(s *seg) error {
		s.fade.conf.Mode = m
		return nil
	})
}

// SetPulseMode swaps the mode of the running pulse, effective immediately.
// Switching between glitter and window families requires a full SetPulse.
func (e *Engine) SetPulseMode(id int, m Mode) error {
	return e.broadcast(id, "set pulse mode", func(s *seg) error {
		s.pulse.conf.Mode = m
		return nil
	})
}

// SetFadeActive pauses or resumes the fade. The last computed colour stays
// on the strip.
func (e *Engine) SetFadeActive(id int, active bool) error {
	return e.broadcast(id, "set fade active", func(s *seg) error {
		s.fade.active = active
		return nil
	})
}

// FadeActive reports whether the segment's fade is running.
func (e *Engine) FadeActive(id int) bool {
	if !e.Exists(id) {
		return false
	}
	return e.segs[id].fade.active
}

// SetPulseActive pauses or resumes the pulse.
func (e *Engine) SetPulseActive(id int, active bool) error {
	return e.broadcast(id, "set pulse active", func(s *seg) error {
		s.pulse.active = active
		return nil
	})
}

// PulseActive reports whether the segment's pulse is running.
func (e *Engine) PulseActive(id int) bool {
	if !e.Exists(id) {
		return false
	}
	return e.segs[id].pulse.active
}

// FadeDoneState returns the fade completion state.
func (e *Engine) FadeDoneState(id int) FadeDoneState {
	if !e.Exists(id) {
		return FadeNotDone
	}
	return e.segs[id].fade.done
}

// FadeDone reports whether the fade has consumed all its cycles.
func (e *Engine) FadeDone(id int) bool {
	return e.FadeDoneState(id).Completed()
}

// PulseDone reports whether the pulse has consumed all its cycles.
func (e *Engine) PulseDone(id int) bool {
	if !e.Exists(id) {
		return false
	}
	return e.segs[id].pulse.done
}

// PulseCycleDone reports (and clears) the pulse's cycle-completed latch.
func (e *Engine) PulseCycleDone(id int) bool {
	if !e.Exists(id) {
		return false
	}
	v := e.segs[id].pulse.cycleDone
	e.segs[id].pulse.cycleDone = false
	return v
}

// CrossfadeActive reports whether a mode-change crossfade is still in
// flight on the segment.
func (e *Engine) CrossfadeActive(id int) bool {
	if !e.Exists(id) {
		return false
	}
	return e.segs[id].fade.handoff != nil
}

// ClearFade reconfigures the fade with both extremes black, blanking the
// segment on its next tick. Mode and timing of the current setting are
// kept, so a later SetModeChange still crossfades at the same pace.
func (e *Engine) ClearFade(id int) error {
	return e.broadcast(id, "clear fade", func(s *seg) error {
		fs := s.fade.conf
		fs.Min = colour.RGB{}
		fs.Max = colour.RGB{}
		return e.setFade(s, &fs)
	})
}

// ClearPulse reconfigures the pulse with a black max colour.
func (e *Engine) ClearPulse(id int) error {
	return e.broadcast(id, "clear pulse", func(s *seg) error {
		ps := s.pulse.conf
		ps.Max = colour.RGB{}
		return e.setPulse(s, &ps)
	})
}

// SetPulseSpeed adjusts the pulse timing on the fly. A zero keeps the
// corresponding existing value.
func (e *Engine) SetPulseSpeed(id int, pixelTime, pixelsPerIteration int) error {
	return e.broadcast(id, "set pulse speed", func(s *seg) error {
		p := &s.pulse
		if pixelTime > 0 {
			p.conf.PixelTime = pixelTime
		}
		if pixelsPerIteration > 0 {
			p.conf.PixelsPerIteration = pixelsPerIteration
		}
		if p.conf.Mode.IsGlitter() {
			p.moveTicks = e.glitterMoveTicks(p)
			// a larger subset needs more ring slots; fresh ones read as unset
			if need := p.conf.LedsMaxPower + p.conf.PixelsPerIteration; len(p.ring) < need {
				p.ring = append(p.ring, make([]int, need-len(p.ring))...)
			}
		} else if pixelTime > 0 {
			p.moveTicks = pixelTime
		}
		return nil
	})
}

// SetGlobal sets the global brightness used for fade resp. pulse writes.
// 0 selects the engine-wide default, resolved at write time.
func (e *Engine) SetGlobal(id int, fadeGlobal, pulseGlobal uint8) error {
	return e.broadcast(id, "set global", func(s *seg) error {
		s.fade.conf.Global = fadeGlobal
		s.pulse.conf.Global = pulseGlobal
		return nil
	})
}

// Restart rewinds the fade and/or pulse to its start state. All settings
// are retained.
func (e *Engine) Restart(id int, restartFade, restartPulse bool) error {
	return e.broadcast(id, "restart", func(s *seg) error {
		if restartFade {
			f := &s.fade
			if f.conf.StartDir == -1 {
				f.col = rgbToChannels(f.conf.Max)
				f.dir = -1
			} else {
				f.col = rgbToChannels(f.conf.Min)
				f.dir = 1
			}
			f.done = FadeNotDone
			f.cyclesLeft = f.conf.Cycles
			f.countdown = f.periodMult
		}
		if restartPulse {
			p := &s.pulse
			p.done = false
			p.cycleDone = false
			p.cyclesLeft = p.conf.Cycles
			if p.conf.Mode.IsGlitter() {
				p.current = 0
				p.dir = startDir(p.conf.StartDir)
				for i := range p.ring {
					p.ring[i] = 0
				}
			} else if p.conf.StartDir == -1 {
				p.current = s.stop
				p.dir = -1
			} else {
				p.current = s.start
				p.dir = 1
			}
		}
		return nil
	})
}

// SetLed writes one LED of the segment directly, using the default global
// brightness. led is 1-indexed within the segment; any running fade or
// pulse overwrites the value on its next tick.
func (e *Engine) SetLed(id, led int, c colour.RGB) error {
	return e.SetLedGlobal(id, led, c, 0)
}

// SetLedGlobal is SetLed with an explicit global brightness (0 = default).
func (e *Engine) SetLedGlobal(id, led int, c colour.RGB, global uint8) error {
	if !e.Exists(id) {
		return fmt.Errorf("set led: segment %d: %w", id, ErrNoSuchSegment)
	}
	s := &e.segs[id]
	if led <= 0 || led > s.stop-s.start+1 {
		return fmt.Errorf("set led %d on segment %d: %w", led, id, ErrBadRange)
	}
	e.writeLed(s, led, c.R, c.G, c.B, global)
	return nil
}

// writeLed writes a 1-indexed segment LED, honouring the invert flag.
// led 0 marks an unset glitter slot and is ignored.
func (e *Engine) writeLed(s *seg, led int, r, g, b, global uint8) {
	if led <= 0 || led > s.stop-s.start+1 {
		return
	}
	pos := s.start + led - 1
	if s.invert {
		pos = s.stop - led + 1
	}
	e.sink.SetPixelGlobal(s.strip, pos, r, g, b, segGlobal(global), true)
}

// writeAbs writes an absolute strip position, honouring the invert flag.
func (e *Engine) writeAbs(s *seg, pos int, r, g, b, global uint8) {
	if pos < s.start || pos > s.stop {
		return
	}
	if s.invert {
		pos = s.stop - (pos - s.start)
	}
	e.sink.SetPixelGlobal(s.strip, pos, r, g, b, segGlobal(global), true)
}

// segGlobal maps a segment-level global setting (0 = use default) to the
// sink's convention (above MaxGlobal = use default).
func segGlobal(g uint8) uint8 {
	if g == 0 {
		return strip.UseDefault
	}
	return g
}

func startDir(d int) int {
	if d == -1 {
		return -1
	}
	return 1
}

func rgbToChannels(c colour.RGB) [3]int {
	return [3]int{int(c.R), int(c.G), int(c.B)}
}

// RunIteration is the engine's periodic entry point. It keeps its own time
// gate: called more often than the sub-cycle period it does nothing. While
// a strip transmission is in flight no state is recomputed. Each sub-cycle
// computes a rotating fraction of the segments; after the last sub-cycle of
// a period the strips are flushed.
func (e *Engine) RunIteration() {
	now := e.clock.Millis()
	if now < e.nextCall || e.sink.IsBusy(strip.AllStrips) {
		return
	}
	e.nextCall = now + e.periodMillis/int64(e.calcCycles)

	// Always take at least one segment per sub-cycle so small tables make
	// progress even when the division truncates to zero.
	stopSeg := e.currentSeg + len(e.segs)/e.calcCycles + 1
	for e.currentSeg < len(e.segs) && e.currentSeg < stopSeg {
		began := e.clock.Micros()
		s := &e.segs[e.currentSeg]
		if s.fade.active {
			e.fadeTick(e.currentSeg, s)
		}
		if s.pulse.active {
			e.pulseTick(s)
		}
		e.lastCalcDur = e.clock.Micros() - began
		e.currentSeg++
	}

	e.calcCycle++
	if e.calcCycle >= e.calcCycles {
		e.sink.Update(strip.AllStrips)
		e.calcCycle = 0
		e.currentSeg = 0
	}
}
