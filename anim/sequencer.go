// Package anim layers scripted animation programs on top of the segment
// engine: sequences of fade/pulse configuration points advanced on
// completion signals read back from the engine, plus procedural generators
// (rainbow wheel, colour-list crossfades, beat-synchronized pulses).
package anim

import (
	"errors"
	"fmt"
	"time"

	"lichtwerk.net/lichtwerk/segment"
	"lichtwerk.net/lichtwerk/util"
)

const (
	// MaxSequences is the size of the sequence table.
	MaxSequences = 10
	// MaxPoints is the point capacity of one sequence.
	MaxPoints = 32
	// AllSequences addresses every sequence in broadcast operations.
	AllSequences = 255
	// DefaultTaskPeriod is the sequencer's scheduling interval.
	DefaultTaskPeriod = 55 * time.Millisecond
)

// ErrNoSuchSequence is returned for operations on unknown sequence ids.
var ErrNoSuchSequence = errors.New("no such sequence")

// TriggerState is the external-trigger latch of a sequence.
type TriggerState int

const (
	// TriggerNotReady: the current point has not completed yet.
	TriggerNotReady TriggerState = iota
	// TriggerReady: the point has completed and waits for TriggerFire.
	TriggerReady
	// TriggerActivated: the trigger has fired, the sequence may proceed.
	TriggerActivated
)

// Point is one step of a sequence: a fade and/or pulse configuration for
// the target segment plus the rules for moving past it. A nil Fade or
// Pulse leaves that sub-state of the segment untouched by loading and
// counts as completed. KeepFade/KeepPulse carry the previous point's
// running fade/pulse over instead of reloading anything.
type Point struct {
	Fade  *segment.FadeSetting
	Pulse *segment.PulseSetting
	// WaitAfter delays the advance to the next point after completion.
	WaitAfter time.Duration
	// WaitForTrigger stalls the completed point until TriggerFire.
	WaitForTrigger bool
	// AdvanceOnTime ignores fade/pulse completion; the point lasts
	// WaitAfter from its first sequencer tick.
	AdvanceOnTime bool
	// FadeToNext crossfades from the segment's current colour into this
	// point's fade instead of switching hard; SwitchAtMax picks the
	// landing extreme. Pulse application is deferred until the crossfade
	// lands. The very first point of a sequence always crossfades in.
	FadeToNext  bool
	SwitchAtMax bool
	KeepFade    bool
	KeepPulse   bool
}

type sequence struct {
	points       []Point
	current      int
	cycles       int
	cyclesLeft   int
	target       int
	targetGroup  bool
	active       bool
	loaded       bool
	crossfading  bool
	trigger      TriggerState
	waitDeadline int64 // ms clock value; -1 = unset
	used         bool
}

// Sequencer owns a fixed table of sequences and advances them against the
// engine. Like the engine it is strictly single-goroutine.
type Sequencer struct {
	eng          *segment.Engine
	clock        util.Clock
	periodMillis int64
	nextCall     int64
	seqs         []sequence
}

// NewSequencer creates a sequencer driving eng. taskPeriod falls back to
// DefaultTaskPeriod when zero.
func NewSequencer(eng *segment.Engine, clock util.Clock, taskPeriod time.Duration) *Sequencer {
	if taskPeriod <= 0 {
		taskPeriod = DefaultTaskPeriod
	}
	return &Sequencer{
		eng:          eng,
		clock:        clock,
		periodMillis: taskPeriod.Milliseconds(),
		seqs:         make([]sequence, 0, MaxSequences),
	}
}

// Init creates a new sequence in the next free slot and activates it.
// target is a segment id, or a sync-group id with targetGroup set; cycles
// is the number of full point-list traversals (0 = forever). Returns the
// sequence id.
func (sq *Sequencer) Init(target int, targetGroup bool, cycles int, points []Point) (int, error) {
	if len(sq.seqs) >= MaxSequences {
		return -1, fmt.Errorf("sequence init: %w", segment.ErrCapacity)
	}
	sq.seqs = append(sq.seqs, sequence{used: true})
	id := len(sq.seqs) - 1
	if err := sq.InitAt(id, target, targetGroup, cycles, points); err != nil {
		sq.seqs = sq.seqs[:id]
		return -1, err
	}
	return id, nil
}

// InitAt overwrites an existing sequence slot in place.
func (sq *Sequencer) InitAt(id, target int, targetGroup bool, cycles int, points []Point) error {
	if !sq.Exists(id) {
		return fmt.Errorf("sequence init %d: %w", id, ErrNoSuchSequence)
	}
	if len(points) > MaxPoints {
		return fmt.Errorf("sequence init %d: %d points: %w", id, len(points), segment.ErrCapacity)
	}
	if !targetGroup && !sq.eng.Exists(target) {
		return fmt.Errorf("sequence init %d: target %d: %w", id, target, segment.ErrNoSuchSegment)
	}
	s := &sq.seqs[id]
	*s = sequence{
		points:       append(make([]Point, 0, MaxPoints), points...),
		cycles:       cycles,
		cyclesLeft:   cycles,
		target:       target,
		targetGroup:  targetGroup,
		active:       true,
		waitDeadline: -1,
		used:         true,
	}
	return nil
}

// Exists reports whether a sequence id is valid.
func (sq *Sequencer) Exists(id int) bool {
	return id >= 0 && id < len(sq.seqs) && sq.seqs[id].used
}

// AppendPoint adds a point at the end of the sequence's program.
func (sq *Sequencer) AppendPoint(id int, pt Point) error {
	if !sq.Exists(id) {
		return fmt.Errorf("append point %d: %w", id, ErrNoSuchSequence)
	}
	s := &sq.seqs[id]
	if len(s.points) >= MaxPoints {
		return fmt.Errorf("append point %d: %w", id, segment.ErrCapacity)
	}
	s.points = append(s.points, pt)
	return nil
}

// RemovePoint drops the last point of the sequence's program. The current
// point index is clamped back into range.
func (sq *Sequencer) RemovePoint(id int) error {
	if !sq.Exists(id) {
		return fmt.Errorf("remove point %d: %w", id, ErrNoSuchSequence)
	}
	s := &sq.seqs[id]
	if len(s.points) == 0 {
		return fmt.Errorf("remove point %d: %w", id, segment.ErrBadRange)
	}
	s.points = s.points[:len(s.points)-1]
	if s.current >= len(s.points) {
		s.current = 0
	}
	return nil
}

// SetActive starts or stops a sequence. Deactivation is immediate; the
// segment keeps whatever fade/pulse the last loaded point set up.
func (sq *Sequencer) SetActive(id int, active bool) error {
	if id == AllSequences {
		for i := range sq.seqs {
			if sq.seqs[i].used {
				sq.seqs[i].active = active
			}
		}
		return nil
	}
	if !sq.Exists(id) {
		return fmt.Errorf("set active %d: %w", id, ErrNoSuchSequence)
	}
	sq.seqs[id].active = active
	return nil
}

// Active reports whether the sequence is running.
func (sq *Sequencer) Active(id int) bool {
	return sq.Exists(id) && sq.seqs[id].active
}

// Restart rewinds a sequence to its first point and reactivates it.
func (sq *Sequencer) Restart(id int) error {
	if !sq.Exists(id) {
		return fmt.Errorf("restart %d: %w", id, ErrNoSuchSequence)
	}
	s := &sq.seqs[id]
	s.current = 0
	s.cyclesLeft = s.cycles
	s.active = true
	s.loaded = false
	s.crossfading = false
	s.trigger = TriggerNotReady
	s.waitDeadline = -1
	return nil
}

// TriggerReady reports whether the sequence's current point has completed
// and is stalled waiting for TriggerFire.
func (sq *Sequencer) TriggerReady(id int) bool {
	return sq.Exists(id) && sq.seqs[id].trigger == TriggerReady
}

// TriggerFire releases a stalled point. Firing before the point is ready
// has no effect.
func (sq *Sequencer) TriggerFire(id int) error {
	if !sq.Exists(id) {
		return fmt.Errorf("trigger fire %d: %w", id, ErrNoSuchSequence)
	}
	s := &sq.seqs[id]
	if s.trigger == TriggerReady {
		s.trigger = TriggerActivated
	}
	return nil
}

// RunTask is the sequencer's periodic entry point, gated on its own task
// period. Each tick every active sequence is advanced by at most one state
// machine step.
func (sq *Sequencer) RunTask() {
	now := sq.clock.Millis()
	if now < sq.nextCall {
		return
	}
	sq.nextCall = now + sq.periodMillis

	for i := range sq.seqs {
		s := &sq.seqs[i]
		if !s.used || !s.active || len(s.points) == 0 {
			continue
		}
		sq.stepSequence(s, now)
	}
}

func (sq *Sequencer) stepSequence(s *sequence, now int64) {
	if !s.loaded {
		sq.loadPoint(s, true)
		s.loaded = true
		return
	}
	if s.crossfading {
		if !sq.crossfadeActive(s) {
			s.crossfading = false
			sq.applyPulse(s, &s.points[s.current])
		}
		return
	}

	pt := &s.points[s.current]
	if !sq.pointComplete(s, pt) {
		return
	}
	if pt.WaitForTrigger {
		if s.trigger == TriggerNotReady {
			s.trigger = TriggerReady
		}
		if s.trigger != TriggerActivated {
			return
		}
	}
	// only the first tick after completion arms the deadline
	if s.waitDeadline < 0 {
		s.waitDeadline = now + pt.WaitAfter.Milliseconds()
	}
	if now < s.waitDeadline {
		return
	}
	s.waitDeadline = -1
	s.current++
	if s.current >= len(s.points) {
		s.current = 0
		if util.CountDown(&s.cyclesLeft) {
			s.active = false
			return
		}
	}
	sq.loadPoint(s, false)
}

// pointComplete: a point counts as complete when its fade is done-or-unused
// and its pulse is done-or-unused, or when it advances on elapsed time
// alone. For group targets pulse completion is not tracked and reads as
// satisfied (a known limitation of the original design, kept on purpose).
func (sq *Sequencer) pointComplete(s *sequence, pt *Point) bool {
	if pt.AdvanceOnTime {
		return true
	}
	fadeDone := pt.Fade == nil || pt.KeepFade
	if !fadeDone {
		if s.targetGroup {
			fadeDone = sq.eng.GroupFadeDone(s.target)
		} else {
			fadeDone = sq.eng.FadeDone(s.target)
		}
	}
	pulseDone := pt.Pulse == nil || pt.KeepPulse
	if !pulseDone {
		if s.targetGroup {
			pulseDone = sq.eng.GroupPulseDone(s.target)
		} else {
			pulseDone = sq.eng.PulseDone(s.target)
		}
	}
	return fadeDone && pulseDone
}

// loadPoint pushes a point's configuration into the engine. The trigger
// latch always resets. A crossfading point (and the very first point of a
// sequence) goes through the engine's mode change and defers its pulse
// until the crossfade lands.
func (sq *Sequencer) loadPoint(s *sequence, first bool) {
	s.trigger = TriggerNotReady
	pt := &s.points[s.current]
	if pt.Fade != nil && !pt.KeepFade {
		if pt.FadeToNext || first {
			sq.forTarget(s, func(seg int) {
				sq.eng.SetModeChange(seg, pt.Fade, pt.SwitchAtMax)
			})
			s.crossfading = true
		} else {
			sq.forTarget(s, func(seg int) {
				sq.eng.SetFade(seg, pt.Fade)
			})
		}
	}
	if !s.crossfading {
		sq.applyPulse(s, pt)
	}
}

// applyPulse applies a point's pulse, or deactivates the running one when
// the point carries none (unless the point keeps the previous pulse).
func (sq *Sequencer) applyPulse(s *sequence, pt *Point) {
	if pt.KeepPulse {
		return
	}
	sq.forTarget(s, func(seg int) {
		if pt.Pulse != nil {
			sq.eng.SetPulse(seg, pt.Pulse)
		} else {
			sq.eng.SetPulseActive(seg, false)
		}
	})
}

func (sq *Sequencer) crossfadeActive(s *sequence) bool {
	if s.targetGroup {
		for _, seg := range sq.eng.GroupMembers(s.target) {
			if sq.eng.CrossfadeActive(seg) {
				return true
			}
		}
		return false
	}
	return sq.eng.CrossfadeActive(s.target)
}

// forTarget applies fn to the target segment, or to every member of the
// target sync group.
func (sq *Sequencer) forTarget(s *sequence, fn func(seg int)) {
	if s.targetGroup {
		for _, seg := range sq.eng.GroupMembers(s.target) {
			fn(seg)
		}
		return
	}
	fn(s.target)
}
