package segment

import (
	"errors"
	"time"

	"lichtwerk.net/lichtwerk/colour"
)

// Mode selects the behaviour of a fade or pulse when it reaches the end of
// a cycle.
type Mode int

const (
	// ModeLoop starts over from the first (or last) LED, resp. snaps the
	// fade back to the opposite extreme.
	ModeLoop Mode = iota
	// ModeLoopEnd behaves like ModeLoop, but a pulse runs completely off
	// the segment before reappearing.
	ModeLoopEnd
	// ModeBounce reverses direction at either end.
	ModeBounce
	// ModeGlitterLoop clears all glitter points once the ring is full and
	// starts over.
	ModeGlitterLoop
	// ModeGlitterLoopEnd stops once the ring is full, keeping all points lit.
	ModeGlitterLoopEnd
	// ModeGlitterLoopPersist keeps adding new points, replacing the oldest.
	ModeGlitterLoopPersist
	// ModeGlitterBounce alternates between adding and removing points.
	ModeGlitterBounce

	nofModes
)

// IsGlitter reports whether the mode is one of the glitter variants, which
// reinterpret several PulseSetting fields.
func (m Mode) IsGlitter() bool {
	return m >= ModeGlitterLoop && m <= ModeGlitterBounce
}

// FadeSetting configures the whole-segment colour fade. Min and Max are the
// two colour extremes; a channel with Min > Max simply runs in the opposite
// direction. Cycles counts half-cycles (one run from one extreme to the
// other); 0 means run forever. SyncGroup links fades on different segments:
// members reaching an extreme wait until the whole group has arrived and
// are then released together. Group 0 means no synchronization.
type FadeSetting struct {
	Mode      Mode
	Min       colour.RGB
	Max       colour.RGB
	FadeTime  time.Duration
	Cycles    int
	StartDir  int   // +1 starts at Min moving up, -1 starts at Max moving down
	Global    uint8 // global brightness 0..31; 0 = engine default
	SyncGroup int
}

// PulseSetting configures the moving pulse (or glitter) of a segment.
//
// For the moving-window modes a pulse is LedsFadeBefore ramp pixels, then
// LedsMaxPower pixels at full colour, then LedsFadeAfter ramp pixels. The
// window moves PixelsPerIteration pixels every PixelTime update periods.
// StartLed is 1-indexed within the segment.
//
// The glitter modes reinterpret some fields: LedsMaxPower is the number of
// persistent glitter points, PixelsPerIteration the size of the subset faded
// in together, and PixelTime the total fade time in milliseconds for one
// full ring of points.
//
// ColourSeq, when non-empty, replaces Max with a palette repeated
// ColourSeqLoops times across the pulse window.
type PulseSetting struct {
	Mode               Mode
	Max                colour.RGB
	LedsMaxPower       int
	LedsFadeBefore     int
	LedsFadeAfter      int
	StartLed           int
	StartDir           int
	PixelsPerIteration int
	PixelTime          int
	Cycles             int
	Global             uint8 // 0 = engine default
	ColourSeq          []colour.RGB
	ColourSeqLoops     int
}

// FadeDoneState is the completion state of a segment's fade.
type FadeDoneState int

const (
	// FadeNotDone: the fade still has cycles to run.
	FadeNotDone FadeDoneState = iota
	// FadeDone: all cycles consumed, colour frozen at the final extreme.
	FadeDone
	// FadeWaitingSync: at an extreme, stalled until the sync group releases.
	FadeWaitingSync
	// FadeSyncDone: like FadeDone, for a group-synchronized fade.
	FadeSyncDone
)

// Completed is true for both the plain and the group-synchronized final
// state.
func (s FadeDoneState) Completed() bool {
	return s == FadeDone || s == FadeSyncDone
}

var (
	ErrNoSuchSegment = errors.New("no such segment")
	ErrCapacity      = errors.New("segment capacity exhausted")
	ErrBadRange      = errors.New("invalid pixel range")
	ErrNilSetting    = errors.New("setting is nil")
)
