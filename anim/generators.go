package anim

import (
	"fmt"
	"time"

	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/segment"
)

// NewSequence as a slot argument makes the builders allocate a fresh
// sequence instead of overwriting an existing one.
const NewSequence = -1

// RainbowWheel walks a segment through a hue palette two entries per link:
// the engine's mode-change mechanism crossfades down onto one hue, then a
// single loop-end half-cycle fades up to the next, so every transition is
// soft. It is driven from the same task context as the sequencer.
type RainbowWheel struct {
	eng            *segment.Engine
	seg            int
	palette        []colour.RGB
	idx            int
	halfCyclesLeft int
	infinite       bool
	fadeTime       time.Duration
	global         uint8
	running        bool
}

// NewRainbowWheel prepares a wheel over palette for one segment. cycles is
// the number of full palette revolutions (0 = forever); fadeTime is the
// duration of each hue-to-hue link. Start must be called to set the wheel
// in motion.
func NewRainbowWheel(eng *segment.Engine, seg int, palette []colour.RGB, cycles int, fadeTime time.Duration, global uint8) (*RainbowWheel, error) {
	if !eng.Exists(seg) {
		return nil, fmt.Errorf("rainbow wheel: segment %d: %w", seg, segment.ErrNoSuchSegment)
	}
	if len(palette) < 2 {
		return nil, fmt.Errorf("rainbow wheel: palette of %d: %w", len(palette), segment.ErrBadRange)
	}
	return &RainbowWheel{
		eng:            eng,
		seg:            seg,
		palette:        palette,
		halfCyclesLeft: len(palette) * cycles,
		infinite:       cycles == 0,
		fadeTime:       fadeTime,
		global:         global,
	}, nil
}

// Start issues the first link, crossfading from whatever the segment
// currently shows into the first palette entry.
func (w *RainbowWheel) Start() error {
	w.idx = 0
	w.running = true
	return w.link()
}

// Stop halts the wheel; the segment keeps its current colour.
func (w *RainbowWheel) Stop() {
	w.running = false
}

// Done reports whether the wheel has played out its configured cycles.
func (w *RainbowWheel) Done() bool {
	return !w.running
}

// Tick advances the wheel by at most one link. Call it from the animation
// task; it is a no-op while the current link's crossfade is still flying.
func (w *RainbowWheel) Tick() {
	if !w.running {
		return
	}
	if w.eng.CrossfadeActive(w.seg) || !w.eng.FadeDone(w.seg) {
		return
	}
	// every link burns two half cycles: the crossfade down onto its first
	// hue and the fade up to its second
	if !w.infinite {
		w.halfCyclesLeft -= 2
		if w.halfCyclesLeft <= 0 {
			w.running = false
			return
		}
	}
	w.idx = (w.idx + 2) % len(w.palette)
	_ = w.link()
}

// link fades the segment across the two palette entries at the current
// index: the mode change crossfades down onto the first, the pending
// single-cycle fade then rises to the second and reports done there.
func (w *RainbowWheel) link() error {
	fs := segment.FadeSetting{
		Mode:     segment.ModeLoopEnd,
		Min:      w.palette[w.idx],
		Max:      w.palette[(w.idx+1)%len(w.palette)],
		FadeTime: w.fadeTime,
		Cycles:   1,
		StartDir: 1,
		Global:   w.global,
	}
	return w.eng.SetModeChange(w.seg, &fs, false)
}

// BuildFadeSequence turns an arbitrary colour list into a sequence: one
// point per colour, each a single-cycle crossfade-capable fade to the next
// colour in the list (wrapping to the first), with a uniform wait after
// every transition. slot selects an existing sequence to overwrite, or
// NewSequence. Returns the sequence id.
func BuildFadeSequence(sq *Sequencer, slot, target int, targetGroup bool, cols []colour.RGB, fadeTime, wait time.Duration, cycles int, global uint8) (int, error) {
	if len(cols) < 2 {
		return -1, fmt.Errorf("fade sequence: %d colours: %w", len(cols), segment.ErrBadRange)
	}
	if len(cols) > MaxPoints {
		return -1, fmt.Errorf("fade sequence: %d colours: %w", len(cols), segment.ErrCapacity)
	}
	points := make([]Point, 0, len(cols))
	for i := range cols {
		fs := &segment.FadeSetting{
			Mode:     segment.ModeLoopEnd,
			Min:      cols[i],
			Max:      cols[(i+1)%len(cols)],
			FadeTime: fadeTime,
			Cycles:   1,
			StartDir: 1,
			Global:   global,
		}
		points = append(points, Point{
			Fade:       fs,
			WaitAfter:  wait,
			FadeToNext: true,
		})
	}
	return initOrOverwrite(sq, slot, target, targetGroup, cycles, points)
}

// BeatParams configures BuildBeatSequence.
type BeatParams struct {
	Target      int
	TargetGroup bool
	// Baseline and Boost are the resting and peak colours of each beat.
	Baseline colour.RGB
	Boost    colour.RGB
	// AttackFraction is the share of each beat spent rising to Boost;
	// the rest is the decay back to Baseline. Zero means one quarter.
	AttackFraction float64
	Global         uint8
	// Pulse, when set, is a movement template fired on every decay; its
	// speed is rederived per beat so the pulse crosses Span pixels in the
	// decay duration.
	Pulse *segment.PulseSetting
	Span  int
	// Cycles is the number of list traversals (0 = forever).
	Cycles int
}

// BuildBeatSequence turns a list of inter-beat durations into a sequence
// of attack/release point pairs: a fast fade up to the boost colour, then
// a slower decay back to baseline filling the rest of the beat. With a
// pulse template, each decay also launches a single-cycle pulse whose
// movement speed makes it finish together with the decay. slot selects an
// existing sequence to overwrite, or NewSequence.
func BuildBeatSequence(sq *Sequencer, slot int, beats []time.Duration, p BeatParams) (int, error) {
	if len(beats) == 0 {
		return -1, fmt.Errorf("beat sequence: no beats: %w", segment.ErrBadRange)
	}
	if 2*len(beats) > MaxPoints {
		return -1, fmt.Errorf("beat sequence: %d beats: %w", len(beats), segment.ErrCapacity)
	}
	frac := p.AttackFraction
	if frac <= 0 || frac >= 1 {
		frac = 0.25
	}
	points := make([]Point, 0, 2*len(beats))
	for _, beat := range beats {
		attack := time.Duration(float64(beat) * frac)
		release := beat - attack
		points = append(points, Point{
			Fade: &segment.FadeSetting{
				Mode:     segment.ModeLoopEnd,
				Min:      p.Baseline,
				Max:      p.Boost,
				FadeTime: attack,
				Cycles:   1,
				StartDir: 1,
				Global:   p.Global,
			},
			KeepPulse: true,
		})
		rel := Point{
			Fade: &segment.FadeSetting{
				Mode:     segment.ModeLoopEnd,
				Min:      p.Baseline,
				Max:      p.Boost,
				FadeTime: release,
				Cycles:   1,
				StartDir: -1,
				Global:   p.Global,
			},
			KeepPulse: true,
		}
		if p.Pulse != nil {
			ps := *p.Pulse
			ps.Cycles = 1
			ps.PixelTime = beatPixelTime(release, ps.PixelsPerIteration, p.Span, sq.eng.UpdatePeriod())
			rel.Pulse = &ps
			rel.KeepPulse = false
		}
		points = append(points, rel)
	}
	return initOrOverwrite(sq, slot, p.Target, p.TargetGroup, p.Cycles, points)
}

// AverageBeat reduces an interval list to its mean, for callers that want
// a steady beat sequence from noisy onset measurements.
func AverageBeat(beats []time.Duration) time.Duration {
	if len(beats) == 0 {
		return 0
	}
	var sum time.Duration
	for _, b := range beats {
		sum += b
	}
	return sum / time.Duration(len(beats))
}

// beatPixelTime spreads a travel of span pixels over the decay duration.
// The window pulse counts PixelTime in engine update periods, so the decay
// is divided over span/pixelsPerIteration moves of one period each.
func beatPixelTime(release time.Duration, pixelsPerIteration, span int, period time.Duration) int {
	if span <= 0 {
		span = 1
	}
	if pixelsPerIteration <= 0 {
		pixelsPerIteration = 1
	}
	periodMs := int(period.Milliseconds())
	if periodMs < 1 {
		periodMs = 1
	}
	pt := int(release.Milliseconds()) * pixelsPerIteration / (span * periodMs)
	if pt < 1 {
		pt = 1
	}
	return pt
}

func initOrOverwrite(sq *Sequencer, slot, target int, targetGroup bool, cycles int, points []Point) (int, error) {
	if slot == NewSequence {
		return sq.Init(target, targetGroup, cycles, points)
	}
	if err := sq.InitAt(slot, target, targetGroup, cycles, points); err != nil {
		return -1, err
	}
	return slot, nil
}
