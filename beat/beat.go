// Package beat turns an audio input into beat timing: a portaudio listener
// measures signal energy, an onset detector finds beats in it, and a
// sliding window of inter-beat intervals feeds the beat-synchronized
// animation builders.
package beat

import (
	"math"
	"sync"
	"time"

	"github.com/gammazero/deque"

	"lichtwerk.net/lichtwerk/util"
)

// Config holds the audio capture and detection parameters.
type Config struct {
	// Device is a substring matched against input device names.
	Device          string        `yaml:"Device"`
	SampleRate      int           `yaml:"SampleRate"`
	FramesPerBuffer int           `yaml:"FramesPerBuffer"`
	// ThresholdRatio: an onset fires when the buffer energy exceeds the
	// running average by this factor.
	ThresholdRatio float64 `yaml:"ThresholdRatio"`
	// MinInterval debounces onsets closer together than this.
	MinInterval time.Duration `yaml:"MinInterval"`
	// WindowSize is the number of inter-beat intervals kept.
	WindowSize int `yaml:"WindowSize"`
}

// Detector finds onsets in a stream of RMS energy values and keeps a
// sliding window of the intervals between them. Feed is called from the
// audio goroutine; the query methods are safe from any goroutine.
type Detector struct {
	ratio       float64
	minInterval time.Duration
	windowSize  int

	mu        sync.Mutex
	avg       float64
	primed    bool
	lastOnset time.Time
	intervals *deque.Deque[time.Duration]

	// Onset fires on every detected beat.
	Onset *util.AtomicEvent[time.Time]
}

// NewDetector creates a detector from cfg, falling back to usable defaults
// for zero-valued parameters.
func NewDetector(cfg Config) *Detector {
	if cfg.ThresholdRatio <= 1 {
		cfg.ThresholdRatio = 1.5
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 200 * time.Millisecond
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 8
	}
	d := &Detector{
		ratio:       cfg.ThresholdRatio,
		minInterval: cfg.MinInterval,
		windowSize:  cfg.WindowSize,
		intervals:   new(deque.Deque[time.Duration]),
		Onset:       util.NewAtomicEvent[time.Time](),
	}
	d.intervals.Grow(cfg.WindowSize)
	return d
}

// Feed hands one buffer's RMS energy to the detector and reports whether
// it counted as an onset.
func (d *Detector) Feed(rms float64, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	// the very first buffer seeds the ambient level; comparing against a
	// near-zero average would fire on any steady signal
	if !d.primed {
		d.avg = rms
		d.primed = true
		return false
	}
	avg := d.avg
	// slow exponential average tracks the ambient level
	d.avg = d.avg*0.9 + rms*0.1

	if rms < 0.001 || avg <= 0 || rms < avg*d.ratio {
		return false
	}
	if !d.lastOnset.IsZero() {
		gap := now.Sub(d.lastOnset)
		if gap < d.minInterval {
			return false
		}
		d.intervals.PushBack(gap)
		for d.intervals.Len() > d.windowSize {
			d.intervals.PopFront()
		}
	}
	d.lastOnset = now
	d.Onset.Send(now)
	return true
}

// Intervals returns a copy of the current inter-beat interval window,
// oldest first.
func (d *Detector) Intervals() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Duration, d.intervals.Len())
	for i := range out {
		out[i] = d.intervals.At(i)
	}
	return out
}

// Average returns the mean inter-beat interval, or 0 with no data yet.
func (d *Detector) Average() time.Duration {
	iv := d.Intervals()
	if len(iv) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range iv {
		sum += v
	}
	return sum / time.Duration(len(iv))
}

// RMS computes the root mean square of a buffer of audio samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquare float64
	for _, sample := range samples {
		sumSquare += float64(sample * sample)
	}
	return math.Sqrt(sumSquare / float64(len(samples)))
}
