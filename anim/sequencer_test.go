package anim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/segment"
	"lichtwerk.net/lichtwerk/strip"
	"lichtwerk.net/lichtwerk/util"
)

// newTestRig wires an engine (one calculation cycle per 20ms period) and a
// sequencer on the same step clock, with the task period matching the
// engine period so one tick() advances both by exactly one step.
func newTestRig(t *testing.T, sizes ...int) (*segment.Engine, *Sequencer, *util.StepClock) {
	t.Helper()
	bank := strip.NewBank(nil, sizes...)
	clock := &util.StepClock{}
	eng := segment.New(bank, clock, &util.SeqRand{}, 20*time.Millisecond, 1)
	return eng, NewSequencer(eng, clock, 20*time.Millisecond), clock
}

func tick(eng *segment.Engine, sq *Sequencer, clock *util.StepClock, n int) {
	for i := 0; i < n; i++ {
		eng.RunIteration()
		sq.RunTask()
		clock.Advance(20)
	}
}

func TestSequencerInitValidation(t *testing.T) {
	eng, sq, _ := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	// a failed init must not leak its slot
	_, err = sq.Init(7, false, 1, []Point{{}})
	assert.ErrorIs(t, err, segment.ErrNoSuchSegment)
	assert.False(t, sq.Exists(0))

	id, err := sq.Init(0, false, 1, []Point{{}})
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.True(t, sq.Exists(0))

	_, err = sq.Init(0, false, 1, make([]Point, MaxPoints+1))
	assert.ErrorIs(t, err, segment.ErrCapacity)

	err = sq.InitAt(5, 0, false, 1, []Point{{}})
	assert.ErrorIs(t, err, ErrNoSuchSequence)
}

func TestSequencerAppendRemovePoint(t *testing.T) {
	eng, sq, _ := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)
	id, err := sq.Init(0, false, 1, []Point{{}})
	require.NoError(t, err)

	require.NoError(t, sq.AppendPoint(id, Point{AdvanceOnTime: true}))
	require.NoError(t, sq.RemovePoint(id))
	require.NoError(t, sq.RemovePoint(id))
	assert.ErrorIs(t, sq.RemovePoint(id), segment.ErrBadRange)
	assert.ErrorIs(t, sq.AppendPoint(3, Point{}), ErrNoSuchSequence)
}

func TestSequencerRunsProgramAndDeactivates(t *testing.T) {
	eng, sq, clock := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	points := []Point{
		{Fade: &segment.FadeSetting{Mode: segment.ModeLoopEnd, Max: colour.RGB{R: 100},
			FadeTime: 100 * time.Millisecond, Cycles: 1}, SwitchAtMax: true},
		{Fade: &segment.FadeSetting{Mode: segment.ModeLoopEnd, Max: colour.RGB{G: 100},
			FadeTime: 100 * time.Millisecond, Cycles: 1, StartDir: 1}},
	}
	id, err := sq.Init(0, false, 1, points)
	require.NoError(t, err)

	tick(eng, sq, clock, 10)
	assert.True(t, sq.Active(id), "the program is still mid-flight")

	tick(eng, sq, clock, 30)
	assert.False(t, sq.Active(id), "one full traversal exhausts a single cycle")
	st, err := eng.State(0)
	require.NoError(t, err)
	assert.Equal(t, colour.RGB{G: 100}, st.FadeColour, "the last point's fade stays on the segment")
	assert.True(t, eng.FadeDone(0))
}

func TestSequencerInfiniteCyclesKeepRunning(t *testing.T) {
	eng, sq, clock := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	id, err := sq.Init(0, false, 0, []Point{
		{Fade: &segment.FadeSetting{Max: colour.RGB{R: 50}, Cycles: 1}, SwitchAtMax: true},
		{Fade: &segment.FadeSetting{Max: colour.RGB{B: 50}, Cycles: 1}},
	})
	require.NoError(t, err)

	tick(eng, sq, clock, 100)
	assert.True(t, sq.Active(id))
}

func TestSequencerWaitAfterDelaysAdvance(t *testing.T) {
	eng, sq, clock := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	id, err := sq.Init(0, false, 1, []Point{
		{Fade: &segment.FadeSetting{Max: colour.RGB{R: 100}, Cycles: 1},
			SwitchAtMax: true, WaitAfter: 500 * time.Millisecond},
	})
	require.NoError(t, err)

	// the zero-duration fade completes almost immediately, the post-wait
	// holds the sequence active until the deadline passes
	tick(eng, sq, clock, 27)
	assert.True(t, sq.Active(id))

	tick(eng, sq, clock, 1)
	assert.False(t, sq.Active(id))
}

func TestSequencerTriggerGate(t *testing.T) {
	eng, sq, clock := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	id, err := sq.Init(0, false, 1, []Point{
		{Fade: &segment.FadeSetting{Max: colour.RGB{R: 100}, Cycles: 1},
			SwitchAtMax: true, WaitForTrigger: true},
	})
	require.NoError(t, err)

	// firing before the point has completed is a no-op
	require.NoError(t, sq.TriggerFire(id))
	assert.False(t, sq.TriggerReady(id))

	tick(eng, sq, clock, 10)
	assert.True(t, sq.TriggerReady(id), "the completed point latches ready")
	assert.True(t, sq.Active(id))

	tick(eng, sq, clock, 20)
	assert.True(t, sq.Active(id), "a ready point stalls indefinitely")

	require.NoError(t, sq.TriggerFire(id))
	tick(eng, sq, clock, 1)
	assert.False(t, sq.Active(id))
}

func TestSequencerAdvanceOnTime(t *testing.T) {
	eng, sq, clock := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	id, err := sq.Init(0, false, 1, []Point{
		{AdvanceOnTime: true, WaitAfter: 100 * time.Millisecond},
	})
	require.NoError(t, err)

	tick(eng, sq, clock, 6)
	assert.True(t, sq.Active(id))
	tick(eng, sq, clock, 1)
	assert.False(t, sq.Active(id))
}

func TestSequencerCrossfadeDefersPulse(t *testing.T) {
	eng, sq, clock := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	_, err = sq.Init(0, false, 1, []Point{
		{
			Fade: &segment.FadeSetting{Max: colour.RGB{R: 100},
				FadeTime: 100 * time.Millisecond, Cycles: 1},
			Pulse: &segment.PulseSetting{Mode: segment.ModeLoop, Max: colour.RGB{B: 200},
				LedsMaxPower: 1, PixelsPerIteration: 1, PixelTime: 1},
			SwitchAtMax: true,
		},
	})
	require.NoError(t, err)

	tick(eng, sq, clock, 5)
	assert.True(t, eng.CrossfadeActive(0))
	assert.False(t, eng.PulseActive(0), "the pulse waits for the crossfade to land")

	tick(eng, sq, clock, 1)
	assert.False(t, eng.CrossfadeActive(0))
	assert.True(t, eng.PulseActive(0))
}

func TestSequencerKeepFadeNeverTouchesEngine(t *testing.T) {
	eng, sq, clock := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	fs := &segment.FadeSetting{Max: colour.RGB{R: 100}, Cycles: 1}
	id, err := sq.Init(0, false, 3, []Point{
		{Fade: fs, KeepFade: true},
		{Fade: fs, KeepFade: true},
	})
	require.NoError(t, err)

	tick(eng, sq, clock, 10)
	assert.False(t, sq.Active(id))
	assert.False(t, eng.FadeActive(0), "kept points reload nothing")

	require.NoError(t, sq.Restart(id))
	assert.True(t, sq.Active(id))
}

func TestSequencerGroupTarget(t *testing.T) {
	eng, sq, clock := newTestRig(t, 20)
	groupFade := &segment.FadeSetting{Max: colour.RGB{R: 10}, FadeTime: time.Second, SyncGroup: 1}
	_, err := eng.AddSegment(0, 0, 9, false, false, groupFade, nil)
	require.NoError(t, err)
	_, err = eng.AddSegment(0, 10, 19, false, false, groupFade, nil)
	require.NoError(t, err)

	id, err := sq.Init(1, true, 1, []Point{
		{Fade: &segment.FadeSetting{Max: colour.RGB{R: 100},
			FadeTime: 100 * time.Millisecond, Cycles: 1, SyncGroup: 1}, SwitchAtMax: true},
	})
	require.NoError(t, err)

	tick(eng, sq, clock, 1)
	assert.True(t, eng.CrossfadeActive(0), "the point is pushed to every group member")
	assert.True(t, eng.CrossfadeActive(1))

	tick(eng, sq, clock, 20)
	assert.False(t, sq.Active(id))
	assert.Equal(t, segment.FadeSyncDone, eng.FadeDoneState(0))
	assert.Equal(t, segment.FadeSyncDone, eng.FadeDoneState(1))
}

func TestSequencerSetActiveBroadcast(t *testing.T) {
	eng, sq, _ := newTestRig(t, 10)
	_, err := eng.AddSegment(0, 0, 9, false, false, nil, nil)
	require.NoError(t, err)

	a, err := sq.Init(0, false, 0, []Point{{AdvanceOnTime: true}})
	require.NoError(t, err)
	b, err := sq.Init(0, false, 0, []Point{{AdvanceOnTime: true}})
	require.NoError(t, err)

	require.NoError(t, sq.SetActive(AllSequences, false))
	assert.False(t, sq.Active(a))
	assert.False(t, sq.Active(b))

	require.NoError(t, sq.SetActive(a, true))
	assert.True(t, sq.Active(a))
	assert.False(t, sq.Active(b))
}
