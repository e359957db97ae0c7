package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichtwerk.net/lichtwerk/colour"
	"lichtwerk.net/lichtwerk/strip"
	"lichtwerk.net/lichtwerk/util"
)

func TestDeriveFadeRate(t *testing.T) {
	e, _, _ := newTestEngine(t, 10)
	var rate [3]int

	// 255 steps in 1s at 20ms periods: 50 updates of 5
	mult, steps := e.deriveFadeRate(&FadeSetting{Max: colour.RGB{R: 255}, FadeTime: time.Second}, rate[:])
	assert.Equal(t, 1, mult)
	assert.Equal(t, 50, steps)
	assert.Equal(t, [3]int{5, 0, 0}, rate)

	// a low delta needs a stretched period to move at least one step
	mult, steps = e.deriveFadeRate(&FadeSetting{Max: colour.RGB{R: 7}, FadeTime: time.Second}, rate[:])
	assert.Equal(t, 7, mult)
	assert.Equal(t, 7, steps)
	assert.Equal(t, 1, rate[0])

	// below one update interval the half-cycle collapses to a single jump
	mult, steps = e.deriveFadeRate(&FadeSetting{Max: colour.RGB{R: 200}, FadeTime: 5 * time.Millisecond}, rate[:])
	assert.Equal(t, 1, mult)
	assert.Equal(t, 1, steps)
	assert.Equal(t, 200, rate[0])
}

func TestFadeReachesExtremeOnSchedule(t *testing.T) {
	e, bank, clock := newTestEngine(t, 10)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Mode: ModeLoopEnd, Max: colour.RGB{R: 255}, FadeTime: time.Second, Cycles: 1}, nil)
	require.NoError(t, err)

	runPeriods(e, clock, 25)
	st, err := e.State(0)
	require.NoError(t, err)
	// halfway through a 1s fade: within one quantization step of 128
	assert.InDelta(t, 128, int(st.FadeColour.R), 5)
	assert.False(t, e.FadeDone(0))

	px, err := bank.GetPixel(0, 9)
	require.NoError(t, err)
	assert.Equal(t, st.FadeColour.R, px.R)

	runPeriods(e, clock, 25)
	assert.False(t, e.FadeDone(0))

	runPeriods(e, clock, 1)
	assert.True(t, e.FadeDone(0))
	assert.Equal(t, FadeDone, e.FadeDoneState(0))
	st, _ = e.State(0)
	assert.Equal(t, uint8(255), st.FadeColour.R)
}

func TestFadeWithCalcSubCycles(t *testing.T) {
	bank := strip.NewBank(nil, 10)
	clock := &util.StepClock{}
	e := New(bank, clock, &util.SeqRand{}, 20*time.Millisecond, 4)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Mode: ModeLoopEnd, Max: colour.RGB{R: 255}, FadeTime: time.Second, Cycles: 1}, nil)
	require.NoError(t, err)

	// 100 sub-cycle calls at 5ms = 25 full periods; the segment is still
	// computed once per period, not once per call
	for i := 0; i < 100; i++ {
		e.RunIteration()
		clock.Advance(5)
	}
	st, err := e.State(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(125), st.FadeColour.R)

	px, err := bank.GetPixel(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(125), px.R)
}

func TestFadeBounceCycles(t *testing.T) {
	e, _, clock := newTestEngine(t, 10)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Mode: ModeBounce, Max: colour.RGB{R: 250}, FadeTime: 100 * time.Millisecond, Cycles: 2}, nil)
	require.NoError(t, err)

	runPeriods(e, clock, 5)
	st, _ := e.State(0)
	assert.Equal(t, uint8(250), st.FadeColour.R)
	assert.False(t, e.FadeDone(0), "first half-cycle only turns around")

	runPeriods(e, clock, 4)
	assert.False(t, e.FadeDone(0))

	runPeriods(e, clock, 1)
	assert.True(t, e.FadeDone(0))
	st, _ = e.State(0)
	assert.Equal(t, colour.RGB{}, st.FadeColour, "bounce ends back at the start extreme")
}

func TestFadeLoopSnapsToOppositeExtreme(t *testing.T) {
	e, _, clock := newTestEngine(t, 10)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Mode: ModeLoop, Max: colour.RGB{R: 100}, FadeTime: 100 * time.Millisecond, Cycles: 3}, nil)
	require.NoError(t, err)

	runPeriods(e, clock, 5)
	st, _ := e.State(0)
	assert.Equal(t, uint8(0), st.FadeColour.R, "loop snaps back after reaching the extreme")
	assert.False(t, e.FadeDone(0))

	runPeriods(e, clock, 1)
	st, _ = e.State(0)
	assert.Equal(t, uint8(20), st.FadeColour.R)

	runPeriods(e, clock, 9)
	assert.True(t, e.FadeDone(0))
	st, _ = e.State(0)
	assert.Equal(t, uint8(100), st.FadeColour.R, "the final cycle freezes at the extreme")
}

func TestFadeChannelReversal(t *testing.T) {
	e, _, clock := newTestEngine(t, 10)
	// R runs 200 -> 0 while G runs 0 -> 200, in the same half-cycle
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Min: colour.RGB{R: 200}, Max: colour.RGB{G: 200}, FadeTime: 100 * time.Millisecond, Cycles: 1}, nil)
	require.NoError(t, err)

	runPeriods(e, clock, 2)
	st, _ := e.State(0)
	assert.Equal(t, colour.RGB{R: 120, G: 80}, st.FadeColour)

	runPeriods(e, clock, 3)
	assert.True(t, e.FadeDone(0))
	st, _ = e.State(0)
	assert.Equal(t, colour.RGB{G: 200}, st.FadeColour)
}

func TestFadeStartDirDown(t *testing.T) {
	e, _, clock := newTestEngine(t, 10)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Max: colour.RGB{B: 100}, FadeTime: 100 * time.Millisecond, Cycles: 1, StartDir: -1}, nil)
	require.NoError(t, err)

	st, _ := e.State(0)
	assert.Equal(t, colour.RGB{B: 100}, st.FadeColour, "StartDir -1 begins at Max")

	runPeriods(e, clock, 5)
	assert.True(t, e.FadeDone(0))
	st, _ = e.State(0)
	assert.Equal(t, colour.RGB{}, st.FadeColour)
}

func TestFadeZeroDurationJumps(t *testing.T) {
	e, _, clock := newTestEngine(t, 10)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Max: colour.RGB{R: 180, G: 90}, Cycles: 1}, nil)
	require.NoError(t, err)

	runPeriods(e, clock, 1)
	assert.True(t, e.FadeDone(0))
	st, _ := e.State(0)
	assert.Equal(t, colour.RGB{R: 180, G: 90}, st.FadeColour)
}

func TestFadeSyncGroupReleasesTogether(t *testing.T) {
	e, _, clock := newTestEngine(t, 20)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Mode: ModeLoopEnd, Max: colour.RGB{R: 255}, FadeTime: time.Second, Cycles: 1, SyncGroup: 1}, nil)
	require.NoError(t, err)
	_, err = e.AddSegment(0, 10, 19, false, false,
		&FadeSetting{Mode: ModeLoopEnd, Max: colour.RGB{R: 7}, FadeTime: time.Second, Cycles: 1, SyncGroup: 1}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{0, 1}, e.GroupMembers(1))

	// the low-delta segment runs on a stretched quantization (7 steps of
	// 1 every 7 periods) and arrives first
	runPeriods(e, clock, 49)
	assert.Equal(t, FadeWaitingSync, e.FadeDoneState(1))
	assert.False(t, e.FadeDone(0))
	assert.False(t, e.GroupFadeDone(1))

	runPeriods(e, clock, 2)
	assert.Equal(t, FadeWaitingSync, e.FadeDoneState(0))
	assert.Equal(t, FadeWaitingSync, e.FadeDoneState(1))

	// one more period releases the whole group in the same tick
	runPeriods(e, clock, 1)
	assert.Equal(t, FadeSyncDone, e.FadeDoneState(0))
	assert.Equal(t, FadeSyncDone, e.FadeDoneState(1))
	assert.True(t, e.GroupFadeDone(1))
}

func TestModeChangeCrossfade(t *testing.T) {
	e, _, clock := newTestEngine(t, 10)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Mode: ModeLoopEnd, Max: colour.RGB{R: 100}, FadeTime: 100 * time.Millisecond, Cycles: 1}, nil)
	require.NoError(t, err)

	runPeriods(e, clock, 5)
	require.True(t, e.FadeDone(0))

	next := &FadeSetting{Mode: ModeBounce, Max: colour.RGB{G: 200}, FadeTime: 100 * time.Millisecond, Cycles: 4}
	require.NoError(t, e.SetModeChange(0, next, true))
	assert.True(t, e.CrossfadeActive(0))

	// the one-shot blends from the current colour towards the new Max
	runPeriods(e, clock, 2)
	st, _ := e.State(0)
	assert.Equal(t, colour.RGB{R: 60, G: 80}, st.FadeColour)
	assert.True(t, e.CrossfadeActive(0))

	// landing hands off to the pending setting, starting away from Max
	runPeriods(e, clock, 3)
	assert.False(t, e.CrossfadeActive(0))
	assert.False(t, e.FadeDone(0))
	st, _ = e.State(0)
	assert.Equal(t, colour.RGB{G: 200}, st.FadeColour)

	runPeriods(e, clock, 5)
	st, _ = e.State(0)
	assert.Equal(t, colour.RGB{}, st.FadeColour, "pending bounce moves down from the landed extreme")
	assert.False(t, e.FadeDone(0))
}

func TestClearFadeBlanksSegment(t *testing.T) {
	e, bank, clock := newTestEngine(t, 10)
	_, err := e.AddSegment(0, 0, 9, false, false,
		&FadeSetting{Max: colour.RGB{R: 100}, FadeTime: 100 * time.Millisecond, Cycles: 1}, nil)
	require.NoError(t, err)

	runPeriods(e, clock, 5)
	require.True(t, e.FadeDone(0))

	require.NoError(t, e.ClearFade(0))
	runPeriods(e, clock, 1)
	st, _ := e.State(0)
	assert.Equal(t, colour.RGB{}, st.FadeColour)
	px, err := bank.GetPixel(0, 4)
	require.NoError(t, err)
	assert.Equal(t, strip.Pixel{Global: strip.MaxGlobal}, px)
}
