package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoopValue(t *testing.T) {
	assert.Equal(t, 5, LoopValue(4, 1, 0, 9))
	assert.Equal(t, 0, LoopValue(9, 1, 0, 9))
	assert.Equal(t, 9, LoopValue(0, -1, 0, 9))
	assert.Equal(t, 3, LoopValue(8, 5, 0, 9))
	// offset range
	assert.Equal(t, 10, LoopValue(15, 1, 10, 15))
}

func TestBounceValue(t *testing.T) {
	v, dir := BounceValue(4, 1, 0, 9)
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, dir)

	v, dir = BounceValue(9, 1, 0, 9)
	assert.Equal(t, 8, v)
	assert.Equal(t, -1, dir)

	v, dir = BounceValue(0, -1, 0, 9)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, dir)

	// overshoot by more than one reflects correctly
	v, dir = BounceValue(8, 4, 0, 9)
	assert.Equal(t, 6, v)
	assert.Equal(t, -1, dir)
}

func TestIncTowards(t *testing.T) {
	assert.Equal(t, 7, IncTowards(5, 1, 2, 0, 10))
	assert.Equal(t, 10, IncTowards(9, 1, 5, 0, 10))
	assert.Equal(t, 0, IncTowards(3, -1, 5, 0, 10))
}

func TestScale(t *testing.T) {
	assert.Equal(t, 127, Scale(255, 255, 127))
	assert.Equal(t, 0, Scale(255, 0, 127))
	assert.Equal(t, 255, Scale(255, 255, 255))
}

func TestCountDown(t *testing.T) {
	// zero means infinite
	c := 0
	for i := 0; i < 5; i++ {
		assert.False(t, CountDown(&c))
	}
	assert.Equal(t, 0, c)

	// counts down to 1 and then stays true
	c = 3
	assert.False(t, CountDown(&c))
	assert.False(t, CountDown(&c))
	assert.True(t, CountDown(&c))
	assert.True(t, CountDown(&c))
	assert.Equal(t, 1, c)
}
