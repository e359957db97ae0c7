package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicEventLatestValueWins(t *testing.T) {
	ae := NewAtomicEvent[int]()
	ae.Send(1)
	ae.Send(2)
	ae.Send(3)

	assert.True(t, ae.HasPending())
	<-ae.Channel()
	assert.Equal(t, 3, ae.Value())
	assert.False(t, ae.HasPending())
}

func TestAtomicEventSendNeverBlocks(t *testing.T) {
	ae := NewAtomicEvent[string]()
	for i := 0; i < 100; i++ {
		ae.Send("x")
	}
	assert.Equal(t, "x", ae.Value())
}
