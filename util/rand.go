package util

import (
	"math/rand"
	"time"
)

// Rand is the random source used by the glitter modes and the random
// colour. InRange(n) returns a value in [0, n], inclusive on both ends.
type Rand interface {
	InRange(n int) int
}

// SystemRand is the default Rand backed by math/rand.
type SystemRand struct {
	r *rand.Rand
}

func NewSystemRand() *SystemRand {
	return &SystemRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *SystemRand) InRange(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.Intn(n + 1)
}

// SeqRand replays a fixed sequence of values, for tests.
type SeqRand struct {
	Values []int
	idx    int
}

func (s *SeqRand) InRange(n int) int {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.idx%len(s.Values)]
	s.idx++
	if v > n {
		v = n
	}
	return v
}
