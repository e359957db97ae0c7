package util

import "time"

// Clock is the time base for all tick state machines. Millis drives the
// scheduling gates, Micros is only used for timing diagnostics.
type Clock interface {
	Millis() int64
	Micros() int64
}

// SystemClock counts monotonically from the moment it was created.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Millis() int64 {
	return time.Since(c.start).Milliseconds()
}

func (c *SystemClock) Micros() int64 {
	return time.Since(c.start).Microseconds()
}

// StepClock is a manually advanced clock for tests.
type StepClock struct {
	now int64
}

func (c *StepClock) Millis() int64 {
	return c.now
}

func (c *StepClock) Micros() int64 {
	return c.now * 1000
}

// Advance moves the clock forward by ms milliseconds.
func (c *StepClock) Advance(ms int64) {
	c.now += ms
}
