// Package alert implements the deadline alert engine: a 1 Hz scanner
// over the outstanding signal set that drives tiered reminder
// notifications and the persistent full-screen lock for signals in
// their final minute.
package alert

import "time"

// Clock abstracts wall-clock sampling so tests can simulate deadlines
// and time jumps deterministically.
type Clock interface {
	Now() time.Time
}

// realClock samples the system clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return realClock{} }

// ManualClock is a test clock advanced by hand.
type ManualClock struct {
	T time.Time
}

// NewManualClock returns a ManualClock starting at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{T: t}
}

func (c *ManualClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Set jumps the clock to t. Backward jumps are allowed.
func (c *ManualClock) Set(t time.Time) { c.T = t }
