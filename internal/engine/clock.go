package engine

import "sync/atomic"

// Clock is a monotonic logical clock for trace events.
//
// Events are stamped with a strictly increasing seq from this clock so a
// run's trace orders the same way on every read, independent of wall time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
