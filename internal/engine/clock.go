package engine

import "sync/atomic"

// Clock hands out commit sequence numbers. The first commit gets seq 1.
// A store opened over existing data moves the clock up to the last seq
// found in the commit log before accepting writes.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock that has issued no seq yet.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock whose last issued seq is start.
func NewClockAt(start int64) *Clock {
	c := NewClock()
	c.last.Store(start)
	return c
}

// Next issues the next seq.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Current is the last issued seq, or 0.
func (c *Clock) Current() int64 {
	return c.last.Load()
}

func (c *Clock) advanceTo(seq int64) {
	for cur := c.last.Load(); cur < seq; cur = c.last.Load() {
		if c.last.CompareAndSwap(cur, seq) {
			return
		}
	}
}
