// Package clock provides a monotonic sample clock.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/dudk/tone/signal"
)

// Clock hands out sample indices at a fixed sample rate. Indices are never
// reused or skipped, even if Advance is called from multiple goroutines.
type Clock struct {
	sampleRate int
	next       atomic.Uint64
}

// New returns a clock for provided sample rate starting at index zero.
func New(sampleRate int) *Clock {
	return &Clock{sampleRate: sampleRate}
}

// Advance reserves the next n sample indices and returns the first one.
func (c *Clock) Advance(n int) uint64 {
	return c.next.Add(uint64(n)) - uint64(n)
}

// Now returns the index of the next sample to be reserved.
func (c *Clock) Now() uint64 {
	return c.next.Load()
}

// Rate returns the sample rate of the clock.
func (c *Clock) Rate() int {
	return c.sampleRate
}

// Seconds returns time elapsed in seconds for reserved samples.
func (c *Clock) Seconds() float64 {
	return float64(c.next.Load()) / float64(c.sampleRate)
}

// Elapsed returns time elapsed for reserved samples.
func (c *Clock) Elapsed() time.Duration {
	return signal.DurationOf(c.sampleRate, int64(c.next.Load()))
}

// Reset moves the clock back to index zero.
func (c *Clock) Reset() {
	c.next.Store(0)
}
