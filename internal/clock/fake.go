package clock

import "time"

// FakeClock reports a pinned instant that only moves when a test calls
// Advance. Quota windows and issued_at ordering depend on this.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock to t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock by d. Negative durations move it backwards.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
