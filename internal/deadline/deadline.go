// Package deadline provides a millisecond timeout helper for polling loops
// that have no retry budget of their own.
package deadline

import "time"

// TimeoutTimer reports when a fixed interval has passed since it was created.
type TimeoutTimer struct {
	start    time.Time
	interval time.Duration
	now      func() time.Time
}

// New starts a timer that expires after ms milliseconds.
func New(ms uint32) *TimeoutTimer {
	return NewWithClock(time.Duration(ms)*time.Millisecond, time.Now)
}

// NewWithClock starts a timer against a custom clock.
func NewWithClock(interval time.Duration, now func() time.Time) *TimeoutTimer {
	return &TimeoutTimer{
		start:    now(),
		interval: interval,
		now:      now,
	}
}

// HasTimedOut reports whether strictly more than the interval has elapsed.
func (t *TimeoutTimer) HasTimedOut() bool {
	return t.now().Sub(t.start) > t.interval
}

// Remaining returns the time left before expiry, or zero once expired.
func (t *TimeoutTimer) Remaining() time.Duration {
	left := t.interval - t.now().Sub(t.start)
	if left < 0 {
		return 0
	}
	return left
}
