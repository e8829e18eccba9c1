package timer

import (
	"time"

	"github.com/benbjohnson/clock"
)

// WallClock wraps a clock so that the timestamps it reports carry no monotonic reading. Durations
// between such timestamps follow wall-clock adjustments and may therefore be negative.
func WallClock(c clock.Clock) clock.Clock {
	return wallClock{c}
}

type wallClock struct {
	clock.Clock
}

// Now strips the monotonic clock reading.
func (c wallClock) Now() time.Time {
	return c.Clock.Now().Round(0)
}

// Since measures against the wall clock.
func (c wallClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
