package timer

import (
	"fmt"
	"time"
)

// Lap is an immutable snapshot of a point in time, the duration since the previous lap, and an
// optional label.
type Lap struct {
	// Time is the moment the lap was recorded.
	Time time.Time
	// Duration is the time elapsed since the previous lap, or zero for the initial lap.
	Duration time.Duration
	// Description is a free-text label; empty when none was given.
	Description string
}

// NewLap creates a Lap. No validation is performed.
func NewLap(t time.Time, duration time.Duration, description string) Lap {
	return Lap{
		Time:        t,
		Duration:    duration,
		Description: description,
	}
}

// Seconds returns the lap duration as floating-point seconds.
func (l Lap) Seconds() float64 {
	return l.Duration.Seconds()
}

// FormatTimestamp renders a timestamp as Unix seconds with microsecond precision, e.g.
// "1594080000.123456". Times before the epoch carry a leading minus sign, e.g. "-1.500000".
func FormatTimestamp(t time.Time) string {
	sec, nsec := t.Unix(), int64(t.Nanosecond())

	// Unix seconds round toward negative infinity while the nanosecond part is always positive,
	// so pre-epoch times are folded into a sign and a magnitude.
	sign := ""
	if sec < 0 {
		sign = "-"
		if nsec > 0 {
			sec, nsec = -(sec + 1), int64(time.Second)-nsec
		} else {
			sec = -sec
		}
	}

	return fmt.Sprintf("%s%d.%06d", sign, sec, nsec/int64(time.Microsecond))
}
