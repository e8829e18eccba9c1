//go:generate go run golang.org/x/tools/cmd/stringer -type=State -linecomment=true

package timer

// State is a lifecycle state of a Timer.
type State int

const (
	// Idle timers have never been started, or have been reset.
	Idle State = iota // idle
	// Running timers have been started and accept laps.
	Running // running
	// Stopped timers have a final stop time and must be reset before reuse.
	Stopped // stopped
)
