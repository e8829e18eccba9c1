// Package timer implements a stopwatch: a timer that can be started, lapped, stopped, queried for
// elapsed time, and reset back to idle.
//
// A Timer moves through three states. It is Idle until started, Running until stopped, and Stopped
// until reset. Every started timer holds an ordered list of laps: an initial zero-duration lap
// recorded at start, one lap per AddLap call, and a final lap recorded at stop. Operations that
// are not valid in the current state fail with an *Error and leave the timer untouched.
package timer
