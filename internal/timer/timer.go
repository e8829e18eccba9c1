package timer

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"chronometer/internal/log"
	"chronometer/internal/metrics"
)

// Timer is a stopwatch. Its zero value is not usable; create one with New. A Timer is safe for
// concurrent use.
type Timer struct {
	clock  clock.Clock
	hook   metrics.TimerHook
	logger log.Logger

	mutex   sync.Mutex
	state   State
	started time.Time
	stopped time.Time
	// The last lap is always the tail of laps; it is never stored separately.
	laps []Lap
}

// Opts formalizes configuration options for a timer.
type Opts struct {
	// Clock is the time source for all timestamps. It defaults to the real-time clock, whose
	// timestamps carry a monotonic reading so that lap durations are immune to wall-clock
	// adjustments. A mock clock can be used for testing.
	Clock clock.Clock
	// Hook receives lifecycle metrics. Defaults to a noop hook.
	Hook metrics.TimerHook
	// Logger receives debug traces of every transition. Defaults to a noop logger.
	Logger log.Logger
}

// New creates an idle timer.
func New(opts Opts) *Timer {
	t := &Timer{
		clock:  opts.Clock,
		hook:   opts.Hook,
		logger: opts.Logger,
	}

	if t.clock == nil {
		t.clock = clock.New()
	}

	if t.hook == nil {
		t.hook = metrics.NewNoopTimerHook()
	}

	if t.logger == nil {
		t.logger = log.NewNoopLogger()
	}

	return t
}

// Start starts an idle timer and records the initial, zero-duration lap. It returns the start
// time. Starting a timer that is running or stopped fails with RequiresReset.
func (t *Timer) Start() (time.Time, error) {
	t.mutex.Lock()

	if t.state != Idle {
		t.mutex.Unlock()
		return time.Time{}, t.fail("start", RequiresReset)
	}

	started := t.start()
	t.mutex.Unlock()

	t.logger.Debug("timer: started: time=%s", FormatTimestamp(started))
	t.hook.EmitStart()

	return started, nil
}

// Restart resets the timer, discarding any recorded laps, and starts it again. It returns the new
// start time.
func (t *Timer) Restart() time.Time {
	t.mutex.Lock()
	t.reset()
	started := t.start()
	t.mutex.Unlock()

	t.logger.Debug("timer: restarted: time=%s", FormatTimestamp(started))
	t.hook.EmitReset()
	t.hook.EmitStart()

	return started
}

// Stop stops a running timer and records the final lap. It returns the stop time. Stopping an
// idle timer fails with NotStarted; stopping a timer a second time fails with RequiresReset and
// leaves the original stop time in place.
func (t *Timer) Stop() (time.Time, error) {
	t.mutex.Lock()

	switch t.state {
	case Idle:
		t.mutex.Unlock()
		return time.Time{}, t.fail("stop", NotStarted)
	case Stopped:
		t.mutex.Unlock()
		return time.Time{}, t.fail("stop", RequiresReset)
	}

	t.stopped = t.clock.Now()
	lap := t.appendLap(t.stopped, "")
	t.state = Stopped

	elapsed := t.stopped.Sub(t.started)
	count := len(t.laps)
	stopped := t.stopped
	t.mutex.Unlock()

	t.logger.Debug(
		"timer: stopped: time=%s lap_duration=%v elapsed=%v laps=%d",
		FormatTimestamp(stopped),
		lap.Duration,
		elapsed,
		count,
	)
	t.hook.EmitStop(elapsed, count)

	return stopped, nil
}

// AddLap records a lap on a running timer, labelled with an optional description. It returns the
// new lap, whose duration is measured from the previous lap. Adding a lap to an idle timer fails
// with NotStarted; adding one to a stopped timer fails with RequiresReset.
func (t *Timer) AddLap(description string) (Lap, error) {
	_, lap, err := t.AddLapWithIndex(description)
	return lap, err
}

// AddLapWithIndex behaves like AddLap, and also returns the position of the new lap in Laps. The
// index is read under the same lock that records the lap, so it stays correct when other
// goroutines record laps concurrently.
func (t *Timer) AddLapWithIndex(description string) (int, Lap, error) {
	t.mutex.Lock()

	switch t.state {
	case Idle:
		t.mutex.Unlock()
		return 0, Lap{}, t.fail("add lap", NotStarted)
	case Stopped:
		t.mutex.Unlock()
		return 0, Lap{}, t.fail("add lap", RequiresReset)
	}

	lap := t.appendLap(t.clock.Now(), description)
	idx := len(t.laps) - 1
	t.mutex.Unlock()

	t.logger.Debug(
		"timer: lap recorded: index=%d duration=%v description=%q",
		idx,
		lap.Duration,
		lap.Description,
	)
	t.hook.EmitLap(lap.Duration)

	return idx, lap, nil
}

// Started returns the start time.
func (t *Timer) Started() (time.Time, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.state == Idle {
		return time.Time{}, t.fail("read start time", NotStarted)
	}

	return t.started, nil
}

// Stopped returns the stop time. It fails with NotStarted on an idle timer and with NotStopped on
// a running one.
func (t *Timer) Stopped() (time.Time, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	switch t.state {
	case Idle:
		return time.Time{}, t.fail("read stop time", NotStarted)
	case Running:
		return time.Time{}, t.fail("read stop time", NotStopped)
	}

	return t.stopped, nil
}

// Elapsed returns the time between start and stop for a stopped timer, or between start and now
// for a running one.
func (t *Timer) Elapsed() (time.Duration, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	switch t.state {
	case Idle:
		return 0, t.fail("read elapsed time", NotStarted)
	case Stopped:
		return t.stopped.Sub(t.started), nil
	}

	return t.clock.Now().Sub(t.started), nil
}

// LastLap returns the most recently recorded lap.
func (t *Timer) LastLap() (Lap, error) {
	_, lap, err := t.LastLapWithIndex()
	return lap, err
}

// LastLapWithIndex returns the most recently recorded lap and its position in Laps.
func (t *Timer) LastLapWithIndex() (int, Lap, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if len(t.laps) == 0 {
		return 0, Lap{}, t.fail("read last lap", NotStarted)
	}

	idx := len(t.laps) - 1

	return idx, t.laps[idx], nil
}

// Laps returns every recorded lap in the order they were recorded. The returned slice is a copy.
func (t *Timer) Laps() ([]Lap, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if len(t.laps) == 0 {
		return nil, t.fail("read laps", NotStarted)
	}

	laps := make([]Lap, len(t.laps))
	copy(laps, t.laps)

	return laps, nil
}

// Reset returns the timer to idle from any state, discarding all recorded laps.
func (t *Timer) Reset() {
	t.mutex.Lock()
	t.reset()
	t.mutex.Unlock()

	t.logger.Debug("timer: reset")
	t.hook.EmitReset()
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.state
}

// start transitions an idle timer to running. The caller must hold the mutex.
func (t *Timer) start() time.Time {
	t.started = t.clock.Now()
	t.laps = []Lap{NewLap(t.started, 0, "")}
	t.state = Running

	return t.started
}

// reset clears all state. The lap slice is replaced rather than truncated so that the backing
// array of any slice previously handed out is never written again. The caller must hold the mutex.
func (t *Timer) reset() {
	t.state = Idle
	t.started = time.Time{}
	t.stopped = time.Time{}
	t.laps = nil
}

// appendLap records a lap measured from the current last lap. The caller must hold the mutex and
// guarantee that at least the initial lap exists.
func (t *Timer) appendLap(now time.Time, description string) Lap {
	lap := NewLap(now, now.Sub(t.laps[len(t.laps)-1].Time), description)
	t.laps = append(t.laps, lap)

	return lap
}

// fail builds the error for a rejected operation and reports it. It is safe to call with or
// without the mutex held, since neither the logger nor the hook touch timer state.
func (t *Timer) fail(op string, code Code) error {
	err := &Error{Op: op, Code: code}

	t.logger.Debug("timer: rejected operation: op=%s code=%s", op, code)
	t.hook.EmitError(code.String())

	return err
}
