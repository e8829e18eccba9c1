package metrics

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// TimerHook is a metrics hook interface for reporting events that occur during a timer lifecycle.
type TimerHook interface {
	// EmitStart reports the event that the timer was started.
	EmitStart()

	// EmitLap reports a recorded lap and the duration since the previous lap.
	EmitLap(duration time.Duration)

	// EmitStop reports the event that the timer was stopped, along with the total elapsed time
	// and the number of laps recorded, including the initial and final laps.
	EmitStop(elapsed time.Duration, laps int)

	// EmitReset reports the event that the timer was reset to idle.
	EmitReset()

	// EmitError reports a rejected timer operation, described by its error code.
	EmitError(code string)
}

// AsyncStatsdTimerHook is an implementation of TimerHook that outputs metrics asynchronously to
// statsd.
type AsyncStatsdTimerHook struct {
	client *StatsdClient
	name   string
}

// NoopTimerHook implements the TimerHook interface but noops on all emissions.
type NoopTimerHook struct{}

// NewAsyncStatsdTimerHook creates a new hook with the specified timer name, statsd address, and
// statsd sample rate. The name is attached as a tag to every emitted metric.
func NewAsyncStatsdTimerHook(name string, addr string, sampleRate float32) (TimerHook, error) {
	client, err := statsdClientFactory(addr, sampleRate)
	if err != nil {
		return nil, err
	}

	return newAsyncStatsdTimerHook(client, name), nil
}

func newAsyncStatsdTimerHook(client *StatsdClient, name string) *AsyncStatsdTimerHook {
	return &AsyncStatsdTimerHook{
		client: client,
		name:   name,
	}
}

// EmitStart statsd implementation
func (h *AsyncStatsdTimerHook) EmitStart() {
	go h.client.Count("event.timer.start", 1, h.tags(nil))
}

// EmitLap statsd implementation
func (h *AsyncStatsdTimerHook) EmitLap(duration time.Duration) {
	go func() {
		tags := h.tags(nil)

		h.client.Count("event.timer.lap", 1, tags)
		h.client.Timing("latency.timer.lap", duration, tags)
	}()
}

// EmitStop statsd implementation
func (h *AsyncStatsdTimerHook) EmitStop(elapsed time.Duration, laps int) {
	go func() {
		tags := h.tags(nil)

		h.client.Count("event.timer.stop", 1, tags)
		h.client.Timing("latency.timer.elapsed", elapsed, tags)
		h.client.Gauge("gauge.timer.laps", int64(laps), tags)
	}()
}

// EmitReset statsd implementation
func (h *AsyncStatsdTimerHook) EmitReset() {
	go h.client.Count("event.timer.reset", 1, h.tags(nil))
}

// EmitError statsd implementation
func (h *AsyncStatsdTimerHook) EmitError(code string) {
	go h.client.Count("event.timer.error", 1, h.tags(map[string]string{"code": code}))
}

// tags merges the timer name tag into a set of per-metric tags.
func (h *AsyncStatsdTimerHook) tags(extra map[string]string) map[string]string {
	tags := map[string]string{"timer": h.name}
	for key, value := range extra {
		tags[key] = value
	}

	return tags
}

// NewNoopTimerHook creates a noop implementation of TimerHook.
func NewNoopTimerHook() TimerHook {
	return &NoopTimerHook{}
}

// EmitStart noops.
func (h *NoopTimerHook) EmitStart() {}

// EmitLap noops.
func (h *NoopTimerHook) EmitLap(duration time.Duration) {}

// EmitStop noops.
func (h *NoopTimerHook) EmitStop(elapsed time.Duration, laps int) {}

// EmitReset noops.
func (h *NoopTimerHook) EmitReset() {}

// EmitError noops.
func (h *NoopTimerHook) EmitError(code string) {}

// lookupHostname resolves the host tag attached to every metric.
var lookupHostname = os.Hostname

// statsdClientFactory creates a configured StatsdClient with reasonable defaults for the given
// statsd server address and sample rate.
func statsdClientFactory(addr string, sampleRate float32) (*StatsdClient, error) {
	hostname, err := lookupHostname()
	if err != nil {
		return nil, errors.Wrap(err, "statsd: error reading hostname")
	}

	defaultTags := map[string]string{
		"host": hostname,
	}

	return NewStatsdClient(addr, "chronometer", defaultTags, sampleRate)
}
