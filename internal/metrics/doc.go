// Package metrics contains abstractions for emission of metrics generated throughout the lifetime
// of a timer. Currently, the only supported metrics output engine is statsd.
//
// Metrics are structured around the notion of hooks: a hook interface defines methods that are
// invoked by the timer as it transitions between states. Thus, they "hook" into lifecycle points
// in logic. Implementations of hook interfaces actually output the metrics to a backend engine;
// this responsibility is decoupled from the semantics of "hooking" into timer bookkeeping.
package metrics
