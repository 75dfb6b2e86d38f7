// Package metrics defines the client the engine reports counters and timings to.
package metrics

import "time"

type Tags map[string]string

// Client receives engine metrics. Implementations must be safe for concurrent use, the engine
// reports from event and timer goroutines at the same time.
type Client interface {
	// Counter adds value to the named counter.
	Counter(name string, tags Tags, value float64)

	// Distribution records a sample, e.g. a size.
	Distribution(name string, tags Tags, value float64)

	// Timing records a duration.
	Timing(name string, tags Tags, duration time.Duration)

	// WithTags returns a client adding tags to everything it reports.
	WithTags(tags Tags) Client
}
