package worker

import (
	"log/slog"
	"time"
)

type Options struct {
	// Pollers is the number of goroutines fetching events from the feed. Defaults to 2.
	Pollers int

	// MaxParallelEvents determines the maximum number of events handled concurrently. The default
	// is 0 which is no limit.
	MaxParallelEvents int

	// PollingInterval is the pause between polls when the feed had no event. Note that if the
	// source can wait for events (e.g. NATS) this field has little effect. Defaults to 200ms.
	PollingInterval time.Duration

	// PollTimeout bounds a single fetch from the feed. Defaults to 30 seconds.
	PollTimeout time.Duration

	// HeartbeatInterval is the interval between progress notifications sent to the feed while an
	// event is being handled. Defaults to 25 seconds, 0 disables heartbeats.
	HeartbeatInterval time.Duration

	Logger *slog.Logger
}

var DefaultOptions = Options{
	Pollers:           2,
	MaxParallelEvents: 0,
	PollingInterval:   200 * time.Millisecond,
	PollTimeout:       30 * time.Second,
	HeartbeatInterval: 25 * time.Second,
}
