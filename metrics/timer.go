package metrics

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Timer measures the time until Stop and reports it with Client.Timing.
type Timer struct {
	client Client
	clock  clock.Clock
	start  time.Time
	name   string
	tags   Tags
}

func NewTimer(client Client, clk clock.Clock, name string, tags Tags) *Timer {
	return &Timer{
		client: client,
		clock:  clk,
		start:  clk.Now(),
		name:   name,
		tags:   tags,
	}
}

// Stop reports and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	elapsed := t.clock.Since(t.start)
	t.client.Timing(t.name, t.tags, elapsed)

	return elapsed
}
