package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type timingClient struct {
	Client

	name string
	tags Tags
	d    time.Duration
}

func (c *timingClient) Timing(name string, tags Tags, d time.Duration) {
	c.name, c.tags, c.d = name, tags, d
}

func Test_Timer(t *testing.T) {
	clk := clock.NewMock()
	c := &timingClient{}

	timer := NewTimer(c, clk, "workflows.activity.duration", Tags{"kind": "send"})
	clk.Add(1500 * time.Millisecond)

	require.Equal(t, 1500*time.Millisecond, timer.Stop())
	require.Equal(t, "workflows.activity.duration", c.name)
	require.Equal(t, Tags{"kind": "send"}, c.tags)
	require.Equal(t, 1500*time.Millisecond, c.d)
}
