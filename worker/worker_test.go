package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/feed"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/workflow"
)

func greeting() *workflow.Definition {
	return &workflow.Definition{
		ID: "greeting",
		Activities: []workflow.Activity{
			{ID: "hello", Kind: "hello"},
		},
		Triggers: []workflow.Trigger{
			{Event: event.KindMessageReceived, Key: "/hello", Activity: "hello"},
		},
	}
}

func newTestEngine(t *testing.T, calls *atomic.Int32) *engine.Engine {
	t.Helper()

	r := registry.New()
	require.NoError(t, r.RegisterActivityFunc("hello", func(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
		calls.Add(1)
		return nil, nil
	}))

	e := engine.New(r, engine.WithClock(clock.NewMock()))
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})

	require.NoError(t, e.Deploy(context.Background(), greeting()))

	return e
}

func hello(id string) *event.Event {
	return &event.Event{
		ID:        id,
		Type:      "MESSAGESENT",
		Initiator: &event.User{Username: "alice"},
		Message: &event.Message{
			MessageID: "msg-" + id,
			Text:      "/hello",
			Stream:    &event.Stream{StreamID: "stream"},
		},
	}
}

func Test_Worker_DeliversEvents(t *testing.T) {
	var calls atomic.Int32
	e := newTestEngine(t, &calls)

	src := feed.NewChannelSource(10)
	w := New(src, e, &Options{
		Pollers:           2,
		MaxParallelEvents: 2,
		PollingInterval:   time.Millisecond,
		PollTimeout:       10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	var acked atomic.Int32
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, src.Publish(ctx, hello(id), feed.WithAck(func(context.Context) error {
			acked.Add(1)
			return nil
		})))
	}

	require.Eventually(t, func() bool { return acked.Load() == 3 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, w.WaitForCompletion())

	require.Equal(t, int32(3), calls.Load())

	instances := e.Instances(context.Background(), "greeting")
	require.Len(t, instances, 3)
	for _, s := range instances {
		require.Equal(t, core.InstanceStatusCompleted, s.Status)
	}
}

func Test_Worker_NaksWhenEngineClosed(t *testing.T) {
	var calls atomic.Int32
	e := newTestEngine(t, &calls)
	require.NoError(t, e.Close())

	src := feed.NewChannelSource(1)
	w := New(src, e, &Options{
		Pollers:         1,
		PollingInterval: time.Millisecond,
		PollTimeout:     10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	var naked atomic.Int32
	require.NoError(t, src.Publish(ctx, hello("1"),
		feed.WithAck(func(context.Context) error {
			t.Error("event must not be acknowledged")
			return nil
		}),
		feed.WithNak(func(context.Context) error {
			naked.Add(1)
			return nil
		}),
	))

	require.Eventually(t, func() bool { return naked.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, w.WaitForCompletion())
	require.Zero(t, calls.Load())
}
