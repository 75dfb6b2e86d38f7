package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	mi "github.com/yinan-symphony/symphony-wdk/internal/metrics"
	"github.com/yinan-symphony/symphony-wdk/registry"
)

func Test_BenchWorkflow(t *testing.T) {
	ctx := context.Background()
	mm := mi.NewRecorder()

	r := registry.New()
	require.NoError(t, r.RegisterActivityFunc(kindWork, work(10)))

	e := engine.New(r, engine.WithClock(clock.NewMock()), engine.WithMetrics(mm))
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})

	require.NoError(t, e.Deploy(ctx, benchWorkflow(3, 2)))

	require.NoError(t, e.OnEvent(ctx, &event.Event{
		ID:      "e1",
		Type:    "MESSAGESENT",
		Message: &event.Message{MessageID: "m1", Text: "/bench"},
	}))

	instances := e.Instances(ctx, "bench")
	require.Len(t, instances, 1)
	require.Equal(t, core.InstanceStatusCompleted, instances[0].Status)
	require.Equal(t, 1, instances[0].Activities["done"].Executions)
	require.Equal(t, 1, instances[0].Activities["b2_a1"].Executions)

	require.Equal(t, float64(1), mm.Count(metrickeys.InstanceFinished))
	require.Equal(t, float64(8), mm.Count(metrickeys.ActivityExecuted))

	var buf bytes.Buffer
	printMetrics(&buf, mm)
	require.Contains(t, buf.String(), metrickeys.ActivityDuration+": n=8")
}
