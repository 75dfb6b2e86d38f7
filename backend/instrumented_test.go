package backend_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/backend/memory"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	"github.com/yinan-symphony/symphony-wdk/internal/metrics"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func Test_Instrument(t *testing.T) {
	ctx := context.Background()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	mc := metrics.NewRecorder()

	s := backend.Instrument(memory.NewMemoryStore(), mc, tp)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	require.NoError(t, s.SaveInstance(ctx, &core.InstanceSnapshot{
		InstanceID: "i1",
		WorkflowID: "wf",
		Status:     core.InstanceStatusRunning,
		CreatedAt:  time.Now(),
	}))

	got, err := s.GetInstance(ctx, "i1")
	require.NoError(t, err)
	require.Equal(t, "wf", got.WorkflowID)

	_, err = s.GetInstance(ctx, "unknown")
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)

	list, err := s.ListInstances(ctx, "wf")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.RemoveInstances(ctx))

	spans := sr.Ended()
	require.Len(t, spans, 5)
	require.Equal(t, "Store.SaveInstance", spans[0].Name())
	for _, span := range spans {
		require.NotEqual(t, codes.Error, span.Status().Code)
	}

	require.Equal(t, 5, mc.Samples(metrickeys.StoreDuration))
	require.Zero(t, mc.Count(metrickeys.StoreError))
}
