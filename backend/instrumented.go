package backend

import (
	"context"
	"errors"
	"time"

	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	"github.com/yinan-symphony/symphony-wdk/internal/tracing"
	"github.com/yinan-symphony/symphony-wdk/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type instrumentedStore struct {
	s      Store
	mc     metrics.Client
	tracer trace.Tracer
}

// Instrument wraps s so every call is traced and timed. Errors are counted per operation.
func Instrument(s Store, mc metrics.Client, tp trace.TracerProvider) Store {
	return &instrumentedStore{
		s:      s,
		mc:     mc,
		tracer: tracing.Tracer(tp),
	}
}

func (is *instrumentedStore) observe(ctx context.Context, op string, attrs []attribute.KeyValue, f func(ctx context.Context) error) error {
	ctx, span := is.tracer.Start(ctx, "Store."+op, trace.WithAttributes(attrs...), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	tags := metrics.Tags{metrickeys.Operation: op}

	start := time.Now()
	err := f(ctx)
	is.mc.Timing(metrickeys.StoreDuration, tags, time.Since(start))

	if err != nil && !errors.Is(err, ErrInstanceNotFound) {
		is.mc.Counter(metrickeys.StoreError, tags, 1)
		return tracing.WithSpanError(span, err)
	}

	return err
}

func (is *instrumentedStore) SaveInstance(ctx context.Context, s *core.InstanceSnapshot) error {
	return is.observe(ctx, "SaveInstance", []attribute.KeyValue{
		attribute.String(tracing.WorkflowID, s.WorkflowID),
		attribute.String(tracing.InstanceID, s.InstanceID),
	}, func(ctx context.Context) error {
		return is.s.SaveInstance(ctx, s)
	})
}

func (is *instrumentedStore) GetInstance(ctx context.Context, instanceID string) (*core.InstanceSnapshot, error) {
	var result *core.InstanceSnapshot

	err := is.observe(ctx, "GetInstance", []attribute.KeyValue{
		attribute.String(tracing.InstanceID, instanceID),
	}, func(ctx context.Context) error {
		var err error
		result, err = is.s.GetInstance(ctx, instanceID)
		return err
	})

	return result, err
}

func (is *instrumentedStore) ListInstances(ctx context.Context, workflowID string) ([]*core.InstanceSnapshot, error) {
	var result []*core.InstanceSnapshot

	err := is.observe(ctx, "ListInstances", []attribute.KeyValue{
		attribute.String(tracing.WorkflowID, workflowID),
	}, func(ctx context.Context) error {
		var err error
		result, err = is.s.ListInstances(ctx, workflowID)
		return err
	})

	return result, err
}

func (is *instrumentedStore) RemoveInstances(ctx context.Context, options ...RemovalOption) error {
	return is.observe(ctx, "RemoveInstances", nil, func(ctx context.Context) error {
		return is.s.RemoveInstances(ctx, options...)
	})
}

func (is *instrumentedStore) Close() error {
	return is.s.Close()
}
