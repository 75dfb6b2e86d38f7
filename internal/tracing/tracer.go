package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/yinan-symphony/symphony-wdk"

func Tracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer(tracerName)
}

func WithSpanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
