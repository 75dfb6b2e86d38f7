package tracing

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
)

// Carrier holds W3C trace context entries travelling with an event on the feed.
type Carrier map[string]string

var _ propagation.TextMapCarrier = Carrier(nil)

func (c Carrier) Get(key string) string {
	return c[key]
}

func (c Carrier) Set(key string, value string) {
	c[key] = value
}

func (c Carrier) Keys() []string {
	r := make([]string, 0, len(c))

	for k := range c {
		r = append(r, k)
	}

	return r
}

var propagator propagation.TraceContext

func Inject(ctx context.Context) Carrier {
	carrier := make(Carrier)
	propagator.Inject(ctx, carrier)
	return carrier
}

func Extract(ctx context.Context, carrier Carrier) context.Context {
	return propagator.Extract(ctx, carrier)
}
