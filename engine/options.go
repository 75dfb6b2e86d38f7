package engine

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/yinan-symphony/symphony-wdk/backend"
	mi "github.com/yinan-symphony/symphony-wdk/internal/metrics"
	"github.com/yinan-symphony/symphony-wdk/metrics"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Logger *slog.Logger

	Metrics metrics.Client

	TracerProvider trace.TracerProvider

	// Clock drives wait deadlines. Tests use a mock clock.
	Clock clock.Clock

	// Store receives a snapshot of every instance after each advance. Optional.
	Store backend.Store

	// DedupeWindow is how long event ids are remembered to drop redelivered events. Zero disables
	// deduplication.
	DedupeWindow time.Duration

	// DedupeCapacity bounds the number of remembered event ids, 0 is unbounded.
	DedupeCapacity uint64

	// Retention is how long finished instances stay available for inspection.
	Retention time.Duration

	// RetentionCapacity bounds the number of retained finished instances, 0 is unbounded.
	RetentionCapacity uint64

	// MaxSteps is the number of activities a single advance may process before the instance is
	// failed. Guards against loops that never wait.
	MaxSteps int
}

var DefaultOptions = Options{
	Logger:         slog.Default(),
	Metrics:        mi.NewNoopMetricsClient(),
	TracerProvider: trace.NewNoopTracerProvider(),
	Clock:          clock.New(),

	DedupeWindow:      10 * time.Minute,
	DedupeCapacity:    100_000,
	Retention:         time.Hour,
	RetentionCapacity: 10_000,

	MaxSteps: 1000,
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithMetrics(client metrics.Client) Option {
	return func(o *Options) {
		o.Metrics = client
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

func WithStore(s backend.Store) Option {
	return func(o *Options) {
		o.Store = s
	}
}

func WithDedupeWindow(window time.Duration) Option {
	return func(o *Options) {
		o.DedupeWindow = window
	}
}

func WithRetention(retention time.Duration) Option {
	return func(o *Options) {
		o.Retention = retention
	}
}

func WithMaxSteps(steps int) Option {
	return func(o *Options) {
		o.MaxSteps = steps
	}
}

func ApplyOptions(opts ...Option) Options {
	options := DefaultOptions

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	if options.Clock == nil {
		options.Clock = clock.New()
	}

	if options.MaxSteps <= 0 {
		options.MaxSteps = DefaultOptions.MaxSteps
	}

	return options
}
