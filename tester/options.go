package tester

import (
	"log/slog"
	"time"

	"github.com/yinan-symphony/symphony-wdk/engine"
)

type options struct {
	TestTimeout   time.Duration
	Logger        *slog.Logger
	EngineOptions []engine.Option
}

type WorkflowTesterOption func(*options)

func WithLogger(logger *slog.Logger) WorkflowTesterOption {
	return func(o *options) {
		o.Logger = logger
	}
}

// WithTestTimeout bounds how long the Wait helpers wait, in wall clock time. Defaults to 5 seconds.
func WithTestTimeout(timeout time.Duration) WorkflowTesterOption {
	return func(o *options) {
		o.TestTimeout = timeout
	}
}

// WithEngineOptions passes options to the engine under test. The clock cannot be replaced.
func WithEngineOptions(opts ...engine.Option) WorkflowTesterOption {
	return func(o *options) {
		o.EngineOptions = append(o.EngineOptions, opts...)
	}
}
