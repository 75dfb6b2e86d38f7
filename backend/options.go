package backend

import (
	"log/slog"
)

// Options are shared by all store implementations.
type Options struct {
	Logger *slog.Logger

	// KeyPrefix namespaces the keys of key-value stores shared between deployments.
	KeyPrefix string
}

var DefaultOptions = Options{
	Logger: slog.Default(),
}

type BackendOption func(*Options)

func WithLogger(logger *slog.Logger) BackendOption {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithKeyPrefix(prefix string) BackendOption {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

func ApplyOptions(opts ...BackendOption) Options {
	options := DefaultOptions

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return options
}
