package redis

import (
	"time"

	"github.com/yinan-symphony/symphony-wdk/backend"
)

type Options struct {
	backend.Options

	// FinishedTTL expires the snapshot of a finished instance. Zero keeps it until RemoveInstances.
	FinishedTTL time.Duration
}

type Option func(*Options)

func WithBackendOptions(opts ...backend.BackendOption) Option {
	return func(o *Options) {
		for _, opt := range opts {
			opt(&o.Options)
		}
	}
}

// WithAutoExpiration lets Redis drop finished instances after ttl.
func WithAutoExpiration(ttl time.Duration) Option {
	return func(o *Options) {
		o.FinishedTTL = ttl
	}
}
