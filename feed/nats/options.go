package nats

import (
	"log/slog"
	"time"
)

type Options struct {
	// Stream is the JetStream stream holding the events. Defaults to "EVENTS".
	Stream string

	// Subject events are published on. Defaults to "events.>".
	Subject string

	// Durable is the name of the consumer shared by all engine replicas. Defaults to "engine".
	Durable string

	// AckWait is how long the server waits for an acknowledgement before redelivering an event.
	// Defaults to 30 seconds.
	AckWait time.Duration

	// MaxDeliver bounds redeliveries of an event. Defaults to 5.
	MaxDeliver int

	Logger *slog.Logger
}

var DefaultOptions = Options{
	Stream:     "EVENTS",
	Subject:    "events.>",
	Durable:    "engine",
	AckWait:    30 * time.Second,
	MaxDeliver: 5,
}

type Option func(*Options)

func WithStream(name, subject string) Option {
	return func(o *Options) {
		o.Stream = name
		o.Subject = subject
	}
}

func WithDurable(name string) Option {
	return func(o *Options) {
		o.Durable = name
	}
}

func WithAckWait(d time.Duration) Option {
	return func(o *Options) {
		o.AckWait = d
	}
}

func WithMaxDeliver(n int) Option {
	return func(o *Options) {
		o.MaxDeliver = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func applyOptions(opts ...Option) Options {
	o := DefaultOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}
