package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yinan-symphony/symphony-wdk/log"
)

type retryOptions struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          *slog.Logger
}

type RetryOption func(*retryOptions)

// WithMaxRetries sets how often a failed call is repeated. Defaults to 3.
func WithMaxRetries(n uint64) RetryOption {
	return func(o *retryOptions) {
		o.MaxRetries = n
	}
}

// WithBackoff sets the first and the largest pause between attempts.
func WithBackoff(initial, max time.Duration) RetryOption {
	return func(o *retryOptions) {
		o.InitialInterval = initial
		o.MaxInterval = max
	}
}

func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(o *retryOptions) {
		o.Logger = logger
	}
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

type retryingClient struct {
	c       Client
	options retryOptions
}

var _ Client = (*retryingClient)(nil)

// WithRetries decorates c so that failed calls are repeated with exponential backoff. ErrNotFound
// and errors wrapped with Permanent are returned right away.
func WithRetries(c Client, opts ...RetryOption) Client {
	o := retryOptions{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return &retryingClient{c: c, options: o}
}

func (r *retryingClient) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.options.InitialInterval
	b.MaxInterval = r.options.MaxInterval
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, r.options.MaxRetries), ctx)
}

func retry[T any](ctx context.Context, r *retryingClient, op string, f func() (T, error)) (T, error) {
	attempt := 0

	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++

		v, err := f()
		if errors.Is(err, ErrNotFound) {
			return v, backoff.Permanent(err)
		}

		return v, err
	}, r.policy(ctx), func(err error, next time.Duration) {
		r.options.Logger.WarnContext(ctx, "Messaging call failed, retrying",
			"operation", op,
			log.AttemptKey, attempt,
			"retry_in", next,
			"error", err,
		)
	})
}

func (r *retryingClient) Send(ctx context.Context, streamID string, content string) (string, error) {
	return retry(ctx, r, "send", func() (string, error) {
		return r.c.Send(ctx, streamID, content)
	})
}

func (r *retryingClient) Update(ctx context.Context, messageID string, content string) error {
	_, err := retry(ctx, r, "update", func() (struct{}, error) {
		return struct{}{}, r.c.Update(ctx, messageID, content)
	})

	return err
}

func (r *retryingClient) GetMessage(ctx context.Context, messageID string) (string, error) {
	return retry(ctx, r, "get-message", func() (string, error) {
		return r.c.GetMessage(ctx, messageID)
	})
}

func (r *retryingClient) CreateRoom(ctx context.Context, attrs RoomAttributes) (string, error) {
	return retry(ctx, r, "create-room", func() (string, error) {
		return r.c.CreateRoom(ctx, attrs)
	})
}

func (r *retryingClient) AddMember(ctx context.Context, roomID string, userID int64) error {
	_, err := retry(ctx, r, "add-member", func() (struct{}, error) {
		return struct{}{}, r.c.AddMember(ctx, roomID, userID)
	})

	return err
}

func (r *retryingClient) LookupUsers(ctx context.Context, criteria UserCriteria) ([]User, error) {
	return retry(ctx, r, "lookup-users", func() ([]User, error) {
		return r.c.LookupUsers(ctx, criteria)
	})
}
