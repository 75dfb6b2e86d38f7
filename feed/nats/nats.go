// Package nats is a feed.Source reading events from a NATS JetStream stream through a durable
// pull consumer. Events are JSON encoded, trace context travels in message headers.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/feed"
	"github.com/yinan-symphony/symphony-wdk/internal/tracing"
	"github.com/yinan-symphony/symphony-wdk/log"
)

type Source struct {
	js       jetstream.JetStream
	consumer jetstream.Consumer
	options  Options
}

var _ feed.Source = (*Source)(nil)

// NewSource makes sure the stream and the durable consumer exist and returns a source reading
// from them.
func NewSource(ctx context.Context, nc *nats.Conn, opts ...Option) (*Source, error) {
	options := applyOptions(opts...)

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     options.Stream,
		Subjects: []string{options.Subject},
	})
	if err != nil {
		return nil, fmt.Errorf("creating stream %s: %w", options.Stream, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       options.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       options.AckWait,
		MaxDeliver:    options.MaxDeliver,
		FilterSubject: options.Subject,
	})
	if err != nil {
		return nil, fmt.Errorf("creating consumer %s: %w", options.Durable, err)
	}

	return &Source{
		js:       js,
		consumer: consumer,
		options:  options,
	}, nil
}

func (s *Source) Get(ctx context.Context) (*feed.Delivery, error) {
	wait := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}

	if wait <= 0 {
		return nil, context.DeadlineExceeded
	}

	batch, err := s.consumer.Fetch(1, jetstream.FetchMaxWait(wait))
	if err != nil {
		return nil, fmt.Errorf("fetching event: %w", err)
	}

	if msg, ok := <-batch.Messages(); ok && msg != nil {
		return s.delivery(ctx, msg)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
		return nil, fmt.Errorf("fetching event: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return nil, context.DeadlineExceeded
}

func (s *Source) delivery(ctx context.Context, msg jetstream.Msg) (*feed.Delivery, error) {
	var ev event.Event
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		// Redelivering a message that cannot be decoded will not help
		s.options.Logger.ErrorContext(ctx, "Dropping malformed event", "subject", msg.Subject(), "error", err)

		if err := msg.Term(); err != nil {
			return nil, fmt.Errorf("terminating malformed event: %w", err)
		}

		return nil, nil
	}

	return feed.NewDelivery(&ev,
		feed.WithCarrier(carrierFromHeader(msg.Headers())),
		feed.WithAck(func(ctx context.Context) error {
			return msg.DoubleAck(ctx)
		}),
		feed.WithNak(func(context.Context) error {
			return msg.Nak()
		}),
		feed.WithExtend(func(context.Context) error {
			return msg.InProgress()
		}),
	), nil
}

// Publish sends an event to the stream. The event id doubles as the JetStream message id, so
// republishing the same event within the stream's duplicate window is ignored by the server.
func (s *Source) Publish(ctx context.Context, ev *event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := nats.NewMsg(subjectFor(s.options.Subject, ev))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)

	for k, v := range tracing.Inject(ctx) {
		msg.Header.Set(k, v)
	}

	if _, err := s.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	s.options.Logger.DebugContext(ctx, "Published event", log.EventIDKey, ev.ID, log.EventTypeKey, ev.Type)

	return nil
}

// subjectFor replaces the wildcard of the stream subject with the event type.
func subjectFor(subject string, ev *event.Event) string {
	typ := strings.ToLower(ev.Type)
	if typ == "" {
		typ = "unknown"
	}

	if strings.HasSuffix(subject, ">") || strings.HasSuffix(subject, "*") {
		return subject[:len(subject)-1] + typ
	}

	return subject
}

func carrierFromHeader(h nats.Header) tracing.Carrier {
	if len(h) == 0 {
		return nil
	}

	c := make(tracing.Carrier)
	for k := range h {
		// Header keys are canonicalized, the propagator expects lower case names
		c[strings.ToLower(k)] = h.Get(k)
	}

	return c
}
