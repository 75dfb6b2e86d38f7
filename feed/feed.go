// Package feed defines where the engine's events come from. A Source hands out deliveries one at
// a time; the worker acknowledges each delivery once the engine has handled its event.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/internal/tracing"
)

var ErrSourceClosed = errors.New("feed source closed")

// Source is a stream of platform events.
//
// Get blocks until an event is available or ctx is done. Implementations return ctx.Err() when
// the context ends before a delivery arrives.
type Source interface {
	Get(ctx context.Context) (*Delivery, error)
}

// Delivery is one event handed out by a Source.
type Delivery struct {
	Event *event.Event

	// Carrier holds trace context propagated alongside the event, if any.
	Carrier tracing.Carrier

	ack    func(context.Context) error
	nak    func(context.Context) error
	extend func(context.Context) error
}

type DeliveryOption func(*Delivery)

// WithAck sets the function called once the event has been handled.
func WithAck(f func(context.Context) error) DeliveryOption {
	return func(d *Delivery) {
		d.ack = f
	}
}

// WithNak sets the function called when the event could not be handled and should be redelivered.
func WithNak(f func(context.Context) error) DeliveryOption {
	return func(d *Delivery) {
		d.nak = f
	}
}

// WithExtend sets the function called periodically while the event is being handled.
func WithExtend(f func(context.Context) error) DeliveryOption {
	return func(d *Delivery) {
		d.extend = f
	}
}

func WithCarrier(c tracing.Carrier) DeliveryOption {
	return func(d *Delivery) {
		d.Carrier = c
	}
}

func NewDelivery(ev *event.Event, opts ...DeliveryOption) *Delivery {
	d := &Delivery{Event: ev}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}

	return d.ack(ctx)
}

func (d *Delivery) Nak(ctx context.Context) error {
	if d.nak == nil {
		return nil
	}

	return d.nak(ctx)
}

func (d *Delivery) Extend(ctx context.Context) error {
	if d.extend == nil {
		return nil
	}

	return d.extend(ctx)
}

// ChannelSource is an in-process Source. Events published to it are delivered in order.
type ChannelSource struct {
	events chan *Delivery

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ Source = (*ChannelSource)(nil)

// NewChannelSource returns a source buffering up to size events. Publish blocks once the buffer
// is full.
func NewChannelSource(size int) *ChannelSource {
	return &ChannelSource{
		events: make(chan *Delivery, size),
		done:   make(chan struct{}),
	}
}

func (s *ChannelSource) Publish(ctx context.Context, ev *event.Event, opts ...DeliveryOption) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrSourceClosed
	}

	opts = append([]DeliveryOption{WithCarrier(tracing.Inject(ctx))}, opts...)

	select {
	case s.events <- NewDelivery(ev, opts...):
		return nil
	case <-s.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSource) Get(ctx context.Context) (*Delivery, error) {
	select {
	case d := <-s.events:
		return d, nil
	case <-s.done:
		return nil, ErrSourceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the source. Pending events that were not picked up yet are dropped.
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.done)
}
