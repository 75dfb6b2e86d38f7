// Package worker feeds platform events from a feed.Source into an engine.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/feed"
	internal "github.com/yinan-symphony/symphony-wdk/internal/worker"
	"github.com/yinan-symphony/symphony-wdk/internal/tracing"
	"github.com/yinan-symphony/symphony-wdk/log"
)

type Worker struct {
	engine *engine.Engine

	w *internal.Worker[feed.Delivery, struct{}]
}

// New creates a worker that delivers the events of src to eng.
func New(src feed.Source, eng *engine.Engine, options *Options) *Worker {
	if options == nil {
		options = &DefaultOptions
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ew := &eventWorker{
		source: src,
		engine: eng,
		logger: logger,
	}

	return &Worker{
		engine: eng,
		w: internal.NewWorker[feed.Delivery, struct{}](logger, ew, &internal.WorkerOptions{
			Pollers:           options.Pollers,
			MaxParallelTasks:  options.MaxParallelEvents,
			HeartbeatInterval: options.HeartbeatInterval,
			PollingInterval:   options.PollingInterval,
			PollTimeout:       options.PollTimeout,
		}),
	}
}

// Start starts the worker.
//
// To stop the worker, cancel the context passed to Start. To wait for completion of the events
// being handled, call `WaitForCompletion`.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.w.Start(ctx); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}

	return nil
}

// WaitForCompletion waits for all events in flight to be handled.
func (w *Worker) WaitForCompletion() error {
	if err := w.w.WaitForCompletion(); err != nil {
		return fmt.Errorf("waiting for worker completion: %w", err)
	}

	return nil
}

type eventWorker struct {
	source feed.Source
	engine *engine.Engine
	logger *slog.Logger
}

var _ internal.TaskWorker[feed.Delivery, struct{}] = (*eventWorker)(nil)

func (ew *eventWorker) Get(ctx context.Context) (*feed.Delivery, error) {
	return ew.source.Get(ctx)
}

func (ew *eventWorker) Extend(ctx context.Context, d *feed.Delivery) error {
	return d.Extend(ctx)
}

func (ew *eventWorker) Execute(ctx context.Context, d *feed.Delivery) (*struct{}, error) {
	if d.Carrier != nil {
		ctx = tracing.Extract(ctx, d.Carrier)
	}

	if err := ew.engine.OnEvent(ctx, d.Event); err != nil {
		return nil, err
	}

	return &struct{}{}, nil
}

func (ew *eventWorker) Complete(ctx context.Context, _ *struct{}, d *feed.Delivery) error {
	if err := d.Ack(ctx); err != nil {
		return fmt.Errorf("acknowledging event: %w", err)
	}

	return nil
}

func (ew *eventWorker) Abandon(ctx context.Context, d *feed.Delivery, cause error) error {
	if d.Event != nil {
		ew.logger.WarnContext(ctx, "Returning event to feed", log.EventIDKey, d.Event.ID, "error", cause)
	}

	return d.Nak(ctx)
}
