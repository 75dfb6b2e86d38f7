// Package worker runs a poll-execute-complete loop over tasks fetched from some source, with a
// bounded number of tasks in flight.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
)

// TaskWorker fetches and processes one kind of task.
type TaskWorker[Task, Result any] interface {
	// Get returns the next task, nil when none is available before ctx is done.
	Get(context.Context) (*Task, error)

	// Extend is called every HeartbeatInterval while a task executes.
	Extend(context.Context, *Task) error

	Execute(context.Context, *Task) (*Result, error)
	Complete(context.Context, *Result, *Task) error

	// Abandon is called when a task could not be executed. The task should become available again.
	Abandon(context.Context, *Task, error) error
}

type WorkerOptions struct {
	Pollers int

	// MaxParallelTasks bounds the tasks in flight across all pollers, 0 is unbounded.
	MaxParallelTasks int

	// HeartbeatInterval is how often Extend is called for a running task, 0 disables heartbeats.
	HeartbeatInterval time.Duration

	// PollingInterval is the pause after a poll that returned no task. Defaults to 200ms.
	PollingInterval time.Duration

	// PollTimeout bounds a single Get call. Defaults to 30 seconds.
	PollTimeout time.Duration

	// MaxPollBackoff caps the pause after consecutive failed polls. Defaults to 10 seconds.
	MaxPollBackoff time.Duration
}

type Worker[Task, TaskResult any] struct {
	options *WorkerOptions

	tw TaskWorker[Task, TaskResult]

	// slots is nil when the number of parallel tasks is not limited
	slots *semaphore.Weighted

	logger *slog.Logger

	pollers sync.WaitGroup
	tasks   sync.WaitGroup

	inFlight atomic.Int64
}

func NewWorker[Task, TaskResult any](
	logger *slog.Logger, tw TaskWorker[Task, TaskResult], options *WorkerOptions,
) *Worker[Task, TaskResult] {
	w := &Worker[Task, TaskResult]{
		tw:      tw,
		options: options,
		logger:  logger,
	}

	if options.MaxParallelTasks > 0 {
		w.slots = semaphore.NewWeighted(int64(options.MaxParallelTasks))
	}

	return w
}

// Start launches the pollers. They stop once ctx is canceled.
func (w *Worker[Task, TaskResult]) Start(ctx context.Context) error {
	pollers := w.options.Pollers
	if pollers <= 0 {
		pollers = 1
	}

	w.pollers.Add(pollers)

	for i := 0; i < pollers; i++ {
		go w.poller(ctx)
	}

	return nil
}

// WaitForCompletion blocks until the pollers stopped and every task in flight has finished.
func (w *Worker[Task, TaskResult]) WaitForCompletion() error {
	w.pollers.Wait()
	w.tasks.Wait()

	return nil
}

// InFlight returns the number of tasks currently executing.
func (w *Worker[Task, TaskResult]) InFlight() int {
	return int(w.inFlight.Load())
}

func (w *Worker[Task, TaskResult]) poller(ctx context.Context) {
	defer w.pollers.Done()

	interval := w.options.PollingInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	errBackoff := backoff.NewExponentialBackOff()
	errBackoff.InitialInterval = interval
	errBackoff.MaxInterval = w.options.MaxPollBackoff
	if errBackoff.MaxInterval <= 0 {
		errBackoff.MaxInterval = 10 * time.Second
	}
	errBackoff.MaxElapsedTime = 0

	for {
		// Only fetch a task once there is capacity to process it
		if err := w.acquire(ctx); err != nil {
			return
		}

		task, err := w.poll(ctx)

		var wait time.Duration
		switch {
		case err != nil:
			w.release()

			if ctx.Err() != nil {
				return
			}

			wait = errBackoff.NextBackOff()
			w.logger.ErrorContext(ctx, "error polling task", "error", err, "retry_in", wait)

		case task == nil:
			w.release()
			errBackoff.Reset()
			wait = interval

		default:
			errBackoff.Reset()
			w.tasks.Add(1)
			go w.run(task)

			continue // check for new tasks right away
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker[Task, TaskResult]) acquire(ctx context.Context) error {
	if w.slots == nil {
		return ctx.Err()
	}

	return w.slots.Acquire(ctx, 1)
}

func (w *Worker[Task, TaskResult]) release() {
	if w.slots != nil {
		w.slots.Release(1)
	}
}

func (w *Worker[Task, TaskResult]) run(t *Task) {
	defer w.tasks.Done()
	defer w.release()

	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	// Tasks run to completion even when the worker is being stopped
	ctx := context.Background()
	if err := w.handle(ctx, t); err != nil {
		w.logger.ErrorContext(ctx, "error handling task", "error", err)
	}
}

func (w *Worker[Task, TaskResult]) handle(ctx context.Context, t *Task) error {
	if w.options.HeartbeatInterval > 0 {
		heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
		defer cancelHeartbeat()
		go w.heartbeat(heartbeatCtx, t)
	}

	result, err := w.tw.Execute(ctx, t)
	if err != nil {
		if aerr := w.tw.Abandon(ctx, t, err); aerr != nil {
			w.logger.ErrorContext(ctx, "could not abandon task", "error", aerr)
		}

		return fmt.Errorf("executing task: %w", err)
	}

	return w.tw.Complete(ctx, result, t)
}

func (w *Worker[Task, TaskResult]) heartbeat(ctx context.Context, task *Task) {
	t := time.NewTicker(w.options.HeartbeatInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.tw.Extend(ctx, task); err != nil {
				w.logger.ErrorContext(ctx, "could not heartbeat task", "error", err)
			}
		}
	}
}

func (w *Worker[Task, TaskResult]) poll(ctx context.Context) (*Task, error) {
	timeout := w.options.PollTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	task, err := w.tw.Get(pollCtx)
	if err != nil {
		// A poll running into its own timeout found nothing
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}

		return nil, err
	}

	return task, nil
}
