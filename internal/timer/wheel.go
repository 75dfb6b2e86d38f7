// Package timer schedules the deadlines of pending waits and races them against inbound events.
package timer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/yinan-symphony/symphony-wdk/internal/correlation"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	"github.com/yinan-symphony/symphony-wdk/log"
	"github.com/yinan-symphony/symphony-wdk/metrics"
)

var ErrWheelClosed = errors.New("timer wheel closed")

// FireFunc is called for a wait whose deadline elapsed and that the wheel removed from the table.
type FireFunc func(w *correlation.PendingWait)

type Wheel struct {
	clock   clock.Clock
	table   *correlation.Table
	onFire  FireFunc
	logger  *slog.Logger
	metrics metrics.Client

	mu     sync.Mutex
	timers map[string]*clock.Timer
	closed bool

	// wg tracks scheduled timers until they are stopped or their callback returned.
	wg sync.WaitGroup
}

func New(clk clock.Clock, table *correlation.Table, onFire FireFunc, logger *slog.Logger, mc metrics.Client) *Wheel {
	return &Wheel{
		clock:   clk,
		table:   table,
		onFire:  onFire,
		logger:  logger,
		metrics: mc,
		timers:  make(map[string]*clock.Timer),
	}
}

// Schedule arms a timer for w. A deadline in the past fires on the next clock tick.
func (wh *Wheel) Schedule(w *correlation.PendingWait, deadline time.Time) error {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	if wh.closed {
		return ErrWheelClosed
	}

	if t, ok := wh.timers[w.ID]; ok {
		if t.Stop() {
			wh.wg.Done()
		}
	}

	d := deadline.Sub(wh.clock.Now())
	if d < 0 {
		d = 0
	}

	wh.wg.Add(1)
	wh.timers[w.ID] = wh.clock.AfterFunc(d, func() {
		wh.fire(w)
	})

	return nil
}

// Cancel stops the timer of w and reports whether it was still pending.
func (wh *Wheel) Cancel(w *correlation.PendingWait) bool {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	t, ok := wh.timers[w.ID]
	if !ok {
		return false
	}

	delete(wh.timers, w.ID)

	if t.Stop() {
		wh.wg.Done()
		return true
	}

	return false
}

// Len returns the number of pending timers.
func (wh *Wheel) Len() int {
	wh.mu.Lock()
	defer wh.mu.Unlock()

	return len(wh.timers)
}

// Close stops all pending timers and waits for running callbacks to return.
func (wh *Wheel) Close() {
	wh.mu.Lock()
	wh.closed = true
	for id, t := range wh.timers {
		if t.Stop() {
			wh.wg.Done()
		}
		delete(wh.timers, id)
	}
	wh.mu.Unlock()

	wh.wg.Wait()
}

func (wh *Wheel) fire(w *correlation.PendingWait) {
	defer wh.wg.Done()

	wh.mu.Lock()
	if wh.closed {
		wh.mu.Unlock()
		return
	}
	delete(wh.timers, w.ID)
	wh.mu.Unlock()

	if !wh.table.Remove(w) {
		wh.logger.Debug("Timer lost race against event",
			log.WaitIDKey, w.ID,
			log.InstanceIDKey, w.InstanceID,
			log.ActivityIDKey, w.ActivityID,
		)
		wh.metrics.Counter(metrickeys.TimerRaceLost, metrics.Tags{metrickeys.WorkflowID: w.WorkflowID}, 1)
		return
	}

	wh.metrics.Counter(metrickeys.TimerFired, metrics.Tags{metrickeys.WorkflowID: w.WorkflowID}, 1)

	wh.onFire(w)
}
