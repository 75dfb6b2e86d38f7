// Package engine runs compiled workflows. It starts instances when a trigger matches an inbound
// event, parks them on waits and resumes them when a matching event arrives or a deadline
// elapses.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/graph"
	"github.com/yinan-symphony/symphony-wdk/internal/correlation"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	"github.com/yinan-symphony/symphony-wdk/internal/timer"
	"github.com/yinan-symphony/symphony-wdk/internal/tracing"
	"github.com/yinan-symphony/symphony-wdk/log"
	"github.com/yinan-symphony/symphony-wdk/metrics"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type binding struct {
	graph   *graph.Graph
	trigger *graph.Trigger
}

// Engine is safe for concurrent use. Different instances advance in parallel, a single instance
// is advanced by one goroutine at a time.
//
// Lock order is instance before engine: mu is never held while acquiring an instance lock.
type Engine struct {
	registry *registry.Registry
	options  Options

	logger  *slog.Logger
	metrics metrics.Client
	tracer  trace.Tracer
	clock   clock.Clock
	store   backend.Store

	table *correlation.Table
	wheel *timer.Wheel

	mu        sync.RWMutex
	closed    bool
	workflows map[string]*graph.Graph
	triggers  map[event.Kind][]binding
	running   map[string]*instance

	finished *retention

	dedupeMu sync.Mutex
	seen     *ttlcache.Cache[string, struct{}]
}

func New(r *registry.Registry, opts ...Option) *Engine {
	options := ApplyOptions(opts...)

	var store backend.Store
	if options.Store != nil {
		store = backend.Instrument(options.Store, options.Metrics, options.TracerProvider)
	}

	e := &Engine{
		registry: r,
		options:  options,

		logger:  options.Logger,
		metrics: options.Metrics,
		tracer:  tracing.Tracer(options.TracerProvider),
		clock:   options.Clock,
		store:   store,

		table: correlation.New(),

		workflows: make(map[string]*graph.Graph),
		triggers:  make(map[event.Kind][]binding),
		running:   make(map[string]*instance),

		finished: newRetention(options.Metrics, options.RetentionCapacity, options.Retention),
	}

	e.wheel = timer.New(e.clock, e.table, e.onTimerFired, e.logger, e.metrics)

	if options.DedupeWindow > 0 {
		e.seen = ttlcache.New(
			ttlcache.WithCapacity[string, struct{}](options.DedupeCapacity),
			ttlcache.WithTTL[string, struct{}](options.DedupeWindow),
		)
		go e.seen.Start()
	}

	return e
}

// Deploy compiles def and registers its triggers. A definition already deployed under the same id
// is replaced; its running instances finish on the graph they started with. Nothing is registered
// when compilation fails.
func (e *Engine) Deploy(ctx context.Context, def *workflow.Definition) error {
	_, span := e.tracer.Start(ctx, "Deploy")
	defer span.End()

	g, err := graph.Compile(def, e.registry)
	if err != nil {
		e.logger.Error("Could not deploy workflow", "error", err)
		return tracing.WithSpanError(span, err)
	}

	span.SetAttributes(attribute.String(tracing.WorkflowID, g.WorkflowID))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	e.unbind(g.WorkflowID)

	e.workflows[g.WorkflowID] = g
	for _, t := range g.Triggers {
		e.triggers[t.Event] = append(e.triggers[t.Event], binding{graph: g, trigger: t})
	}

	e.logger.Info("Deployed workflow", log.WorkflowIDKey, g.WorkflowID, "triggers", len(g.Triggers))
	e.metrics.Counter(metrickeys.WorkflowDeployed, metrics.Tags{metrickeys.WorkflowID: g.WorkflowID}, 1)

	return nil
}

// Undeploy removes the triggers of a workflow. Running instances continue.
func (e *Engine) Undeploy(ctx context.Context, workflowID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.workflows[workflowID]; !ok {
		return ErrWorkflowNotFound
	}

	e.unbind(workflowID)
	delete(e.workflows, workflowID)

	e.logger.Info("Undeployed workflow", log.WorkflowIDKey, workflowID)
	e.metrics.Counter(metrickeys.WorkflowUndeployed, metrics.Tags{metrickeys.WorkflowID: workflowID}, 1)

	return nil
}

// unbind must be called with mu held.
func (e *Engine) unbind(workflowID string) {
	for kind, bs := range e.triggers {
		kept := bs[:0:0]
		for _, b := range bs {
			if b.graph.WorkflowID != workflowID {
				kept = append(kept, b)
			}
		}

		if len(kept) == 0 {
			delete(e.triggers, kind)
		} else {
			e.triggers[kind] = kept
		}
	}
}

// OnEvent delivers an event. It resumes every open wait matching the event's kind and key; when
// none matches, it starts an instance for every trigger bound to them. Events nothing is
// interested in are dropped. Instance failures are not returned, they are recorded on the
// instance.
func (e *Engine) OnEvent(ctx context.Context, ev *event.Event) error {
	if ev == nil {
		return nil
	}

	if e.isClosed() {
		return ErrEngineClosed
	}

	logger := e.logger.With(log.EventIDKey, ev.ID, log.EventTypeKey, ev.Type)

	kind, key, ok := event.Classify(ev)
	if !ok {
		logger.Debug("Ignoring event of unknown type")
		e.metrics.Counter(metrickeys.EventDropped, metrics.Tags{metrickeys.Reason: "unknown"}, 1)
		return nil
	}

	tags := metrics.Tags{metrickeys.EventKind: string(kind)}
	e.metrics.Counter(metrickeys.EventReceived, tags, 1)

	logger = logger.With(log.EventKindKey, kind, log.EventKeyKey, key)

	if e.duplicate(ev) {
		logger.Debug("Dropping duplicate event")
		e.metrics.Counter(metrickeys.EventDuplicated, tags, 1)
		return nil
	}

	k := correlation.Key{Kind: kind, Value: key}

	if e.resumeWaits(ctx, k, ev) {
		e.metrics.Counter(metrickeys.EventMatched, tags, 1)
		return nil
	}

	if e.startInstances(ctx, k, ev) {
		e.metrics.Counter(metrickeys.EventMatched, tags, 1)
		return nil
	}

	logger.Debug("No wait or trigger matched event")
	e.metrics.Counter(metrickeys.EventDropped, metrics.Tags{metrickeys.EventKind: string(kind), metrickeys.Reason: "unmatched"}, 1)

	return nil
}

func (e *Engine) duplicate(ev *event.Event) bool {
	if e.seen == nil || ev.ID == "" {
		return false
	}

	e.dedupeMu.Lock()
	defer e.dedupeMu.Unlock()

	if e.seen.Get(ev.ID) != nil {
		return true
	}

	e.seen.Set(ev.ID, struct{}{}, ttlcache.DefaultTTL)

	return false
}

func (e *Engine) resumeWaits(ctx context.Context, k correlation.Key, ev *event.Event) bool {
	matched := false

	for _, w := range e.table.Match(k) {
		if w.Exclusive {
			if !e.table.Remove(w) {
				continue
			}

			e.wheel.Cancel(w)
		} else if !e.table.Touch(w) {
			continue
		}

		matched = true
		e.resume(ctx, w, ev)
	}

	return matched
}

func (e *Engine) startInstances(ctx context.Context, k correlation.Key, ev *event.Event) bool {
	e.mu.RLock()
	bindings := append([]binding(nil), e.triggers[k.Kind]...)
	e.mu.RUnlock()

	started := false
	for _, b := range bindings {
		if b.trigger.Key != "" && b.trigger.Key != k.Value {
			continue
		}

		if e.start(ctx, b, ev) {
			started = true
		}
	}

	return started
}

func (e *Engine) start(ctx context.Context, b binding, ev *event.Event) bool {
	inst := newInstance(uuid.NewString(), b.graph, e.clock.Now(), e.logger)

	inst.mu.Lock()
	defer inst.mu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.running[inst.id] = inst
	e.mu.Unlock()

	inst.logger.Debug("Started instance", log.ActivityIDKey, b.graph.Activities[b.trigger.Activity].ID)
	e.metrics.Counter(metrickeys.InstanceCreated, metrics.Tags{metrickeys.WorkflowID: b.graph.WorkflowID}, 1)

	e.advance(ctx, inst, &token{
		id:    uuid.NewString(),
		at:    b.trigger.Activity,
		event: ev,
	})

	return true
}

// resume continues the instance parked on w. The caller owns w: it removed an exclusive wait from
// the table or counted an event on a non exclusive one.
func (e *Engine) resume(ctx context.Context, w *correlation.PendingWait, ev *event.Event) {
	inst := e.lookup(w.InstanceID)
	if inst == nil {
		return
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.status != core.InstanceStatusRunning {
		return
	}

	pt, ok := inst.waits[w.ID]
	if !ok {
		return
	}

	tok := pt.token
	if w.Exclusive {
		delete(inst.waits, w.ID)
	} else {
		pt.resumed++
		if pt.closed && pt.resumed >= w.Matches() {
			delete(inst.waits, w.ID)
		}

		tok = &token{
			id:     uuid.NewString(),
			at:     pt.token.at,
			frames: pt.token.frames,
			stops:  pt.token.stops,
		}

		// Only the first reply arrives at the joins of enclosing forks
		if pt.resumed > 1 {
			tok.frames = nil
			for _, f := range pt.token.frames {
				if f.join != graph.NoActivity {
					tok.stops = append(tok.stops[:len(tok.stops):len(tok.stops)], f.join)
				}
			}
		}
	}

	tok.event = ev

	inst.logger.Debug("Resuming instance",
		log.ActivityIDKey, w.ActivityID,
		log.WaitIDKey, w.ID,
		log.TokenIDKey, tok.id,
		log.EventIDKey, ev.ID,
	)

	e.advance(ctx, inst, tok)
}

// onTimerFired is called by the timer wheel once it removed w from the correlation table.
func (e *Engine) onTimerFired(w *correlation.PendingWait) {
	ctx := context.Background()

	inst := e.lookup(w.InstanceID)
	if inst == nil {
		return
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.status != core.InstanceStatusRunning {
		return
	}

	pt, ok := inst.waits[w.ID]
	if !ok {
		return
	}

	logger := inst.logger.With(log.ActivityIDKey, w.ActivityID, log.WaitIDKey, w.ID, log.DeadlineKey, w.Deadline)

	if !w.Exclusive && w.Matches() > 0 {
		// Replies arrived, the deadline only ends the reply window.
		if pt.resumed >= w.Matches() {
			delete(inst.waits, w.ID)
		} else {
			pt.closed = true
		}

		logger.Debug("Closed reply window")
		e.advance(ctx, inst)
		return
	}

	delete(inst.waits, w.ID)

	logger.Debug("Wait expired")

	e.advance(ctx, inst, e.expire(inst, pt.token)...)
}

// CancelInstance fails a running instance with ErrInstanceCanceled. Its waits and timers are
// removed, side effects of already executed activities are kept.
func (e *Engine) CancelInstance(ctx context.Context, instanceID string) error {
	inst := e.lookup(instanceID)
	if inst == nil {
		if _, ok := e.finished.Get(instanceID); ok {
			return ErrInstanceFinished
		}

		return ErrInstanceNotFound
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.status.Finished() {
		return ErrInstanceFinished
	}

	e.fail(inst, graph.NoActivity, ErrInstanceCanceled)
	e.persist(ctx, inst)

	return nil
}

// Instance returns a snapshot of a running or finished instance. Finished instances are looked up
// in the retention cache first, then in the store.
func (e *Engine) Instance(ctx context.Context, instanceID string) (*core.InstanceSnapshot, error) {
	if inst := e.lookup(instanceID); inst != nil {
		inst.mu.Lock()
		defer inst.mu.Unlock()

		return inst.snapshot(), nil
	}

	if s, ok := e.finished.Get(instanceID); ok {
		return s, nil
	}

	if e.store != nil {
		s, err := e.store.GetInstance(ctx, instanceID)
		if err == nil {
			return s, nil
		}

		if !errors.Is(err, backend.ErrInstanceNotFound) {
			return nil, err
		}
	}

	return nil, ErrInstanceNotFound
}

// Instances returns snapshots of the running and retained instances of a workflow, oldest first.
func (e *Engine) Instances(ctx context.Context, workflowID string) []*core.InstanceSnapshot {
	e.mu.RLock()
	var running []*instance
	for _, inst := range e.running {
		if inst.graph.WorkflowID == workflowID {
			running = append(running, inst)
		}
	}
	e.mu.RUnlock()

	result := e.finished.List(workflowID)
	for _, inst := range running {
		inst.mu.Lock()
		result = append(result, inst.snapshot())
		inst.mu.Unlock()
	}

	sort.SliceStable(result, func(a, b int) bool {
		return result[a].CreatedAt.Before(result[b].CreatedAt)
	})

	return result
}

// Close stops all timers. Running instances stay parked, events are rejected afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.wheel.Close()

	e.finished.Stop()
	if e.seen != nil {
		e.seen.Stop()
	}

	return nil
}

func (e *Engine) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.closed
}

func (e *Engine) lookup(instanceID string) *instance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.running[instanceID]
}
