package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/graph"
	internalactivity "github.com/yinan-symphony/symphony-wdk/internal/activity"
	"github.com/yinan-symphony/symphony-wdk/internal/correlation"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	"github.com/yinan-symphony/symphony-wdk/internal/tracing"
	"github.com/yinan-symphony/symphony-wdk/internal/workflowerrors"
	"github.com/yinan-symphony/symphony-wdk/log"
	"github.com/yinan-symphony/symphony-wdk/metrics"
	"github.com/yinan-symphony/symphony-wdk/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// advance moves the given tokens forward until each of them is parked on a wait or has ended,
// then completes the instance if nothing is left to wait for. inst.mu must be held.
func (e *Engine) advance(ctx context.Context, inst *instance, tokens ...*token) {
	queue := tokens
	steps := 0

	for len(queue) > 0 && inst.status == core.InstanceStatusRunning {
		tok := queue[0]
		queue = queue[1:]

		steps++
		if steps > e.options.MaxSteps {
			e.fail(inst, graph.NoActivity, fmt.Errorf("%w: more than %d activities", ErrTooManySteps, e.options.MaxSteps))
			break
		}

		queue = append(queue, e.step(ctx, inst, tok)...)
	}

	if inst.status == core.InstanceStatusRunning && len(inst.waits) == 0 {
		inst.status = core.InstanceStatusCompleted
		e.finalize(inst)
	}

	e.persist(ctx, inst)
}

// step processes a token arriving at its activity and returns the tokens to continue with.
func (e *Engine) step(ctx context.Context, inst *instance, tok *token) []*token {
	g := inst.graph
	a := g.Activities[tok.at]

	for _, stop := range tok.stops {
		if stop == a.Index {
			// The join already released its fork without this reply
			inst.logger.Debug("Reply stopped at join", log.ActivityIDKey, a.ID, log.TokenIDKey, tok.id)
			e.metrics.Counter(metrickeys.ReplyStopped, metrics.Tags{metrickeys.WorkflowID: g.WorkflowID}, 1)

			return nil
		}
	}

	// A join of a parallel fork only lets the last branch through. Nested forks may share it.
	for len(tok.frames) > 0 {
		top := tok.frames[len(tok.frames)-1]
		if top.join != a.Index {
			break
		}

		arr := inst.arrivals(top.id)
		arr.arrived++
		if arr.arrived+arr.done < top.width {
			return nil
		}

		delete(inst.joins, top.id)
		tok.frames = tok.frames[:len(tok.frames)-1]
	}

	if inst.executions[a.Index] > 0 || inst.states[a.Index] == core.ActivityStateExpired {
		// Loop re-entry, the decisions taken by the previous iteration no longer hold. Skips
		// decided outside the loop stay.
		body := g.LoopBody(a.Index)
		for d, state := range inst.states {
			if state == core.ActivityStateSkipped && slices.Contains(body, inst.skippedBy[d]) {
				inst.states[d] = core.ActivityStateNotStarted
			}
		}
	}

	if a.Wait != nil && tok.event == nil {
		if err := e.park(inst, a, tok); err != nil {
			e.fail(inst, a.Index, err)
		}

		return nil
	}

	outputs, err := e.execute(ctx, inst, a, tok.event)
	if err != nil {
		e.fail(inst, a.Index, &ExecutorFailure{
			WorkflowID: g.WorkflowID,
			InstanceID: inst.id,
			ActivityID: a.ID,
			Err:        err,
		})

		return nil
	}

	inst.executions[a.Index]++
	inst.states[a.Index] = core.ActivityStateExecuted

	if tok.event != nil {
		outputs["event"] = tok.event.Values()
	}
	inst.vars.SetOutputs(a.ID, outputs)

	next, err := e.follow(inst, a, tok)
	if err != nil {
		e.fail(inst, graph.NoActivity, err)
		return nil
	}

	return next
}

// park registers a wait for the token at a and arms its deadline.
func (e *Engine) park(inst *instance, a *graph.Activity, tok *token) error {
	key, err := e.waitKey(inst, a)
	if err != nil {
		return err
	}

	w := &correlation.PendingWait{
		ID:         uuid.NewString(),
		InstanceID: inst.id,
		WorkflowID: inst.graph.WorkflowID,
		ActivityID: a.ID,
		Activity:   a.Index,
		Key:        correlation.Key{Kind: a.Wait.Event, Value: key},
		Exclusive:  a.Wait.Exclusive,
	}

	if a.Timeout > 0 {
		w.Deadline = e.clock.Now().Add(a.Timeout)
	}

	if err := e.table.Register(w); err != nil {
		return err
	}

	inst.waits[w.ID] = &parkedToken{wait: w, token: tok}
	inst.states[a.Index] = core.ActivityStateWaiting

	if !w.Deadline.IsZero() {
		if err := e.wheel.Schedule(w, w.Deadline); err != nil {
			return fmt.Errorf("scheduling deadline of %s: %w", a.ID, err)
		}
	}

	inst.logger.Debug("Waiting for event",
		log.ActivityIDKey, a.ID,
		log.WaitIDKey, w.ID,
		log.TokenIDKey, tok.id,
		log.EventKindKey, w.Key.Kind,
		log.EventKeyKey, w.Key.Value,
	)
	e.metrics.Counter(metrickeys.WaitRegistered, metrics.Tags{metrickeys.EventKind: string(w.Key.Kind)}, 1)

	return nil
}

func (e *Engine) waitKey(inst *instance, a *graph.Activity) (string, error) {
	if a.Wait.Form != graph.NoActivity {
		form := inst.graph.Activities[a.Wait.Form]

		v, _ := inst.vars.Get(form.ID + ".msgId")
		msgID, _ := v.(string)
		if msgID == "" {
			return "", fmt.Errorf("activity %s waits for form %s: %w", a.ID, a.Wait.FormID, ErrFormMessageMissing)
		}

		return event.FormKey(msgID, a.Wait.FormID), nil
	}

	key, err := a.Wait.Key.RenderString(inst.vars.Activation(inst.graph.ActivityIDs()))
	if err != nil {
		return "", fmt.Errorf("evaluating correlation key of %s: %w", a.ID, err)
	}

	return key, nil
}

// execute runs the executor of a. Panics are converted into errors.
func (e *Engine) execute(ctx context.Context, inst *instance, a *graph.Activity, ev *event.Event) (outputs map[string]any, err error) {
	g := inst.graph

	params, err := a.Params.Render(inst.vars.Activation(g.ActivityIDs()))
	if err != nil {
		return nil, fmt.Errorf("evaluating parameters: %w", err)
	}

	iteration := inst.executions[a.Index] + 1

	scope := internalactivity.NewScope(g.WorkflowID, inst.id, a.ID, a.Kind, iteration, e.logger)
	ctx = internalactivity.WithScope(ctx, scope)

	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("Activity: %s", a.ID), trace.WithAttributes(
		attribute.String(tracing.WorkflowID, g.WorkflowID),
		attribute.String(tracing.InstanceID, inst.id),
		attribute.String(tracing.ActivityID, a.ID),
		attribute.String(tracing.ActivityKind, a.Kind),
		attribute.Int(tracing.ActivityExecution, iteration),
	))
	defer span.End()

	tags := metrics.Tags{metrickeys.ActivityKind: a.Kind}
	timer := metrics.NewTimer(e.metrics, e.clock, metrickeys.ActivityDuration, tags)
	defer timer.Stop()

	defer func() {
		if r := recover(); r != nil {
			err = workflowerrors.NewPanicError(r)
		}

		if err != nil {
			_ = tracing.WithSpanError(span, err)
			e.metrics.Counter(metrickeys.ActivityExecuted, metrics.Tags{metrickeys.ActivityKind: a.Kind, metrickeys.Status: "failed"}, 1)
			return
		}

		e.metrics.Counter(metrickeys.ActivityExecuted, metrics.Tags{metrickeys.ActivityKind: a.Kind, metrickeys.Status: "executed"}, 1)
	}()

	scope.Logger.Debug("Executing activity")

	result, err := a.Executor.Execute(ctx, &activity.Execution{
		WorkflowID: g.WorkflowID,
		InstanceID: inst.id,
		ActivityID: a.ID,
		Kind:       a.Kind,
		Iteration:  iteration,
		Params:     params,
		Variables:  inst.vars,
		Event:      ev,
	})
	if err != nil {
		return nil, err
	}

	outputs = make(map[string]any, len(result)+1)
	for k, v := range result {
		outputs[k] = v
	}

	return outputs, nil
}

// follow takes the outgoing transitions of an executed activity.
func (e *Engine) follow(inst *instance, a *graph.Activity, tok *token) ([]*token, error) {
	g := inst.graph

	if len(a.Outgoing) == 0 {
		return e.finish(inst, tok.frames, tok.stops), nil
	}

	activation := inst.vars.Activation(g.ActivityIDs())

	var taken []*graph.Transition
	switch a.Fork {
	case workflow.ForkExclusive:
		var fallback *graph.Transition
		for _, ti := range a.Outgoing {
			t := g.Transitions[ti]
			if t.Else {
				fallback = t
				continue
			}

			ok, err := e.guard(g, t, activation)
			if err != nil {
				return nil, err
			}

			if ok {
				taken = append(taken, t)
				break
			}
		}

		if len(taken) == 0 && fallback != nil {
			taken = append(taken, fallback)
		}

	default:
		for _, ti := range a.Outgoing {
			t := g.Transitions[ti]

			ok, err := e.guard(g, t, activation)
			if err != nil {
				return nil, err
			}

			if ok {
				taken = append(taken, t)
			}
		}
	}

	e.skipUntaken(inst, a, taken)

	if len(taken) == 0 {
		return e.finish(inst, tok.frames, tok.stops), nil
	}

	frames := make([][]frame, len(taken))
	if a.Fork == workflow.ForkParallel && len(taken) > 1 {
		targets := make([]int, 0, len(taken))
		for _, t := range taken {
			targets = append(targets, t.To)
		}

		pushMerges(g.Merges(a.Index, targets), a.Index, tok.frames, frames)
	} else {
		for i := range frames {
			frames[i] = tok.frames
		}
	}

	next := make([]*token, 0, len(taken))
	for i, t := range taken {
		next = append(next, &token{
			id:     uuid.NewString(),
			at:     t.To,
			frames: frames[i],
			stops:  tok.stops,
		})
	}

	return next, nil
}

func (e *Engine) guard(g *graph.Graph, t *graph.Transition, activation map[string]any) (bool, error) {
	if t.Condition == nil {
		return true, nil
	}

	ok, err := t.Condition.EvalBool(activation)
	if err != nil {
		return false, fmt.Errorf("evaluating condition of transition %s -> %s: %w",
			g.Activities[t.From].ID, g.Activities[t.To].ID, err)
	}

	return ok, nil
}

// skipUntaken marks the activities only reachable through the transitions a did not take. Paths
// leading back through a belong to a later iteration and do not count.
func (e *Engine) skipUntaken(inst *instance, a *graph.Activity, taken []*graph.Transition) {
	g := inst.graph

	var takenTargets, untakenTargets []int
	for _, ti := range a.Outgoing {
		t := g.Transitions[ti]

		isTaken := false
		for _, tt := range taken {
			if tt == t {
				isTaken = true
				break
			}
		}

		if isTaken {
			takenTargets = append(takenTargets, t.To)
		} else {
			untakenTargets = append(untakenTargets, t.To)
		}
	}

	if len(untakenTargets) == 0 {
		return
	}

	inst.skip(exclusiveReach(g, untakenTargets, takenTargets, a.Index), a.Index)
}

// exclusiveReach returns the activities reachable from starts but not from others, both without
// passing through avoid.
func exclusiveReach(g *graph.Graph, starts, others []int, avoid int) []bool {
	marks := g.ReachableAvoiding(starts, avoid)
	if len(others) == 0 {
		return marks
	}

	keep := g.ReachableAvoiding(others, avoid)
	for i := range marks {
		if keep[i] {
			marks[i] = false
		}
	}

	return marks
}

// pushMerges gives every branch of a parallel fork one frame per merge it takes part in, the
// outermost merge first.
func pushMerges(m *graph.Merge, fork int, frames []frame, out [][]frame) {
	if m.Parts == nil {
		out[m.Branch] = frames
		return
	}

	frames = pushFrame(frames, frame{
		id:    uuid.NewString(),
		fork:  fork,
		join:  m.Join,
		width: len(m.Parts),
	})

	for _, p := range m.Parts {
		pushMerges(p, fork, frames, out)
	}
}

// finish ends a token that will not reach the join of its fork. When it was the last pending
// branch of a fork, the join is released or, if no branch reached it, the enclosing fork is told
// the same.
func (e *Engine) finish(inst *instance, frames []frame, stops []int) []*token {
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]

		arr := inst.arrivals(f.id)
		arr.done++
		if arr.arrived+arr.done < f.width {
			return nil
		}

		delete(inst.joins, f.id)

		if arr.arrived > 0 {
			return []*token{{
				id:     uuid.NewString(),
				at:     f.join,
				frames: frames[:i],
				stops:  stops,
			}}
		}
	}

	return nil
}

// expire handles a wait whose deadline elapsed before any event matched it. The activity's
// normal continuation is skipped and the expiration path, if any, is taken.
func (e *Engine) expire(inst *instance, tok *token) []*token {
	g := inst.graph
	a := g.Activities[tok.at]

	var main []int
	for _, ti := range a.Outgoing {
		main = append(main, g.Transitions[ti].To)
	}

	if a.OnExpired == graph.NoActivity {
		inst.states[a.Index] = core.ActivityStateSkipped
		inst.skippedBy[a.Index] = a.Index
		inst.skip(g.ReachableAvoiding(main, a.Index), a.Index)

		return e.finish(inst, tok.frames, tok.stops)
	}

	inst.states[a.Index] = core.ActivityStateExpired
	inst.skip(exclusiveReach(g, main, []int{a.OnExpired}, a.Index), a.Index)

	return []*token{{
		id:     uuid.NewString(),
		at:     a.OnExpired,
		frames: tok.frames,
	}}
}

// fail ends the instance with err. activityIndex, if set, is marked FAILED.
func (e *Engine) fail(inst *instance, activityIndex int, err error) {
	activityID := ""
	if activityIndex != graph.NoActivity {
		inst.states[activityIndex] = core.ActivityStateFailed
		activityID = inst.graph.Activities[activityIndex].ID
	}

	inst.status = core.InstanceStatusFailed
	inst.err = workflowerrors.ForActivity(activityID, err)

	inst.logger.Error("Instance failed", log.ActivityIDKey, activityID, "error", err)

	e.finalize(inst)
}

// finalize releases everything a finished instance holds: waits, timers and its running slot.
func (e *Engine) finalize(inst *instance) {
	for id, pt := range inst.waits {
		e.table.Remove(pt.wait)
		e.wheel.Cancel(pt.wait)
		delete(inst.waits, id)
	}

	for _, w := range e.table.RemoveInstance(inst.id) {
		e.wheel.Cancel(w)
	}

	clear(inst.joins)

	now := e.clock.Now()
	inst.completedAt = &now

	e.mu.Lock()
	delete(e.running, inst.id)
	e.mu.Unlock()

	e.finished.Store(inst.snapshot())

	inst.logger.Debug("Instance finished", log.StatusKey, inst.status, log.DurationKey, now.Sub(inst.createdAt).Milliseconds())
	e.metrics.Counter(metrickeys.InstanceFinished, metrics.Tags{
		metrickeys.WorkflowID: inst.graph.WorkflowID,
		metrickeys.Status:     string(inst.status),
	}, 1)
}

func (e *Engine) persist(ctx context.Context, inst *instance) {
	if e.store == nil {
		return
	}

	if err := e.store.SaveInstance(ctx, inst.snapshot()); err != nil {
		inst.logger.Error("Could not save instance", "error", err)
	}
}
