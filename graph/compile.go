package graph

import (
	"fmt"
	"slices"

	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/expression"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/workflow"
)

// Compile validates def and builds its graph. Activity kinds are resolved against r. It returns a
// *ReferenceError for dangling activity ids and a *StructuralError for everything else.
func Compile(def *workflow.Definition, r *registry.Registry) (*Graph, error) {
	if def == nil {
		return nil, &StructuralError{Reason: "definition is nil"}
	}

	c := &compiler{
		def: def,
		r:   r,
		g: &Graph{
			WorkflowID: def.ID,
			Variables:  def.Variables,
		},
		index: make(map[string]int, len(def.Activities)),
	}

	if def.ID == "" {
		return nil, c.structural("workflow id must not be empty", nil)
	}

	steps := []func() error{
		c.activities,
		c.evaluator,
		c.activityDetails,
		c.transitions,
		c.triggers,
		c.forks,
		c.reachability,
		c.cycles,
		c.joins,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	return c.g, nil
}

type compiler struct {
	def   *workflow.Definition
	r     *registry.Registry
	g     *Graph
	index map[string]int
}

func (c *compiler) structural(reason string, err error) error {
	return &StructuralError{WorkflowID: c.def.ID, Reason: reason, Err: err}
}

func (c *compiler) resolve(id, referencedIn string) (int, error) {
	i, ok := c.index[id]
	if !ok {
		return NoActivity, &ReferenceError{WorkflowID: c.def.ID, ID: id, ReferencedIn: referencedIn}
	}

	return i, nil
}

func (c *compiler) activities() error {
	if len(c.def.Activities) == 0 {
		return c.structural("workflow has no activities", nil)
	}

	for i, da := range c.def.Activities {
		if da.ID == "" {
			return c.structural(fmt.Sprintf("activity %d has no id", i), nil)
		}

		if !expression.ValidIdentifier(da.ID) {
			return c.structural(fmt.Sprintf("activity id %q is not a valid identifier", da.ID), nil)
		}

		if _, ok := c.index[da.ID]; ok {
			return c.structural(fmt.Sprintf("duplicate activity id %s", da.ID), nil)
		}

		kind := da.Kind
		if kind == "" && da.Wait != nil {
			kind = activity.KindReceive
		}

		if kind == "" {
			return c.structural(fmt.Sprintf("activity %s has no kind", da.ID), nil)
		}

		executor, err := c.r.GetActivity(kind)
		if err != nil {
			return c.structural(fmt.Sprintf("activity %s has unknown kind %s", da.ID, kind), err)
		}

		c.index[da.ID] = i
		c.g.ids = append(c.g.ids, da.ID)
		c.g.Activities = append(c.g.Activities, &Activity{
			Index:     i,
			ID:        da.ID,
			Kind:      kind,
			Executor:  executor,
			OnExpired: NoActivity,
			Join:      NoActivity,
		})
	}

	return nil
}

func (c *compiler) evaluator() error {
	e, err := expression.New(c.g.ids)
	if err != nil {
		return c.structural("creating expression evaluator", err)
	}

	c.g.Evaluator = e
	return nil
}

func (c *compiler) activityDetails() error {
	for i, da := range c.def.Activities {
		a := c.g.Activities[i]

		params, err := c.g.Evaluator.CompileParams(da.Params)
		if err != nil {
			return c.structural(fmt.Sprintf("activity %s", da.ID), err)
		}
		a.Params = params

		switch da.Fork {
		case workflow.ForkAuto, workflow.ForkExclusive, workflow.ForkParallel:
			a.Fork = da.Fork
		default:
			return c.structural(fmt.Sprintf("activity %s has invalid fork mode %q", da.ID, da.Fork), nil)
		}

		if da.Wait != nil {
			w, err := c.wait(da)
			if err != nil {
				return err
			}
			a.Wait = w
		}

		if da.Timeout < 0 {
			return c.structural(fmt.Sprintf("activity %s has a negative timeout", da.ID), nil)
		}

		if da.Timeout > 0 && da.Wait == nil {
			return c.structural(fmt.Sprintf("activity %s has a timeout but does not wait for an event", da.ID), nil)
		}
		a.Timeout = da.Timeout

		if da.OnExpired != "" {
			if da.Timeout == 0 {
				return c.structural(fmt.Sprintf("activity %s has an expiration path but no timeout", da.ID), nil)
			}

			target, err := c.resolve(da.OnExpired, da.ID)
			if err != nil {
				return err
			}
			a.OnExpired = target
		}
	}

	return nil
}

func (c *compiler) wait(da workflow.Activity) (*Wait, error) {
	dw := da.Wait
	w := &Wait{
		Event:     dw.Event,
		Form:      NoActivity,
		FormID:    dw.FormID,
		Exclusive: dw.Exclusive,
	}

	if dw.FormID != "" {
		if w.Event == "" {
			w.Event = event.KindFormReplied
		}

		if w.Event != event.KindFormReplied {
			return nil, c.structural(fmt.Sprintf("activity %s waits for a form but on %s events", da.ID, w.Event), nil)
		}

		if dw.Key != "" {
			return nil, c.structural(fmt.Sprintf("activity %s sets both a form id and a key", da.ID), nil)
		}

		form, err := c.resolve(dw.FormID, da.ID)
		if err != nil {
			return nil, err
		}
		w.Form = form

		return w, nil
	}

	if !event.Known(w.Event) {
		return nil, c.structural(fmt.Sprintf("activity %s waits for unknown event %q", da.ID, w.Event), nil)
	}

	key, err := c.g.Evaluator.CompileTemplate(dw.Key)
	if err != nil {
		return nil, c.structural(fmt.Sprintf("activity %s has an invalid correlation key", da.ID), err)
	}
	w.Key = key

	return w, nil
}

func (c *compiler) transitions() error {
	for i, dt := range c.def.Transitions {
		to, err := c.resolve(dt.To, dt.From)
		if err != nil {
			return err
		}

		from, err := c.resolve(dt.From, dt.To)
		if err != nil {
			return err
		}

		t := &Transition{
			Index: i,
			From:  from,
			To:    to,
			Else:  dt.Else,
		}

		if dt.If != "" {
			if dt.Else {
				return c.structural(fmt.Sprintf("transition %s -> %s has both a condition and else", dt.From, dt.To), nil)
			}

			cond, err := c.g.Evaluator.CompileCondition(dt.If)
			if err != nil {
				return c.structural(fmt.Sprintf("transition %s -> %s has an invalid condition", dt.From, dt.To), err)
			}
			t.Condition = cond
		}

		c.g.Transitions = append(c.g.Transitions, t)
		c.g.Activities[from].Outgoing = append(c.g.Activities[from].Outgoing, i)
		c.g.Activities[to].Incoming = append(c.g.Activities[to].Incoming, i)
	}

	return nil
}

func (c *compiler) triggers() error {
	if len(c.def.Triggers) == 0 {
		return c.structural("workflow has no trigger", nil)
	}

	for i, dt := range c.def.Triggers {
		name := fmt.Sprintf("trigger %d", i)

		if dt.Activity == "" {
			return c.structural(fmt.Sprintf("%s has no entry activity", name), nil)
		}

		entry, err := c.resolve(dt.Activity, name)
		if err != nil {
			return err
		}

		if !event.Known(dt.Event) {
			return c.structural(fmt.Sprintf("%s listens to unknown event %q", name, dt.Event), nil)
		}

		c.g.Triggers = append(c.g.Triggers, &Trigger{
			Event:    dt.Event,
			Key:      dt.Key,
			Activity: entry,
		})
	}

	return nil
}

func (c *compiler) forks() error {
	for _, a := range c.g.Activities {
		elses := 0
		conditional := false

		for _, ti := range a.Outgoing {
			t := c.g.Transitions[ti]
			if t.Else {
				elses++
			}
			if t.Conditional() {
				conditional = true
			}
		}

		if a.Fork == workflow.ForkAuto {
			if conditional {
				a.Fork = workflow.ForkExclusive
			} else {
				a.Fork = workflow.ForkParallel
			}
		}

		if elses > 1 {
			return c.structural(fmt.Sprintf("activity %s has more than one else branch", a.ID), nil)
		}

		if elses > 0 && a.Fork == workflow.ForkParallel {
			return c.structural(fmt.Sprintf("parallel activity %s has an else branch", a.ID), nil)
		}
	}

	n := len(c.g.Activities)
	c.g.dist = make([][]int, n)
	for i := range c.g.Activities {
		c.g.dist[i] = c.bfs(i)
	}

	return nil
}

// bfs returns the transition distance from start to every activity.
func (c *compiler) bfs(start int) []int {
	dist := make([]int, len(c.g.Activities))
	for i := range dist {
		dist[i] = -1
	}
	dist[start] = 0

	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, ti := range c.g.Activities[cur].Outgoing {
			next := c.g.Transitions[ti].To
			if dist[next] < 0 {
				dist[next] = dist[cur] + 1
				queue = append(queue, next)
			}
		}
	}

	return dist
}

// reachability checks every activity can be reached from a trigger through transitions and
// expiration paths.
func (c *compiler) reachability() error {
	seen := make([]bool, len(c.g.Activities))

	var stack []int
	for _, t := range c.g.Triggers {
		if !seen[t.Activity] {
			seen[t.Activity] = true
			stack = append(stack, t.Activity)
		}
	}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range c.successors(cur) {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}

	for i, ok := range seen {
		if !ok {
			return c.structural(fmt.Sprintf("activity %s is not reachable from any trigger", c.g.Activities[i].ID), nil)
		}
	}

	return nil
}

func (c *compiler) successors(i int) []int {
	a := c.g.Activities[i]

	r := make([]int, 0, len(a.Outgoing)+1)
	for _, ti := range a.Outgoing {
		r = append(r, c.g.Transitions[ti].To)
	}

	if a.OnExpired != NoActivity {
		r = append(r, a.OnExpired)
	}

	return r
}

// cycles rejects strongly connected components without a decision point: a conditional
// transition leaving one of its activities or an expiration path.
func (c *compiler) cycles() error {
	c.g.loops = make([][]int, len(c.g.Activities))

	for _, scc := range c.stronglyConnected() {
		if len(scc) == 1 && !c.selfLoop(scc[0]) {
			continue
		}

		body := slices.Clone(scc)
		slices.Sort(body)
		for _, i := range body {
			c.g.loops[i] = body
		}

		decides := false
		for _, i := range scc {
			a := c.g.Activities[i]
			if a.OnExpired != NoActivity {
				decides = true
			}

			for _, ti := range a.Outgoing {
				if c.g.Transitions[ti].Conditional() {
					decides = true
				}
			}
		}

		if !decides {
			ids := make([]string, len(scc))
			for k, i := range scc {
				ids[k] = c.g.Activities[i].ID
			}

			return c.structural(fmt.Sprintf("loop through %v has no condition to leave it", ids), nil)
		}
	}

	return nil
}

func (c *compiler) selfLoop(i int) bool {
	for _, next := range c.successors(i) {
		if next == i {
			return true
		}
	}

	return false
}

// stronglyConnected is Tarjan's algorithm over transitions and expiration paths.
func (c *compiler) stronglyConnected() [][]int {
	n := len(c.g.Activities)

	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var (
		counter int
		stack   []int
		result  [][]int
	)

	var visit func(v int)
	visit = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range c.successors(v) {
			if index[w] < 0 {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			result = append(result, scc)
		}
	}

	for v := 0; v < n; v++ {
		if index[v] < 0 {
			visit(v)
		}
	}

	return result
}

// joins finds, for every parallel fork, the activity where all of its branches converge.
func (c *compiler) joins() error {
	for _, a := range c.g.Activities {
		if a.Fork != workflow.ForkParallel || len(a.Outgoing) < 2 {
			continue
		}

		targets := make([]int, 0, len(a.Outgoing))
		for _, ti := range a.Outgoing {
			targets = append(targets, c.g.Transitions[ti].To)
		}

		a.Join = c.g.Merges(a.Index, targets).Join
	}

	return nil
}
