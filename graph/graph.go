// Package graph holds compiled workflows. A Graph is immutable once compiled and shared by every
// instance of its workflow.
package graph

import (
	"math"
	"time"

	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/expression"
	"github.com/yinan-symphony/symphony-wdk/workflow"
)

// NoActivity marks an absent activity index.
const NoActivity = -1

type Graph struct {
	WorkflowID string
	Variables  map[string]any

	Activities  []*Activity
	Transitions []*Transition
	Triggers    []*Trigger

	Evaluator *expression.Evaluator

	ids []string
	// dist[a][b] is the number of transitions on the shortest path from a to b, -1 if unreachable.
	dist [][]int
	// loops[a] is the strongly connected component of a when it is on a loop.
	loops [][]int
}

type Activity struct {
	Index int
	ID    string
	Kind  string

	// Executor is resolved from the registry at compile time.
	Executor activity.Executor

	Params *expression.Params

	Wait      *Wait
	Timeout   time.Duration
	OnExpired int

	// Fork is either exclusive or parallel, never auto.
	Fork workflow.ForkMode

	// Outgoing and Incoming are transition indices in declaration order.
	Outgoing []int
	Incoming []int

	// Join is where all branches of a parallel fork converge, NoActivity if they never do. Some
	// branches may meet earlier, see Merges.
	Join int
}

type Wait struct {
	Event event.Kind

	// Key is nil for form waits.
	Key *expression.Template

	// Form is the index of the activity that sent the form, NoActivity for other waits.
	Form   int
	FormID string

	Exclusive bool
}

type Transition struct {
	Index int
	From  int
	To    int

	// Condition is nil for unconditional transitions.
	Condition *expression.Program
	Else      bool
}

// Conditional reports whether taking the transition involves a decision.
func (t *Transition) Conditional() bool {
	return t.Condition != nil || t.Else
}

type Trigger struct {
	Event event.Kind
	// Key is matched exactly, empty accepts any key.
	Key      string
	Activity int
}

// ActivityIDs returns the activity ids in declaration order.
func (g *Graph) ActivityIDs() []string {
	return g.ids
}

// Activity returns the activity with the given id.
func (g *Graph) Activity(id string) (*Activity, bool) {
	for _, a := range g.Activities {
		if a.ID == id {
			return a, true
		}
	}

	return nil, false
}

// Reachable reports whether to can be reached from from following transitions, from itself
// included.
func (g *Graph) Reachable(from, to int) bool {
	return g.dist[from][to] >= 0
}

// Distance returns the length of the shortest transition path between two activities, -1 if
// there is none.
func (g *Graph) Distance(from, to int) int {
	return g.dist[from][to]
}

// LoopBody returns the activities on the same loop as the given activity, itself included, in
// index order. Expiration paths count as loop edges. Nil when the activity is not on a loop.
func (g *Graph) LoopBody(i int) []int {
	return g.loops[i]
}

// ReachableAvoiding reports, per activity, whether it can be reached from one of starts through
// transitions without passing through avoid. Starts other than avoid are reachable.
func (g *Graph) ReachableAvoiding(starts []int, avoid int) []bool {
	seen := make([]bool, len(g.Activities))

	var stack []int
	for _, s := range starts {
		if s != avoid && !seen[s] {
			seen[s] = true
			stack = append(stack, s)
		}
	}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, ti := range g.Activities[cur].Outgoing {
			next := g.Transitions[ti].To
			if next == avoid || seen[next] {
				continue
			}

			seen[next] = true
			stack = append(stack, next)
		}
	}

	return seen
}

// Merge is an activity where branches of a parallel fork converge.
type Merge struct {
	// Join is NoActivity for the root of branches that never all converge.
	Join int

	// Parts arrive at Join, each of them once. Nil for a single branch.
	Parts []*Merge

	// Branch is the position of a single branch in the targets passed to Merges, -1 for merges.
	Branch int
}

// Merges groups the branches of a parallel fork starting at targets by where they converge.
// The closest activity with several incoming transitions reached by two or more groups merges
// them first, the merged group then continues from that activity. Paths through the fork itself
// belong to a later iteration and are ignored.
func (g *Graph) Merges(fork int, targets []int) *Merge {
	type group struct {
		m    *Merge
		dist []int
	}

	groups := make([]group, 0, len(targets))
	for i, t := range targets {
		groups = append(groups, group{
			m:    &Merge{Join: NoActivity, Branch: i},
			dist: g.distancesAvoiding(t, fork),
		})
	}

	for len(groups) > 1 {
		best, bestReached, bestDist := NoActivity, 0, math.MaxInt
		for _, cand := range g.Activities {
			if len(cand.Incoming) < 2 || cand.Index == fork {
				continue
			}

			reached, worst := 0, 0
			for _, gr := range groups {
				if d := gr.dist[cand.Index]; d >= 0 {
					reached++
					worst = max(worst, d)
				}
			}

			if reached < 2 {
				continue
			}

			if worst < bestDist || (worst == bestDist && reached > bestReached) {
				best, bestReached, bestDist = cand.Index, reached, worst
			}
		}

		if best == NoActivity {
			break
		}

		merged := &Merge{Join: best, Branch: -1}
		rest := make([]group, 0, len(groups))
		for _, gr := range groups {
			if gr.dist[best] >= 0 {
				merged.Parts = append(merged.Parts, gr.m)
			} else {
				rest = append(rest, gr)
			}
		}

		groups = append(rest, group{m: merged, dist: g.distancesAvoiding(best, fork)})
	}

	if len(groups) == 1 {
		return groups[0].m
	}

	root := &Merge{Join: NoActivity, Branch: -1}
	for _, gr := range groups {
		root.Parts = append(root.Parts, gr.m)
	}

	return root
}

// distancesAvoiding returns the transition distance from start to every activity without passing
// through avoid, -1 where there is no such path.
func (g *Graph) distancesAvoiding(start, avoid int) []int {
	dist := make([]int, len(g.Activities))
	for i := range dist {
		dist[i] = -1
	}
	dist[start] = 0

	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, ti := range g.Activities[cur].Outgoing {
			next := g.Transitions[ti].To
			if next == avoid || dist[next] >= 0 {
				continue
			}

			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}

	return dist
}
