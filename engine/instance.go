package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/graph"
	"github.com/yinan-symphony/symphony-wdk/internal/correlation"
	"github.com/yinan-symphony/symphony-wdk/internal/workflowerrors"
	"github.com/yinan-symphony/symphony-wdk/log"
	"github.com/yinan-symphony/symphony-wdk/variables"
)

// instance is a running workflow. Every field is guarded by mu, which is held for a whole advance.
type instance struct {
	mu sync.Mutex

	id    string
	graph *graph.Graph

	status     core.InstanceStatus
	states     []core.ActivityState
	executions []int
	vars       *variables.Store

	// skippedBy records, for SKIPPED activities, the activity that decided to skip them.
	skippedBy []int

	// waits holds the tokens parked on an open wait, by wait id.
	waits map[string]*parkedToken

	// joins counts, per parallel fork frame, the branches that reached the join and the branches
	// that ended before reaching it.
	joins map[string]*arrivals

	err *workflowerrors.Error

	createdAt   time.Time
	completedAt *time.Time

	logger *slog.Logger
}

// frame is pushed on the tokens of every branch of a parallel fork.
type frame struct {
	id    string
	fork  int
	join  int
	width int
}

type token struct {
	id     string
	at     int
	frames []frame

	// stops are joins this token ends at without arriving. Later replies to a non exclusive wait
	// inside a parallel fork carry the joins of the fork instead of its frames.
	stops []int

	// event started the instance or resumed the wait at this token's activity. An activity
	// reached with an event runs instead of waiting.
	event *event.Event
}

type parkedToken struct {
	wait  *correlation.PendingWait
	token *token

	// resumed counts the events that resumed a non exclusive wait. closed is set when its
	// deadline elapsed while some accepted events had not resumed yet.
	resumed int
	closed  bool
}

type arrivals struct {
	arrived int
	done    int
}

func newInstance(id string, g *graph.Graph, now time.Time, logger *slog.Logger) *instance {
	return &instance{
		id:         id,
		graph:      g,
		status:     core.InstanceStatusRunning,
		states:     make([]core.ActivityState, len(g.Activities)),
		executions: make([]int, len(g.Activities)),
		skippedBy:  make([]int, len(g.Activities)),
		vars:       variables.New(g.Variables),
		waits:      make(map[string]*parkedToken),
		joins:      make(map[string]*arrivals),
		createdAt:  now,
		logger: logger.With(
			log.WorkflowIDKey, g.WorkflowID,
			log.InstanceIDKey, id,
		),
	}
}

func (i *instance) arrivals(frameID string) *arrivals {
	a, ok := i.joins[frameID]
	if !ok {
		a = &arrivals{}
		i.joins[frameID] = a
	}

	return a
}

// skip marks activities SKIPPED unless they already started. by is the activity whose decision
// ruled them out.
func (i *instance) skip(marks []bool, by int) {
	for idx, m := range marks {
		if m && i.states[idx] == core.ActivityStateNotStarted {
			i.states[idx] = core.ActivityStateSkipped
			i.skippedBy[idx] = by
		}
	}
}

func (i *instance) snapshot() *core.InstanceSnapshot {
	activities := make(map[string]core.ActivitySnapshot, len(i.states))
	for idx, a := range i.graph.Activities {
		activities[a.ID] = core.ActivitySnapshot{
			State:      i.states[idx],
			Executions: i.executions[idx],
		}
	}

	s := &core.InstanceSnapshot{
		InstanceID: i.id,
		WorkflowID: i.graph.WorkflowID,
		Status:     i.status,
		Activities: activities,
		Variables:  i.vars.Snapshot(),
		OpenWaits:  len(i.waits),
		Error:      i.err,
		CreatedAt:  i.createdAt,
	}

	if i.completedAt != nil {
		t := *i.completedAt
		s.CompletedAt = &t
	}

	return s
}

func pushFrame(frames []frame, f frame) []frame {
	r := make([]frame, len(frames), len(frames)+1)
	copy(r, frames)

	return append(r, f)
}
