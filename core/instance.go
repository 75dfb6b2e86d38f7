package core

import (
	"time"

	"github.com/yinan-symphony/symphony-wdk/internal/workflowerrors"
)

// Error describes why an instance failed.
type Error = workflowerrors.Error

// ActivitySnapshot is the state of one activity at the time the snapshot was taken.
type ActivitySnapshot struct {
	State ActivityState `json:"state"`

	// Executions counts how often the activity ran, loop re-entries included.
	Executions int `json:"executions,omitempty"`
}

// InstanceSnapshot is a point in time copy of a workflow instance. It is what stores persist and
// what inspection calls return; mutating it has no effect on the running instance.
type InstanceSnapshot struct {
	InstanceID string `json:"instance_id"`
	WorkflowID string `json:"workflow_id"`

	Status InstanceStatus `json:"status"`

	Activities map[string]ActivitySnapshot `json:"activities"`

	// Variables holds workflow variables under "variables" and activity outputs under the activity id.
	Variables map[string]any `json:"variables,omitempty"`

	// OpenWaits is the number of waits registered for the instance.
	OpenWaits int `json:"open_waits"`

	Error *Error `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// State returns the state of the given activity, NOT_STARTED for unknown ids.
func (s *InstanceSnapshot) State(activityID string) ActivityState {
	return s.Activities[activityID].State
}

// Executed reports whether the activity ran at least once.
func (s *InstanceSnapshot) Executed(activityID string) bool {
	return s.Activities[activityID].Executions > 0
}
