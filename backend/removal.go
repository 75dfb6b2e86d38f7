package backend

import (
	"time"
)

type RemovalOptions struct {
	// FinishedBefore removes instances completed before the given time. Running instances are
	// never removed.
	FinishedBefore time.Time

	// WorkflowID restricts removal to the instances of one workflow.
	WorkflowID string
}

type RemovalOption func(o *RemovalOptions)

func RemoveFinishedBefore(t time.Time) RemovalOption {
	return func(o *RemovalOptions) {
		o.FinishedBefore = t
	}
}

func RemoveWorkflow(workflowID string) RemovalOption {
	return func(o *RemovalOptions) {
		o.WorkflowID = workflowID
	}
}

func ApplyRemovalOptions(opts ...RemovalOption) RemovalOptions {
	var o RemovalOptions
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Matches reports whether a snapshot is selected for removal.
func (o RemovalOptions) Matches(workflowID string, completedAt *time.Time) bool {
	if completedAt == nil {
		return false
	}

	if o.WorkflowID != "" && o.WorkflowID != workflowID {
		return false
	}

	return o.FinishedBefore.IsZero() || completedAt.Before(o.FinishedBefore)
}
