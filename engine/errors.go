package engine

import (
	"errors"
	"fmt"
)

var (
	ErrEngineClosed       = errors.New("engine closed")
	ErrInstanceNotFound   = errors.New("workflow instance not found")
	ErrInstanceFinished   = errors.New("workflow instance already finished")
	ErrInstanceCanceled   = errors.New("workflow instance canceled")
	ErrWorkflowNotFound   = errors.New("workflow not deployed")
	ErrTooManySteps       = errors.New("too many steps without waiting")
	ErrFormMessageMissing = errors.New("form message id not available")
)

// ExecutorFailure is the error an instance fails with when an activity executor returned an error
// or panicked.
type ExecutorFailure struct {
	WorkflowID string
	InstanceID string
	ActivityID string
	Err        error
}

func (e *ExecutorFailure) Error() string {
	return fmt.Sprintf("activity %s of workflow %s (instance %s) failed: %v", e.ActivityID, e.WorkflowID, e.InstanceID, e.Err)
}

func (e *ExecutorFailure) Unwrap() error {
	return e.Err
}
