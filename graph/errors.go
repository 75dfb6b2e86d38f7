package graph

import "fmt"

// ReferenceError is returned when an activity id used somewhere in a definition does not exist.
type ReferenceError struct {
	WorkflowID string

	// ID is the unresolved activity id.
	ID string

	// ReferencedIn names the activity (or trigger) holding the reference.
	ReferencedIn string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("invalid activity in workflow %s: no activity found with id %s referenced in %s",
		e.WorkflowID, e.ID, e.ReferencedIn)
}

// StructuralError is returned for definitions that are well referenced but cannot be executed.
type StructuralError struct {
	WorkflowID string
	Reason     string
	Err        error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid workflow %s: %s: %v", e.WorkflowID, e.Reason, e.Err)
	}

	return fmt.Sprintf("invalid workflow %s: %s", e.WorkflowID, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}
