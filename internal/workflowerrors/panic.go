package workflowerrors

import "fmt"

// PanicError is returned in place of a panic raised by an activity executor.
type PanicError struct {
	message    string
	stacktrace string
}

func (pe *PanicError) Error() string {
	return pe.message
}

func (pe *PanicError) Stack() string {
	return pe.stacktrace
}

// NewPanicError captures the stack of its caller. Call it from the deferred function that
// recovered r.
func NewPanicError(r any) *PanicError {
	return &PanicError{
		message:    fmt.Sprintf("panic: %v", r),
		stacktrace: stack(1),
	}
}
