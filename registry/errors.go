package registry

import "fmt"

// ErrInvalidActivity is returned when a kind is registered without a name or an executor.
type ErrInvalidActivity struct {
	Kind   string
	Reason string
}

func (e *ErrInvalidActivity) Error() string {
	if e.Kind == "" {
		return "invalid activity: " + e.Reason
	}

	return fmt.Sprintf("invalid activity kind %q: %s", e.Kind, e.Reason)
}

type ErrActivityAlreadyRegistered struct {
	Kind string
}

func (e *ErrActivityAlreadyRegistered) Error() string {
	return fmt.Sprintf("activity kind %q already registered", e.Kind)
}

// ErrUnknownKind is returned for kinds nothing was registered for.
type ErrUnknownKind struct {
	Kind string
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("activity kind %q not registered", e.Kind)
}
