package workflowerrors

import "errors"

// Error is the serializable form of an instance failure. It is kept in instance snapshots and
// survives a round trip through a store, cause chain included.
type Error struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`

	// ActivityID is the activity whose executor failed, empty for failures not tied to an activity.
	ActivityID string `json:"activity_id,omitempty"`

	Cause      *Error `json:"cause,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

func (we *Error) Error() string {
	return we.Message
}

func (we *Error) Unwrap() error {
	if we == nil || we.Cause == nil {
		return nil
	}

	return we.Cause
}

func (we *Error) Stack() string {
	return we.Stacktrace
}

// Root returns the innermost cause.
func (we *Error) Root() *Error {
	e := we
	for e != nil && e.Cause != nil {
		e = e.Cause
	}

	return e
}

var _ error = (*Error)(nil)

// FromError converts err into an Error, capturing its type name, stack trace and cause chain.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	// Already converted errors are returned as is
	if e, ok := err.(*Error); ok {
		return e
	}

	e := &Error{
		Type:    typeName(err),
		Message: err.Error(),
	}

	if st, ok := err.(interface{ Stack() string }); ok {
		e.Stacktrace = st.Stack()
	}

	if cause := errors.Unwrap(err); cause != nil {
		e.Cause = FromError(cause)
	}

	return e
}

// ForActivity is FromError with the failing activity recorded.
func ForActivity(activityID string, err error) *Error {
	e := FromError(err)
	if e == nil {
		return nil
	}

	c := *e
	c.ActivityID = activityID
	return &c
}
