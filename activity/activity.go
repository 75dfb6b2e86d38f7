// Package activity defines the contract activity executors implement to take part in a workflow.
package activity

import (
	"context"

	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/variables"
)

// Executor runs one kind of activity. The returned outputs are stored under the activity id and
// replace the outputs of a previous execution of the same activity. A returned error fails the
// instance.
type Executor interface {
	Execute(ctx context.Context, ex *Execution) (map[string]any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, ex *Execution) (map[string]any, error)

func (f ExecutorFunc) Execute(ctx context.Context, ex *Execution) (map[string]any, error) {
	return f(ctx, ex)
}

// Execution is everything an executor may read about the activity it runs.
type Execution struct {
	WorkflowID string
	InstanceID string

	ActivityID string
	Kind       string

	// Iteration is 1 for the first execution and grows on every loop re-entry.
	Iteration int

	// Params are the activity parameters with every ${...} template evaluated.
	Params map[string]any

	Variables variables.Reader

	// Event is the event that started the instance or resumed this activity, nil when the
	// activity was reached through a transition.
	Event *event.Event
}

// String returns the named string parameter, "" when absent or not a string.
func (ex *Execution) String(name string) string {
	s, _ := ex.Params[name].(string)
	return s
}

// Bool returns the named boolean parameter. Absent parameters yield def.
func (ex *Execution) Bool(name string, def bool) bool {
	if b, ok := ex.Params[name].(bool); ok {
		return b
	}

	return def
}

// Strings returns a list parameter as strings. A single string is treated as a one element list.
func (ex *Execution) Strings(name string) []string {
	switch v := ex.Params[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		r := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				r = append(r, s)
			}
		}
		return r
	}

	return nil
}
