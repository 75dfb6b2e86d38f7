// Package activity carries the identity of the activity being executed through its context.
package activity

import (
	"context"
	"log/slog"

	"github.com/yinan-symphony/symphony-wdk/log"
)

// Scope identifies one execution of an activity.
type Scope struct {
	WorkflowID string
	InstanceID string
	ActivityID string
	Kind       string
	Iteration  int

	// Logger has the identifying fields above set.
	Logger *slog.Logger
}

func NewScope(workflowID, instanceID, activityID, kind string, iteration int, logger *slog.Logger) *Scope {
	return &Scope{
		WorkflowID: workflowID,
		InstanceID: instanceID,
		ActivityID: activityID,
		Kind:       kind,
		Iteration:  iteration,
		Logger: logger.With(
			log.WorkflowIDKey, workflowID,
			log.InstanceIDKey, instanceID,
			log.ActivityIDKey, activityID,
			log.ActivityKindKey, kind,
			log.ExecutionKey, iteration,
		),
	}
}

type scopeKey struct{}

func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}
