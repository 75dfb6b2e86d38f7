package activity

import (
	"context"
	"log/slog"

	"github.com/yinan-symphony/symphony-wdk/internal/activity"
)

// Logger returns a logger with the workflow, instance and activity being executed set as default
// fields. Outside of an execution it returns slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	if s, ok := activity.ScopeFrom(ctx); ok {
		return s.Logger
	}

	return slog.Default()
}
