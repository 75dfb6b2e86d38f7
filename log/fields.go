package log

const (
	NamespaceKey = "workflows"

	WorkflowIDKey = NamespaceKey + ".workflow.id"
	InstanceIDKey = NamespaceKey + ".instance.id"

	ActivityIDKey   = NamespaceKey + ".activity.id"
	ActivityKindKey = NamespaceKey + ".activity.kind"
	ExecutionKey    = NamespaceKey + ".activity.execution"

	TokenIDKey = NamespaceKey + ".token.id"
	WaitIDKey  = NamespaceKey + ".wait.id"

	EventIDKey   = NamespaceKey + ".event.id"
	EventTypeKey = NamespaceKey + ".event.type"
	EventKindKey = NamespaceKey + ".event.kind"
	EventKeyKey  = NamespaceKey + ".event.key"

	StatusKey   = NamespaceKey + ".status"
	DurationKey = NamespaceKey + ".duration_ms"
	CountKey    = NamespaceKey + ".count"
	AttemptKey  = NamespaceKey + ".attempt"

	// DeadlineKey is the time at which a wait expires
	DeadlineKey = NamespaceKey + ".timer.deadline"
)
