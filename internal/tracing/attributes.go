package tracing

const (
	WorkflowID = "workflow.id"
	InstanceID = "workflow.instance_id"

	ActivityID        = "activity.id"
	ActivityKind      = "activity.kind"
	ActivityExecution = "activity.execution"

	EventID   = "event.id"
	EventKind = "event.kind"
	EventKey  = "event.key"
)
