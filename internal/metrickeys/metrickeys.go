package metrickeys

const (
	Prefix = "workflows."

	// Definitions
	WorkflowDeployed   = Prefix + "workflow.deployed"
	WorkflowUndeployed = Prefix + "workflow.undeployed"

	// Instances
	InstanceCreated  = Prefix + "instance.created"
	InstanceFinished = Prefix + "instance.finished"

	InstanceRetentionSize     = Prefix + "instance.retention.size"
	InstanceRetentionEviction = Prefix + "instance.retention.eviction"

	// Activities
	ActivityExecuted = Prefix + "activity.executed"
	ActivityDuration = Prefix + "activity.duration"

	// Events
	EventReceived   = Prefix + "event.received"
	EventMatched    = Prefix + "event.matched"
	EventDropped    = Prefix + "event.dropped"
	EventDuplicated = Prefix + "event.duplicated"

	// Waits and timers
	WaitRegistered = Prefix + "wait.registered"
	ReplyStopped   = Prefix + "wait.reply_stopped"
	TimerFired     = Prefix + "timer.fired"
	TimerRaceLost  = Prefix + "timer.race_lost"

	// Stores
	StoreDuration = Prefix + "store.duration"
	StoreError    = Prefix + "store.error"
)

// Tag names
const (
	WorkflowID = "workflow"

	ActivityKind = "kind"

	EventKind = "event"

	// Final status of an instance or activity
	Status = "status"

	// Reason for dropping an event or evicting an instance
	Reason = "reason"

	// Store method
	Operation = "op"
)
