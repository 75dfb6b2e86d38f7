// Package workflow contains the raw workflow definition tree, as produced by a definition parser
// and consumed by the graph compiler.
package workflow

import (
	"time"

	"github.com/yinan-symphony/symphony-wdk/event"
)

// Definition is a parsed, not yet validated workflow.
type Definition struct {
	ID string

	// Variables are exposed to expressions as variables.<name>.
	Variables map[string]any

	Activities  []Activity
	Transitions []Transition
	Triggers    []Trigger
}

// ForkMode decides how the outgoing transitions of an activity are taken.
type ForkMode string

const (
	// ForkAuto is exclusive when any outgoing transition has a condition or is an else branch, and
	// parallel otherwise.
	ForkAuto      = ForkMode("")
	ForkExclusive = ForkMode("exclusive")
	ForkParallel  = ForkMode("parallel")
)

type Activity struct {
	ID   string
	Kind string

	// Params may contain ${...} templates, evaluated right before execution.
	Params map[string]any

	// Wait makes the activity wait for an event each time it is reached through a transition.
	Wait *Wait

	// Timeout bounds the wait. Zero waits forever.
	Timeout time.Duration

	// OnExpired is the activity taken when the wait times out.
	OnExpired string

	Fork ForkMode
}

type Wait struct {
	Event event.Kind

	// Key is the correlation key, it may contain ${...} templates.
	Key string

	// FormID waits for a reply to the form sent by the activity with this id. The key is then
	// built from that activity's msgId output and the form id.
	FormID string

	// Exclusive waits are consumed by the first matching event. Other waits resume once per
	// matching event until they expire.
	Exclusive bool
}

type Transition struct {
	From string
	To   string

	// If is a condition, optionally wrapped in ${}.
	If string

	// Else marks the branch taken when no conditional sibling matches.
	Else bool
}

// Trigger starts a new instance at Activity when an event of kind Event with correlation key Key
// arrives. An empty Key accepts any key.
type Trigger struct {
	Event    event.Kind
	Key      string
	Activity string
}
