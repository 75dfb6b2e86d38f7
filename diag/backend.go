package diag

import (
	"context"

	"github.com/yinan-symphony/symphony-wdk/core"
)

// Engine is the part of the engine the diagnostics API reads from.
type Engine interface {
	Instance(ctx context.Context, instanceID string) (*core.InstanceSnapshot, error)
	Instances(ctx context.Context, workflowID string) []*core.InstanceSnapshot
	CancelInstance(ctx context.Context, instanceID string) error
}

type InstanceRef struct {
	InstanceID string              `json:"instance_id"`
	WorkflowID string              `json:"workflow_id"`
	Status     core.InstanceStatus `json:"status"`
	OpenWaits  int                 `json:"open_waits"`
}

type InstanceList struct {
	Instances []*InstanceRef `json:"instances"`

	// Total is the number of instances before count was applied.
	Total int `json:"total"`
}
