// Package backend defines where finished and running instance snapshots are kept when the engine
// runs with a store. The engine itself keeps instances in memory; a store only receives copies.
package backend

import (
	"context"
	"errors"

	"github.com/yinan-symphony/symphony-wdk/core"
)

var ErrInstanceNotFound = errors.New("workflow instance not found")

type Store interface {
	// SaveInstance creates or replaces the snapshot of an instance.
	SaveInstance(ctx context.Context, s *core.InstanceSnapshot) error

	// GetInstance returns the latest snapshot of an instance or ErrInstanceNotFound.
	GetInstance(ctx context.Context, instanceID string) (*core.InstanceSnapshot, error)

	// ListInstances returns the snapshots of a workflow's instances, oldest first.
	ListInstances(ctx context.Context, workflowID string) ([]*core.InstanceSnapshot, error)

	// RemoveInstances removes finished instances matching the given options.
	RemoveInstances(ctx context.Context, options ...RemovalOption) error

	Close() error
}
