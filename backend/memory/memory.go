// Package memory is a Store keeping instance snapshots in process memory. Snapshots are stored
// encoded, the same way the database stores keep them.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/core"
)

type memoryStore struct {
	options backend.Options

	mu        sync.RWMutex
	instances map[string][]byte
	workflows map[string]map[string]struct{}
}

var _ backend.Store = (*memoryStore)(nil)

func NewMemoryStore(opts ...backend.BackendOption) *memoryStore {
	return &memoryStore{
		options:   backend.ApplyOptions(opts...),
		instances: make(map[string][]byte),
		workflows: make(map[string]map[string]struct{}),
	}
}

func (s *memoryStore) SaveInstance(ctx context.Context, snapshot *core.InstanceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling instance: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.instances[snapshot.InstanceID] = data

	ids, ok := s.workflows[snapshot.WorkflowID]
	if !ok {
		ids = make(map[string]struct{})
		s.workflows[snapshot.WorkflowID] = ids
	}
	ids[snapshot.InstanceID] = struct{}{}

	return nil
}

func (s *memoryStore) GetInstance(ctx context.Context, instanceID string) (*core.InstanceSnapshot, error) {
	s.mu.RLock()
	data, ok := s.instances[instanceID]
	s.mu.RUnlock()

	if !ok {
		return nil, backend.ErrInstanceNotFound
	}

	return decode(data)
}

func (s *memoryStore) ListInstances(ctx context.Context, workflowID string) ([]*core.InstanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.InstanceSnapshot
	for id := range s.workflows[workflowID] {
		snapshot, err := decode(s.instances[id])
		if err != nil {
			return nil, err
		}

		result = append(result, snapshot)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *memoryStore) RemoveInstances(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, data := range s.instances {
		snapshot, err := decode(data)
		if err != nil {
			return err
		}

		if !o.Matches(snapshot.WorkflowID, snapshot.CompletedAt) {
			continue
		}

		delete(s.instances, id)
		delete(s.workflows[snapshot.WorkflowID], id)
		if len(s.workflows[snapshot.WorkflowID]) == 0 {
			delete(s.workflows, snapshot.WorkflowID)
		}
	}

	s.options.Logger.Debug("Removed finished instances", "remaining", len(s.instances))

	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

func decode(data []byte) (*core.InstanceSnapshot, error) {
	var snapshot core.InstanceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling instance: %w", err)
	}

	return &snapshot, nil
}
