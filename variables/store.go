// Package variables holds the per-instance state read by expressions: workflow variables and the
// outputs of every executed activity.
package variables

import (
	"strings"
	"sync"
)

// VariablesKey is the name under which workflow level variables are exposed.
const VariablesKey = "variables"

// Reader is the read-only view handed to activity executors.
type Reader interface {
	// Outputs returns a copy of the outputs written by the given activity.
	Outputs(activityID string) (map[string]any, bool)

	// Variable returns a workflow variable.
	Variable(name string) (any, bool)

	// Get resolves a dotted path such as "sendForm.msgId" or "variables.owner".
	Get(path string) (any, bool)
}

// Store is owned by exactly one instance. Writes happen while the instance lock is held; the mutex
// only protects readers running in executor goroutines.
type Store struct {
	mu sync.RWMutex

	variables map[string]any
	outputs   map[string]map[string]any
}

var _ Reader = (*Store)(nil)

func New(initial map[string]any) *Store {
	return &Store{
		variables: copyMap(initial),
		outputs:   make(map[string]map[string]any),
	}
}

// SetOutputs replaces the outputs of activityID. Outputs of other activities are untouched.
func (s *Store) SetOutputs(activityID string, outputs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs[activityID] = copyMap(outputs)
}

// SetOutput writes a single output of activityID, keeping its other outputs.
func (s *Store) SetOutput(activityID, name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.outputs[activityID]
	if !ok {
		o = make(map[string]any)
		s.outputs[activityID] = o
	}

	o[name] = value
}

func (s *Store) SetVariable(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.variables[name] = value
}

func (s *Store) Outputs(activityID string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.outputs[activityID]
	if !ok {
		return nil, false
	}

	return copyMap(o), true
}

func (s *Store) Variable(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.variables[name]
	return v, ok
}

func (s *Store) Get(path string) (any, bool) {
	segments := strings.Split(path, ".")

	s.mu.RLock()
	defer s.mu.RUnlock()

	var current any
	if segments[0] == VariablesKey {
		current = s.variables
	} else {
		o, ok := s.outputs[segments[0]]
		if !ok {
			return nil, false
		}
		current = o
	}

	for _, seg := range segments[1:] {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// Activation returns the values expressions are evaluated against. Every id in activityIDs is
// present, activities without outputs map to an empty map.
func (s *Store) Activation(activityIDs []string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := make(map[string]any, len(activityIDs)+1)
	for _, id := range activityIDs {
		if o, ok := s.outputs[id]; ok {
			a[id] = copyMap(o)
		} else {
			a[id] = map[string]any{}
		}
	}

	a[VariablesKey] = copyMap(s.variables)

	return a
}

// Snapshot returns a copy of the whole store: variables under VariablesKey, outputs under their
// activity id.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := make(map[string]any, len(s.outputs)+1)
	for id, o := range s.outputs {
		r[id] = copyMap(o)
	}

	if len(s.variables) > 0 {
		r[VariablesKey] = copyMap(s.variables)
	}

	return r
}

// copyMap copies nested maps and slices so callers never share mutable state with the store.
func copyMap(m map[string]any) map[string]any {
	r := make(map[string]any, len(m))
	for k, v := range m {
		r[k] = copyValue(v)
	}

	return r
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = copyValue(e)
		}
		return c
	default:
		return v
	}
}
