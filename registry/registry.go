package registry

import (
	"sort"
	"sync"

	"github.com/yinan-symphony/symphony-wdk/activity"
)

// Registry maps activity kinds to their executors. Definitions resolve their kinds against it once,
// when they are compiled.
type Registry struct {
	sync.Mutex

	activityMap map[string]activity.Executor
}

// New creates a new registry instance with the built-in receive kind registered.
func New() *Registry {
	return &Registry{
		activityMap: map[string]activity.Executor{
			activity.KindReceive: activity.Receive,
		},
	}
}

type registerConfig struct {
	Replace bool
}

func (r *Registry) RegisterActivity(kind string, executor activity.Executor, opts ...RegisterOption) error {
	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if kind == "" {
		return &ErrInvalidActivity{Reason: "kind must not be empty"}
	}

	if executor == nil {
		return &ErrInvalidActivity{Kind: kind, Reason: "executor is nil"}
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.activityMap[kind]; ok && !cfg.Replace {
		return &ErrActivityAlreadyRegistered{Kind: kind}
	}
	r.activityMap[kind] = executor

	return nil
}

func (r *Registry) RegisterActivityFunc(kind string, fn activity.ExecutorFunc, opts ...RegisterOption) error {
	if fn == nil {
		return &ErrInvalidActivity{Kind: kind, Reason: "executor is nil"}
	}

	return r.RegisterActivity(kind, fn, opts...)
}

func (r *Registry) GetActivity(kind string) (activity.Executor, error) {
	r.Lock()
	defer r.Unlock()

	if executor, ok := r.activityMap[kind]; ok {
		return executor, nil
	}

	return nil, &ErrUnknownKind{Kind: kind}
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.Lock()
	defer r.Unlock()

	kinds := make([]string, 0, len(r.activityMap))
	for k := range r.activityMap {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}
