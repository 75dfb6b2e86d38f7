// Package tester runs a single workflow definition on an engine driven by a mock clock. Activity
// kinds are mocked with testify, events are sent directly and time only moves when the test
// advances it.
package tester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/mock"
	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/workflow"
)

var ErrNotDeployed = errors.New("workflow not deployed")

// Execution records one call of a mocked activity.
type Execution struct {
	ActivityID string
	Kind       string
	Iteration  int
	Params     map[string]any
	Event      *event.Event
}

type WorkflowTester struct {
	options *options

	def *workflow.Definition

	clock    *clock.Mock
	registry *registry.Registry
	engine   *engine.Engine

	ma      mock.Mock
	mocks   map[string]bool
	mocksMu sync.Mutex

	mu         sync.Mutex
	executions []Execution
	deployed   bool
}

func NewWorkflowTester(def *workflow.Definition, opts ...WorkflowTesterOption) *WorkflowTester {
	options := &options{
		TestTimeout: 5 * time.Second,
	}

	for _, o := range opts {
		o(options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &WorkflowTester{
		options:  options,
		def:      def,
		clock:    clock.NewMock(),
		registry: registry.New(),
		mocks:    make(map[string]bool),
	}
}

// Registry gives access to the registry, e.g. to register real executors next to mocked ones.
func (wt *WorkflowTester) Registry() *registry.Registry {
	return wt.registry
}

func (wt *WorkflowTester) Now() time.Time {
	return wt.clock.Now()
}

// OnActivity mocks an activity kind. Without arguments the call matches every activity of that
// kind, otherwise pass the activity id to match. Set the outputs and error with Return.
func (wt *WorkflowTester) OnActivity(kind string, args ...any) *mock.Call {
	if len(args) == 0 {
		args = []any{mock.Anything}
	}

	wt.mocksMu.Lock()
	if !wt.mocks[kind] {
		// The mock replaces built-in kinds like receive
		if err := wt.registry.RegisterActivityFunc(kind, wt.mocked(kind), registry.WithReplace()); err != nil {
			wt.mocksMu.Unlock()
			panic(fmt.Sprintf("could not register mock for activity kind %q: %v", kind, err))
		}

		wt.mocks[kind] = true
	}
	wt.mocksMu.Unlock()

	return wt.ma.On(kind, args...)
}

func (wt *WorkflowTester) mocked(kind string) activity.ExecutorFunc {
	return func(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
		wt.mu.Lock()
		wt.executions = append(wt.executions, Execution{
			ActivityID: ex.ActivityID,
			Kind:       kind,
			Iteration:  ex.Iteration,
			Params:     ex.Params,
			Event:      ex.Event,
		})
		wt.mu.Unlock()

		ret := wt.ma.MethodCalled(kind, ex.ActivityID)

		var outputs map[string]any
		if len(ret) > 0 && ret.Get(0) != nil {
			outputs = ret.Get(0).(map[string]any)
		}

		var err error
		if len(ret) > 1 {
			err = ret.Error(1)
		}

		return outputs, err
	}
}

// Deploy compiles the definition and starts the engine. Mock every kind with OnActivity first.
func (wt *WorkflowTester) Deploy() error {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.deployed {
		return nil
	}

	opts := append([]engine.Option{engine.WithLogger(wt.options.Logger)}, wt.options.EngineOptions...)
	opts = append(opts, engine.WithClock(wt.clock))

	e := engine.New(wt.registry, opts...)
	if err := e.Deploy(context.Background(), wt.def); err != nil {
		_ = e.Close()
		return err
	}

	wt.engine = e
	wt.deployed = true

	return nil
}

func (wt *WorkflowTester) Engine() *engine.Engine {
	return wt.engine
}

// SendEvent delivers an event to the engine and returns once the engine has handled it.
func (wt *WorkflowTester) SendEvent(ev *event.Event) error {
	if wt.engine == nil {
		return ErrNotDeployed
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = wt.clock.Now()
	}

	return wt.engine.OnEvent(context.Background(), ev)
}

// Advance moves the mock clock forward. Timers fire asynchronously, use the Wait helpers to
// observe their effect.
func (wt *WorkflowTester) Advance(d time.Duration) {
	wt.clock.Add(d)
}

// Instances returns the instances of the workflow, oldest first.
func (wt *WorkflowTester) Instances() []*core.InstanceSnapshot {
	if wt.engine == nil {
		return nil
	}

	return wt.engine.Instances(context.Background(), wt.def.ID)
}

// Instance returns the only instance of the workflow, nil when there is none or more than one.
func (wt *WorkflowTester) Instance() *core.InstanceSnapshot {
	instances := wt.Instances()
	if len(instances) != 1 {
		return nil
	}

	return instances[0]
}

// WaitFor polls the single instance until cond holds or the test timeout passes.
func (wt *WorkflowTester) WaitFor(cond func(s *core.InstanceSnapshot) bool) (*core.InstanceSnapshot, error) {
	deadline := time.Now().Add(wt.options.TestTimeout)

	for {
		if s := wt.Instance(); s != nil && cond(s) {
			return s, nil
		}

		if time.Now().After(deadline) {
			return wt.Instance(), fmt.Errorf("condition not met within %v", wt.options.TestTimeout)
		}

		time.Sleep(time.Millisecond)
	}
}

func (wt *WorkflowTester) WaitForStatus(status core.InstanceStatus) (*core.InstanceSnapshot, error) {
	return wt.WaitFor(func(s *core.InstanceSnapshot) bool {
		return s.Status == status
	})
}

// Executions returns the mocked activity executions in the order they ran.
func (wt *WorkflowTester) Executions() []Execution {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	return append([]Execution(nil), wt.executions...)
}

// Executed returns the ids of the mocked activities that ran, in order.
func (wt *WorkflowTester) Executed() []string {
	var ids []string
	for _, e := range wt.Executions() {
		ids = append(ids, e.ActivityID)
	}

	return ids
}

func (wt *WorkflowTester) AssertExpectations(t *testing.T) {
	wt.ma.AssertExpectations(t)
}

func (wt *WorkflowTester) Close() error {
	if wt.engine == nil {
		return nil
	}

	return wt.engine.Close()
}
