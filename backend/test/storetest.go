// Package test holds the conformance suite every backend.Store implementation runs.
package test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/core"
)

func snapshot(workflowID string, createdAt time.Time, completedAt *time.Time) *core.InstanceSnapshot {
	status := core.InstanceStatusRunning
	if completedAt != nil {
		status = core.InstanceStatusCompleted
	}

	return &core.InstanceSnapshot{
		InstanceID: uuid.NewString(),
		WorkflowID: workflowID,
		Status:     status,
		Activities: map[string]core.ActivitySnapshot{
			"a": {State: core.ActivityStateExecuted, Executions: 1},
			"b": {State: core.ActivityStateWaiting},
		},
		Variables: map[string]any{
			"variables": map[string]any{"owner": "alice"},
			"a":         map[string]any{"msgId": "m1"},
		},
		OpenWaits:   1,
		CreatedAt:   createdAt.UTC().Truncate(time.Millisecond),
		CompletedAt: completedAt,
	}
}

func ptr(t time.Time) *time.Time {
	t = t.UTC().Truncate(time.Millisecond)
	return &t
}

func StoreTest(t *testing.T, setup func(t *testing.T) backend.Store, teardown func(s backend.Store)) {
	tests := []struct {
		name string
		f    func(t *testing.T, ctx context.Context, s backend.Store)
	}{
		{
			name: "GetInstance_NotFound",
			f: func(t *testing.T, ctx context.Context, s backend.Store) {
				_, err := s.GetInstance(ctx, uuid.NewString())
				require.ErrorIs(t, err, backend.ErrInstanceNotFound)
			},
		},
		{
			name: "SaveInstance_RoundTrips",
			f: func(t *testing.T, ctx context.Context, s backend.Store) {
				want := snapshot("wf", time.Now(), nil)
				require.NoError(t, s.SaveInstance(ctx, want))

				got, err := s.GetInstance(ctx, want.InstanceID)
				require.NoError(t, err)
				require.Equal(t, want.InstanceID, got.InstanceID)
				require.Equal(t, want.WorkflowID, got.WorkflowID)
				require.Equal(t, core.InstanceStatusRunning, got.Status)
				require.Equal(t, core.ActivityStateWaiting, got.State("b"))
				require.True(t, got.Executed("a"))
				require.Equal(t, 1, got.OpenWaits)
				require.Equal(t, "m1", got.Variables["a"].(map[string]any)["msgId"])
				require.True(t, want.CreatedAt.Equal(got.CreatedAt))
				require.Nil(t, got.CompletedAt)
			},
		},
		{
			name: "SaveInstance_Replaces",
			f: func(t *testing.T, ctx context.Context, s backend.Store) {
				sn := snapshot("wf", time.Now(), nil)
				require.NoError(t, s.SaveInstance(ctx, sn))

				sn.Status = core.InstanceStatusFailed
				sn.OpenWaits = 0
				sn.CompletedAt = ptr(time.Now())
				sn.Error = &core.Error{Type: "ExecutorFailure", Message: "boom"}
				require.NoError(t, s.SaveInstance(ctx, sn))

				got, err := s.GetInstance(ctx, sn.InstanceID)
				require.NoError(t, err)
				require.Equal(t, core.InstanceStatusFailed, got.Status)
				require.Zero(t, got.OpenWaits)
				require.NotNil(t, got.CompletedAt)
				require.NotNil(t, got.Error)
				require.Equal(t, "boom", got.Error.Message)

				list, err := s.ListInstances(ctx, "wf")
				require.NoError(t, err)
				require.Len(t, list, 1)
			},
		},
		{
			name: "ListInstances_OldestFirst",
			f: func(t *testing.T, ctx context.Context, s backend.Store) {
				workflowID := "wf-" + uuid.NewString()
				now := time.Now()

				second := snapshot(workflowID, now, nil)
				first := snapshot(workflowID, now.Add(-time.Minute), nil)
				other := snapshot("other-"+uuid.NewString(), now, nil)

				require.NoError(t, s.SaveInstance(ctx, second))
				require.NoError(t, s.SaveInstance(ctx, first))
				require.NoError(t, s.SaveInstance(ctx, other))

				list, err := s.ListInstances(ctx, workflowID)
				require.NoError(t, err)
				require.Len(t, list, 2)
				require.Equal(t, first.InstanceID, list[0].InstanceID)
				require.Equal(t, second.InstanceID, list[1].InstanceID)
			},
		},
		{
			name: "ListInstances_UnknownWorkflow",
			f: func(t *testing.T, ctx context.Context, s backend.Store) {
				list, err := s.ListInstances(ctx, uuid.NewString())
				require.NoError(t, err)
				require.Empty(t, list)
			},
		},
		{
			name: "RemoveInstances_FinishedBefore",
			f: func(t *testing.T, ctx context.Context, s backend.Store) {
				workflowID := "wf-" + uuid.NewString()
				now := time.Now()

				old := snapshot(workflowID, now.Add(-2*time.Hour), ptr(now.Add(-time.Hour)))
				recent := snapshot(workflowID, now.Add(-time.Minute), ptr(now))
				running := snapshot(workflowID, now.Add(-3*time.Hour), nil)

				for _, sn := range []*core.InstanceSnapshot{old, recent, running} {
					require.NoError(t, s.SaveInstance(ctx, sn))
				}

				require.NoError(t, s.RemoveInstances(ctx, backend.RemoveFinishedBefore(now.Add(-30*time.Minute))))

				_, err := s.GetInstance(ctx, old.InstanceID)
				require.ErrorIs(t, err, backend.ErrInstanceNotFound)

				_, err = s.GetInstance(ctx, recent.InstanceID)
				require.NoError(t, err)

				_, err = s.GetInstance(ctx, running.InstanceID)
				require.NoError(t, err)
			},
		},
		{
			name: "RemoveInstances_Workflow",
			f: func(t *testing.T, ctx context.Context, s backend.Store) {
				workflowID := "wf-" + uuid.NewString()
				now := time.Now()

				mine := snapshot(workflowID, now, ptr(now))
				other := snapshot("other-"+uuid.NewString(), now, ptr(now))

				require.NoError(t, s.SaveInstance(ctx, mine))
				require.NoError(t, s.SaveInstance(ctx, other))

				require.NoError(t, s.RemoveInstances(ctx, backend.RemoveWorkflow(workflowID)))

				list, err := s.ListInstances(ctx, workflowID)
				require.NoError(t, err)
				require.Empty(t, list)

				_, err = s.GetInstance(ctx, other.InstanceID)
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setup(t)
			ctx := context.Background()

			tt.f(t, ctx, s)

			if teardown != nil {
				teardown(s)
			}
		})
	}
}
