package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/backend/sqlstore"
	"github.com/yinan-symphony/symphony-wdk/backend/test"
	"github.com/yinan-symphony/symphony-wdk/core"
)

func Test_SqliteStore(t *testing.T) {
	test.StoreTest(t, func(t *testing.T) backend.Store {
		return NewInMemoryStore()
	}, func(s backend.Store) {
		require.NoError(t, s.Close())
	})
}

func Test_SqliteStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.db")
	ctx := context.Background()

	s := NewSqliteStore(path)

	snapshot := &core.InstanceSnapshot{
		InstanceID: "i1",
		WorkflowID: "wf",
		Status:     core.InstanceStatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.SaveInstance(ctx, snapshot))
	require.NoError(t, s.Close())

	// Migrations are idempotent and data survives reopening
	s = NewSqliteStore(path)
	defer s.Close()

	got, err := s.GetInstance(ctx, "i1")
	require.NoError(t, err)
	require.Equal(t, "wf", got.WorkflowID)
}

func Test_SqliteStore_WithoutMigrations(t *testing.T) {
	ctx := context.Background()

	s := NewInMemoryStore(sqlstore.WithoutMigrations())
	defer s.Close()

	err := s.SaveInstance(ctx, &core.InstanceSnapshot{InstanceID: "i1", WorkflowID: "wf", CreatedAt: time.Now()})
	require.Error(t, err)

	require.NoError(t, s.Migrate())
	require.NoError(t, s.SaveInstance(ctx, &core.InstanceSnapshot{InstanceID: "i1", WorkflowID: "wf", CreatedAt: time.Now()}))

	_, err = s.GetInstance(ctx, "missing")
	require.ErrorIs(t, err, backend.ErrInstanceNotFound)
}
