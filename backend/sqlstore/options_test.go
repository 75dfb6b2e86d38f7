package sqlstore

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/backend"
	_ "modernc.org/sqlite"
)

func Test_ApplyOptions(t *testing.T) {
	o := ApplyOptions()
	require.True(t, o.ApplyMigrations)
	require.NotNil(t, o.Logger)
	require.Empty(t, o.Params)

	o = ApplyOptions(
		WithoutMigrations(),
		WithParam("sslmode", "require"),
		WithParam("application_name", "wdk"),
		WithBackendOptions(backend.WithKeyPrefix("p:")),
		WithPool(4, 2, time.Minute),
	)
	require.False(t, o.ApplyMigrations)
	require.Equal(t, "p:", o.KeyPrefix)
	require.Equal(t, []string{"application_name", "sslmode"}, o.SortedParams())
	require.Equal(t, 4, o.MaxOpenConns)
}

func Test_Options_Configure(t *testing.T) {
	// The pool is configured without connecting
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	defer db.Close()

	ApplyOptions(WithPool(3, 1, time.Minute)).Configure(db)
	require.Equal(t, 3, db.Stats().MaxOpenConnections)
}

func Test_Placeholders(t *testing.T) {
	require.Equal(t, "?", QuestionMark(2))
	require.Equal(t, "$2", Dollar(2))
}
