package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/backend/test"
)

const testUser = "postgres"
const testPassword = "root"

func adminDB(t *testing.T) *sql.DB {
	db, err := sql.Open("pgx", fmt.Sprintf("host=localhost port=5432 user=%s password=%s sslmode=disable", testUser, testPassword))
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}

	return db
}

func Test_PostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	var dbName string

	test.StoreTest(t, func(t *testing.T) backend.Store {
		db := adminDB(t)

		dbName = "test_" + strings.Replace(uuid.NewString(), "-", "", -1)
		if _, err := db.Exec("CREATE DATABASE " + dbName); err != nil {
			panic(fmt.Errorf("creating database: %w", err))
		}

		if err := db.Close(); err != nil {
			panic(err)
		}

		return NewPostgresStore("localhost", 5432, testUser, testPassword, dbName)
	}, func(s backend.Store) {
		if err := s.Close(); err != nil {
			panic(err)
		}

		db := adminDB(t)

		if _, err := db.Exec("DROP DATABASE IF EXISTS " + dbName + " WITH (FORCE)"); err != nil {
			panic(fmt.Errorf("dropping database: %w", err))
		}

		if err := db.Close(); err != nil {
			panic(err)
		}
	})
}

func Test_PostgresStore_SharedPool(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	db := adminDB(t)
	defer db.Close()

	dbName := "test_" + strings.Replace(uuid.NewString(), "-", "", -1)
	_, err := db.Exec("CREATE DATABASE " + dbName)
	require.NoError(t, err)
	defer db.Exec("DROP DATABASE IF EXISTS " + dbName + " WITH (FORCE)")

	pool, err := sql.Open("pgx", fmt.Sprintf("host=localhost port=5432 user=%s password=%s dbname=%s sslmode=disable", testUser, testPassword, dbName))
	require.NoError(t, err)

	s := NewPostgresStoreWithDB(pool, WithMigrations())
	require.NoError(t, s.Close())

	// The pool stays usable after the store was closed
	require.NoError(t, pool.Ping())
	require.NoError(t, pool.Close())
}
