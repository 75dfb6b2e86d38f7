// Package postgres is a Store keeping instance snapshots in PostgreSQL.
package postgres

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/yinan-symphony/symphony-wdk/backend/sqlstore"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

var dialect = sqlstore.Dialect{
	Table: "instances",
	Upsert: `INSERT INTO instances (id, workflow_id, status, snapshot, created_at, completed_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, snapshot = EXCLUDED.snapshot, completed_at = EXCLUDED.completed_at`,
	Placeholder: sqlstore.Dollar,
	Time: func(t time.Time) any {
		return t
	},
	// pgx sends []byte as bytea, JSONB needs text
	Snapshot: func(data []byte) any {
		return string(data)
	},
}

type Store struct {
	*sqlstore.Store
}

// NewPostgresStore connects to the given database. TLS is disabled unless the sslmode parameter
// is set with sqlstore.WithParam.
func NewPostgresStore(host string, port int, user, password, database string, opts ...sqlstore.Option) *Store {
	options := sqlstore.ApplyOptions(append([]sqlstore.Option{sqlstore.WithParam("sslmode", "disable")}, opts...)...)

	parts := []string{
		"host=" + host,
		fmt.Sprintf("port=%d", port),
		"user=" + user,
		"password=" + password,
		"dbname=" + database,
	}
	for _, k := range options.SortedParams() {
		parts = append(parts, k+"="+options.Params[k])
	}

	db, err := sql.Open("pgx", strings.Join(parts, " "))
	if err != nil {
		panic(err)
	}

	options.Configure(db)

	return newStore(db, true, options)
}

// NewPostgresStoreWithDB creates a store on an existing connection pool. The store leaves the
// pool open on Close and does not migrate the schema unless asked to.
func NewPostgresStoreWithDB(db *sql.DB, opts ...sqlstore.Option) *Store {
	options := sqlstore.ApplyOptions(append([]sqlstore.Option{sqlstore.WithoutMigrations()}, opts...)...)

	return newStore(db, false, options)
}

// WithMigrations brings the schema up to date for stores created with NewPostgresStoreWithDB.
func WithMigrations() sqlstore.Option {
	return func(o *sqlstore.Options) {
		o.ApplyMigrations = true
	}
}

func newStore(db *sql.DB, closeDB bool, options *sqlstore.Options) *Store {
	s := &Store{Store: sqlstore.New(db, dialect, options.Logger, closeDB)}

	if options.ApplyMigrations {
		if err := s.Migrate(); err != nil {
			panic(err)
		}
	}

	return s
}

// Migrate applies any pending database migrations.
func (s *Store) Migrate() error {
	driver, err := postgres.WithInstance(s.DB(), &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	return sqlstore.Migrate(migrationsFS, "db/migrations", "postgres", driver)
}
