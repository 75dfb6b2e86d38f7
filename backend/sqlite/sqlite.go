// Package sqlite is a Store keeping instance snapshots in a SQLite database.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/yinan-symphony/symphony-wdk/backend/sqlstore"
	_ "modernc.org/sqlite"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

// Timestamps are stored as unix milliseconds.
var dialect = sqlstore.Dialect{
	Table: "`instances`",
	Upsert: "INSERT INTO `instances` (id, workflow_id, status, snapshot, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT (id) DO UPDATE SET status = excluded.status, snapshot = excluded.snapshot, completed_at = excluded.completed_at",
	Placeholder: sqlstore.QuestionMark,
	Time: func(t time.Time) any {
		return t.UnixMilli()
	},
}

type Store struct {
	*sqlstore.Store
}

// NewInMemoryStore creates a store that lives as long as the process.
func NewInMemoryStore(opts ...sqlstore.Option) *Store {
	// Every connection to :memory: opens its own database
	return open("file::memory:", append([]sqlstore.Option{sqlstore.WithPool(1, 1, 0)}, opts...))
}

// NewSqliteStore creates a store on the database file at path, creating it when missing.
func NewSqliteStore(path string, opts ...sqlstore.Option) *Store {
	opts = append([]sqlstore.Option{
		sqlstore.WithParam("_pragma", "busy_timeout(5000)"),
		sqlstore.WithParam("_txlock", "immediate"),
	}, opts...)

	return open("file:"+path, opts)
}

func open(dsn string, opts []sqlstore.Option) *Store {
	options := sqlstore.ApplyOptions(opts...)

	q := url.Values{}
	for _, k := range options.SortedParams() {
		q.Add(k, options.Params[k])
	}

	if len(q) > 0 {
		dsn += "?" + q.Encode()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		panic(err)
	}

	options.Configure(db)

	s := &Store{Store: sqlstore.New(db, dialect, options.Logger, true)}

	if options.ApplyMigrations {
		if err := s.Migrate(); err != nil {
			panic(err)
		}
	}

	return s
}

// Migrate applies any pending database migrations.
func (s *Store) Migrate() error {
	driver, err := msqlite.WithInstance(s.DB(), &msqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	return sqlstore.Migrate(migrationsFS, "db/migrations", "sqlite", driver)
}
