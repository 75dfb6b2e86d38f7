// Package mysql is a Store keeping instance snapshots in MySQL.
package mysql

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	mmysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/yinan-symphony/symphony-wdk/backend/sqlstore"
)

//go:embed db/migrations/*.sql
var migrationsFS embed.FS

var dialect = sqlstore.Dialect{
	Table: "`instances`",
	Upsert: "INSERT INTO `instances` (id, workflow_id, status, snapshot, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE status = VALUES(status), snapshot = VALUES(snapshot), completed_at = VALUES(completed_at)",
	Placeholder: sqlstore.QuestionMark,
	// DATETIME columns carry no zone
	Time: func(t time.Time) any {
		return t.UTC()
	},
}

type Store struct {
	*sqlstore.Store

	dsn string
}

func NewMysqlStore(host string, port int, user, password, database string, opts ...sqlstore.Option) *Store {
	options := sqlstore.ApplyOptions(append([]sqlstore.Option{
		sqlstore.WithParam("parseTime", "true"),
		sqlstore.WithParam("interpolateParams", "true"),
	}, opts...)...)

	q := url.Values{}
	for _, k := range options.SortedParams() {
		q.Set(k, options.Params[k])
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", user, password, host, port, database, q.Encode())

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		panic(err)
	}

	options.Configure(db)

	s := &Store{
		Store: sqlstore.New(db, dialect, options.Logger, true),
		dsn:   dsn,
	}

	if options.ApplyMigrations {
		if err := s.Migrate(); err != nil {
			panic(err)
		}
	}

	return s
}

// Migrate applies any pending database migrations. The schema is changed through a separate
// connection allowing multiple statements.
func (s *Store) Migrate() error {
	db, err := sql.Open("mysql", s.dsn+"&multiStatements=true")
	if err != nil {
		return fmt.Errorf("opening schema database: %w", err)
	}
	defer db.Close()

	driver, err := mmysql.WithInstance(db, &mmysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	return sqlstore.Migrate(migrationsFS, "db/migrations", "mysql", driver)
}
