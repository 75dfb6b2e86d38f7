// Package sqlstore implements backend.Store on database/sql. The SQL stores only differ in their
// driver, schema and Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/log"
)

// Dialect adapts the queries to one database. Every store uses an instances table with the columns
// id, workflow_id, status, snapshot, created_at and completed_at.
type Dialect struct {
	// Table is the quoted name of the instances table.
	Table string

	// Upsert inserts or replaces a row. Its arguments are the six columns in the order above.
	Upsert string

	// Placeholder returns the bind variable of the n-th argument, starting at 1.
	Placeholder func(n int) string

	// Time converts a timestamp to its column value.
	Time func(t time.Time) any

	// Snapshot converts the JSON encoded snapshot to its column value. Defaults to the raw bytes.
	Snapshot func(data []byte) any
}

// QuestionMark is the placeholder style of MySQL and SQLite.
func QuestionMark(int) string {
	return "?"
}

// Dollar is the placeholder style of Postgres.
func Dollar(n int) string {
	return fmt.Sprintf("$%d", n)
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger

	// closeDB is false for stores on a pool owned by the caller
	closeDB bool
}

var _ backend.Store = (*Store)(nil)

func New(db *sql.DB, dialect Dialect, logger *slog.Logger, closeDB bool) *Store {
	if dialect.Snapshot == nil {
		dialect.Snapshot = func(data []byte) any { return data }
	}

	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger,
		closeDB: closeDB,
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if !s.closeDB {
		return nil
	}

	return s.db.Close()
}

func (s *Store) SaveInstance(ctx context.Context, snapshot *core.InstanceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling instance: %w", err)
	}

	var completedAt any
	if snapshot.CompletedAt != nil {
		completedAt = s.dialect.Time(*snapshot.CompletedAt)
	}

	_, err = s.db.ExecContext(
		ctx,
		s.dialect.Upsert,
		snapshot.InstanceID,
		snapshot.WorkflowID,
		snapshot.Status,
		s.dialect.Snapshot(data),
		s.dialect.Time(snapshot.CreatedAt),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("saving instance: %w", err)
	}

	return nil
}

func (s *Store) GetInstance(ctx context.Context, instanceID string) (*core.InstanceSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT snapshot FROM %s WHERE id = %s", s.dialect.Table, s.dialect.Placeholder(1)),
		instanceID,
	)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, backend.ErrInstanceNotFound
		}

		return nil, fmt.Errorf("getting instance: %w", err)
	}

	return decode(data)
}

func (s *Store) ListInstances(ctx context.Context, workflowID string) ([]*core.InstanceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT snapshot FROM %s WHERE workflow_id = %s ORDER BY created_at, id", s.dialect.Table, s.dialect.Placeholder(1)),
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	defer rows.Close()

	var result []*core.InstanceSnapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning instance: %w", err)
		}

		snapshot, err := decode(data)
		if err != nil {
			return nil, err
		}

		result = append(result, snapshot)
	}

	return result, rows.Err()
}

func (s *Store) RemoveInstances(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	where := []string{"completed_at IS NOT NULL"}
	var args []any

	if !o.FinishedBefore.IsZero() {
		args = append(args, s.dialect.Time(o.FinishedBefore))
		where = append(where, "completed_at < "+s.dialect.Placeholder(len(args)))
	}

	if o.WorkflowID != "" {
		args = append(args, o.WorkflowID)
		where = append(where, "workflow_id = "+s.dialect.Placeholder(len(args)))
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", s.dialect.Table, strings.Join(where, " AND ")), args...)
	if err != nil {
		return fmt.Errorf("removing instances: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		s.logger.DebugContext(ctx, "Removed finished instances", log.CountKey, n)
	}

	return nil
}

// Migrate applies the pending migrations found in dir of fsys.
func Migrate(fsys fs.FS, dir string, databaseName string, driver database.Driver) error {
	migrations, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, databaseName, driver)
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func decode(data []byte) (*core.InstanceSnapshot, error) {
	var snapshot core.InstanceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling instance: %w", err)
	}

	return &snapshot, nil
}
