package sqlstore

import (
	"database/sql"
	"sort"
	"time"

	"github.com/yinan-symphony/symphony-wdk/backend"
)

// Options configure the SQL stores.
type Options struct {
	backend.Options

	// ApplyMigrations brings the schema up to date when the store is created. Defaults to true.
	ApplyMigrations bool

	// Params are added to the data source name, e.g. sslmode for Postgres.
	Params map[string]string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Option func(*Options)

func ApplyOptions(opts ...Option) *Options {
	o := &Options{
		Options:         backend.ApplyOptions(),
		ApplyMigrations: true,
		Params:          map[string]string{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithoutMigrations leaves the schema untouched. Call Migrate on the store instead.
func WithoutMigrations() Option {
	return func(o *Options) {
		o.ApplyMigrations = false
	}
}

// WithParam sets a connection parameter.
func WithParam(key, value string) Option {
	return func(o *Options) {
		o.Params[key] = value
	}
}

// WithPool limits the connection pool, zero values keep the database/sql defaults.
func WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(o *Options) {
		o.MaxOpenConns = maxOpen
		o.MaxIdleConns = maxIdle
		o.ConnMaxLifetime = maxLifetime
	}
}

func WithBackendOptions(opts ...backend.BackendOption) Option {
	return func(o *Options) {
		for _, opt := range opts {
			opt(&o.Options)
		}
	}
}

// Configure applies the pool limits to db.
func (o *Options) Configure(db *sql.DB) {
	if o.MaxOpenConns > 0 {
		db.SetMaxOpenConns(o.MaxOpenConns)
	}

	if o.MaxIdleConns > 0 {
		db.SetMaxIdleConns(o.MaxIdleConns)
	}

	if o.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(o.ConnMaxLifetime)
	}
}

// SortedParams returns the parameter names in a stable order.
func (o *Options) SortedParams() []string {
	keys := make([]string, 0, len(o.Params))
	for k := range o.Params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
