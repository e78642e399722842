// Package store opens the relational database the services persist
// metadata in. It speaks database/sql only; the concrete driver
// (sqlite3 for single-node deployments, postgres for shared ones) is
// registered by the application through a blank import.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config selects the database backend.
type Config struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite3 postgres"`
	// DSN is the driver-specific connection string, e.g. a file path
	// for sqlite3 or a postgres URL.
	DSN string `mapstructure:"dsn" validate:"required"`
}

// Querier is the query surface stores are written against. Both DB and
// *sql.Tx satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps *sql.DB and rewrites '?' placeholders into the dialect the
// driver expects, so store queries are written once.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database.
func Open(cfg Config) (*DB, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	return &DB{db: db, driver: cfg.Driver}, nil
}

// Wrap adopts an already-open handle, mainly for tests.
func Wrap(db *sql.DB, driver string) *DB {
	return &DB{db: db, driver: driver}
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping verifies the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.rebind(query), args...)
}

// rebind rewrites '?' placeholders to '$1'..'$n' for postgres. Store
// queries never embed literal question marks.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
