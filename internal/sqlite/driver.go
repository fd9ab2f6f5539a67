package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/strata-db/strata/internal/driver"
)

// Driver executes rendered statements over one SQLite session.
type Driver struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path (":memory:"
// for an in-memory database).
//
// The connection is configured with:
//   - WAL mode for concurrent read access (no-op for in-memory)
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// SQLite only supports one writer at a time, so the pool is pinned to
// a single connection.
func Open(path string) (*Driver, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Driver{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Write implements driver.Driver.
func (d *Driver) Write(ctx context.Context, stmt driver.Statement) (int64, error) {
	res, err := d.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return affected, nil
}

// Read implements driver.Driver. Callers close the returned rows.
func (d *Driver) Read(ctx context.Context, stmt driver.Statement) (driver.Rows, error) {
	rows, err := d.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return rows, nil
}

// QueryGrammar implements driver.Driver.
func (d *Driver) QueryGrammar() driver.QueryGrammar { return QueryGrammar{} }

// RecordGrammar implements driver.Driver.
func (d *Driver) RecordGrammar() driver.RecordGrammar { return RecordGrammar{} }

// SchemaGrammar implements driver.Driver.
func (d *Driver) SchemaGrammar() driver.SchemaGrammar { return SchemaGrammar{} }

// Close implements driver.Driver.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer the driver methods when available.
func (d *Driver) DB() *sql.DB { return d.db }
