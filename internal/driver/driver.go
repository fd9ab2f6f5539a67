// Package driver defines the boundary between the abstract query and
// schema models and a concrete DBMS backend.
//
// The core never manipulates a wire protocol: grammars render the
// abstract model into parameterized statements, and a Driver executes
// them. Values are always carried as statement parameters, never
// interpolated into SQL text.
//
// All operations are synchronous and blocking. Cancellation and
// timeouts are delegated entirely to the driver via context; the core
// imposes none, performs no retries and does no pooling.
package driver

import (
	"context"

	"github.com/strata-db/strata/internal/query"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
)

// Statement is one fully-rendered, parameterized statement.
type Statement struct {
	SQL  string
	Args []any
}

// Rows is the read-side result handle. It mirrors the minimal subset
// of database/sql rows the core needs.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Driver executes rendered statements against one backend session and
// supplies the three dialect grammars.
type Driver interface {
	// Write executes a mutating statement and returns affected rows.
	Write(ctx context.Context, stmt Statement) (int64, error)

	// Read executes a reading statement and returns a result handle.
	// Callers are responsible for closing it.
	Read(ctx context.Context, stmt Statement) (Rows, error)

	QueryGrammar() QueryGrammar
	RecordGrammar() RecordGrammar
	SchemaGrammar() SchemaGrammar

	Close() error
}

// QueryGrammar renders the abstract query model for one dialect.
type QueryGrammar interface {
	RenderQuery(q *query.Query) (Statement, error)
}

// RecordGrammar renders row writes for one dialect.
type RecordGrammar interface {
	// RenderInsert renders an insert of the record's pending values.
	RenderInsert(l *schema.Layout, r *record.Record) (Statement, error)

	// RenderUpdate renders an update of only the record's pending
	// values, keyed by primary key.
	RenderUpdate(l *schema.Layout, r *record.Record) (Statement, error)

	// RenderDelete renders a delete keyed by primary key.
	RenderDelete(l *schema.Layout, r *record.Record) (Statement, error)

	// RenderDeleteBy renders a delete by value equality on one column.
	RenderDeleteBy(l *schema.Layout, field string, value any) (Statement, error)

	// RenderLastInsertID renders the generated-key retrieval that
	// follows an insert into an auto-increment layout.
	RenderLastInsertID(l *schema.Layout) (Statement, error)
}

// SchemaGrammar renders DDL for one dialect.
type SchemaGrammar interface {
	// RenderCreateTable renders a full table creation, possibly as
	// several statements (table plus secondary indexes).
	RenderCreateTable(l *schema.Layout) ([]Statement, error)

	// RenderDropTable renders a table removal.
	RenderDropTable(table string) (Statement, error)

	// RenderAlter renders one layout mutation against an existing
	// table.
	RenderAlter(op schema.Operation) ([]Statement, error)

	// HasTable renders an existence probe returning one row when the
	// table exists.
	HasTable(schemaName, table string) (Statement, error)
}
