// Package conn provides the Connection: one backend session plus the
// in-memory schema snapshot, lifecycle hook registry and migration
// ledger that belong to it.
//
// A Connection is built with explicit dependencies - there is no
// process-wide registry to resolve one from. It wraps exactly one
// driver session and is not safe for concurrent use by multiple
// callers without external synchronization; no locking is performed
// internally.
package conn

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/strata-db/strata/internal/driver"
	"github.com/strata-db/strata/internal/hooks"
	"github.com/strata-db/strata/internal/migrate"
	"github.com/strata-db/strata/internal/query"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
)

// Options configures a Connection.
type Options struct {
	// Snapshot is the starting schema state, typically reloaded from a
	// persisted snapshot. Nil starts empty.
	Snapshot *schema.Schema

	// Clock feeds lifecycle hooks; nil uses the wall clock.
	Clock hooks.Clock

	// DisableLedger opts the backend out of migration tagging.
	// Contains then unconditionally reports false.
	DisableLedger bool
}

// Connection wraps one backend session.
type Connection struct {
	drv     driver.Driver
	schema  *schema.Schema
	hooks   *hooks.Registry
	runner  *migrate.Runner
	tags    *migrate.TagManager
	session string
}

// New opens a connection over a driver. Unless the ledger is disabled,
// the tag manager bootstraps its reserved table immediately, so the
// ledger exists before any migration is applied.
func New(ctx context.Context, drv driver.Driver, opts Options) (*Connection, error) {
	snapshot := opts.Snapshot
	if snapshot == nil {
		snapshot = schema.NewSchema()
	}
	clock := opts.Clock
	if clock == nil {
		clock = hooks.WallClock{}
	}

	var tags *migrate.TagManager
	if !opts.DisableLedger {
		var err error
		tags, err = migrate.NewTagManager(ctx, drv, snapshot)
		if err != nil {
			return nil, fmt.Errorf("open connection: %w", err)
		}
	}

	registry := hooks.NewRegistry()
	backend := migrate.NewBackendMigrator(drv, snapshot.Clone(), tags)
	snapshotMigrator := migrate.NewSchemaMigrator(snapshot, registry, clock)

	return &Connection{
		drv:     drv,
		schema:  snapshot,
		hooks:   registry,
		runner:  migrate.NewRunner(backend, snapshotMigrator),
		tags:    tags,
		session: uuid.Must(uuid.NewV7()).String(),
	}, nil
}

// Session returns the connection's unique session token.
func (c *Connection) Session() string { return c.session }

// Schema returns the in-memory schema snapshot.
func (c *Connection) Schema() *schema.Schema { return c.schema }

// Hooks returns the lifecycle hook registry.
func (c *Connection) Hooks() *hooks.Registry { return c.hooks }

// Tags returns the migration ledger, nil when disabled.
func (c *Connection) Tags() *migrate.TagManager { return c.tags }

// Apply applies a migration through the dual-migrator protocol.
func (c *Connection) Apply(ctx context.Context, m migrate.Migration) error {
	return c.runner.Apply(ctx, m)
}

// Rollback reverts a migration through the dual-migrator protocol.
func (c *Connection) Rollback(ctx context.Context, m migrate.Migration) error {
	return c.runner.Rollback(ctx, m)
}

// Contains reports whether the migration's ledger tag is present.
func (c *Connection) Contains(ctx context.Context, m migrate.Migration) (bool, error) {
	return c.runner.Contains(ctx, m)
}

// ApplyAll applies a manifest in order.
func (c *Connection) ApplyAll(ctx context.Context, manifest migrate.Manifest) error {
	return c.runner.ApplyAll(ctx, manifest)
}

// RollbackAll rolls a manifest back in reverse order.
func (c *Connection) RollbackAll(ctx context.Context, manifest migrate.Manifest) error {
	return c.runner.RollbackAll(ctx, manifest)
}

// Query builds a query over a snapshot table and fires the table's
// query hooks (soft-delete filtering happens here).
func (c *Connection) Query(table string) (*query.Query, error) {
	layout, err := c.schema.Layout(table)
	if err != nil {
		return nil, err
	}
	q := query.NewTableQuery(layout)
	if err := c.hooks.RunQuery(layout.Table(), q); err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return q, nil
}

// Select renders and executes a query. Callers close the returned
// rows.
func (c *Connection) Select(ctx context.Context, q *query.Query) (driver.Rows, error) {
	stmt, err := c.drv.QueryGrammar().RenderQuery(q)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return c.drv.Read(ctx, stmt)
}

// Count executes a metadata-only copy of the query (projections and
// ordering cleared) counting matching rows.
func (c *Connection) Count(ctx context.Context, q *query.Query) (int64, error) {
	table, ok := q.SourceAlias().Source().(query.Table)
	if !ok {
		return 0, fmt.Errorf("count: query source is not a table")
	}
	field, ok := countField(table.Layout())
	if !ok {
		return 0, fmt.Errorf("count: table %s has no fields", table.Layout().Table())
	}

	cp := q.WithoutSelect()
	cp.Range(nil, nil)
	if err := cp.Aggregate(field, query.AggCount, "n"); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	rows, err := c.Select(ctx, cp)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, fmt.Errorf("count: no result row: %w", rows.Err())
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func countField(l *schema.Layout) (string, bool) {
	if f, ok := l.PrimaryKeyField(); ok {
		return f.Name, true
	}
	names := l.FieldNames()
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// Insert writes a record's pending values in one round-trip, fetches
// the generated key in one more when the layout auto-increments and
// the record carries no key yet, then commits the record.
func (c *Connection) Insert(ctx context.Context, r *record.Record) error {
	layout := r.Layout()
	if err := c.hooks.RunInsert(layout.Table(), r); err != nil {
		return fmt.Errorf("insert %s: %w", layout.Table(), err)
	}

	stmt, err := c.drv.RecordGrammar().RenderInsert(layout, r)
	if err != nil {
		return fmt.Errorf("insert %s: %w", layout.Table(), err)
	}
	if _, err := c.drv.Write(ctx, stmt); err != nil {
		return fmt.Errorf("insert %s: %w", layout.Table(), err)
	}

	if err := c.fetchGeneratedKey(ctx, r); err != nil {
		return fmt.Errorf("insert %s: %w", layout.Table(), err)
	}

	r.Commit()
	return nil
}

func (c *Connection) fetchGeneratedKey(ctx context.Context, r *record.Record) error {
	layout := r.Layout()
	pk, ok := layout.PrimaryKeyField()
	if !ok || !pk.AutoIncrement {
		return nil
	}
	current, err := r.Get(pk.Name)
	if err != nil {
		return err
	}
	if current != nil {
		return nil
	}

	stmt, err := c.drv.RecordGrammar().RenderLastInsertID(layout)
	if err != nil {
		return err
	}
	rows, err := c.drv.Read(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("generated key: no result row: %w", rows.Err())
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return err
	}
	return r.Set(pk.Name, id)
}

// Update writes only the record's dirty columns, then commits it.
// A record with no pending values after hooks is a no-op.
func (c *Connection) Update(ctx context.Context, r *record.Record) error {
	layout := r.Layout()
	if err := c.hooks.RunUpdate(layout.Table(), r); err != nil {
		return fmt.Errorf("update %s: %w", layout.Table(), err)
	}
	if !r.Dirty() {
		return nil
	}

	stmt, err := c.drv.RecordGrammar().RenderUpdate(layout, r)
	if err != nil {
		return fmt.Errorf("update %s: %w", layout.Table(), err)
	}
	if _, err := c.drv.Write(ctx, stmt); err != nil {
		return fmt.Errorf("update %s: %w", layout.Table(), err)
	}
	r.Commit()
	return nil
}

// Delete removes a record. When a delete hook handles it (soft
// delete), the hook's mutation is written as an update instead of a
// physical delete.
func (c *Connection) Delete(ctx context.Context, r *record.Record) error {
	layout := r.Layout()
	handled, err := c.hooks.RunDelete(layout.Table(), r)
	if err != nil {
		return fmt.Errorf("delete %s: %w", layout.Table(), err)
	}
	if handled {
		stmt, err := c.drv.RecordGrammar().RenderUpdate(layout, r)
		if err != nil {
			return fmt.Errorf("delete %s: %w", layout.Table(), err)
		}
		if _, err := c.drv.Write(ctx, stmt); err != nil {
			return fmt.Errorf("delete %s: %w", layout.Table(), err)
		}
		r.Commit()
		return nil
	}

	stmt, err := c.drv.RecordGrammar().RenderDelete(layout, r)
	if err != nil {
		return fmt.Errorf("delete %s: %w", layout.Table(), err)
	}
	if _, err := c.drv.Write(ctx, stmt); err != nil {
		return fmt.Errorf("delete %s: %w", layout.Table(), err)
	}
	return nil
}

// Close closes the underlying driver session.
func (c *Connection) Close() error { return c.drv.Close() }
