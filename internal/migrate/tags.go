package migrate

import (
	"context"
	"fmt"

	"github.com/strata-db/strata/internal/driver"
	"github.com/strata-db/strata/internal/query"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
)

// LedgerTable is the reserved name of the tag ledger table.
const LedgerTable = "_tags"

// TagPrefix prefixes migration identifiers in the ledger.
const TagPrefix = "migration:"

// TagFor returns the ledger entry value for a migration.
func TagFor(m Migration) string { return TagPrefix + m.Identifier() }

// ledgerMigration creates the reserved ledger table: a single string
// column with no declared uniqueness constraint. Entries are unique
// per identifier by convention, not enforcement.
type ledgerMigration struct{}

func (ledgerMigration) Identifier() string { return "strata_ledger" }

func (ledgerMigration) Up(x *Executor) error {
	t := x.Table(LedgerTable)
	return t.String("tag", 255).Err()
}

func (ledgerMigration) Down(x *Executor) error {
	return x.DropTable(LedgerTable)
}

// TagManager is the persisted migration ledger over one backend
// session.
//
// Construction is self-bootstrapping: the manager applies its own
// fixed migration against both the backend and the schema snapshot, so
// the ledger table exists before any tag operation.
type TagManager struct {
	drv      driver.Driver
	snapshot *schema.Schema
	ledger   *schema.Layout
}

// NewTagManager bootstraps the ledger table on the backend and mirrors
// it into the snapshot.
func NewTagManager(ctx context.Context, drv driver.Driver, snapshot *schema.Schema) (*TagManager, error) {
	boot := ledgerMigration{}

	if !snapshot.Has(LedgerTable) {
		x := NewExecutor(snapshot, nil, nil)
		if err := boot.Up(x); err != nil {
			return nil, fmt.Errorf("tag manager: bootstrap snapshot: %w", err)
		}
	}

	exists, err := tableExists(ctx, drv, LedgerTable)
	if err != nil {
		return nil, fmt.Errorf("tag manager: probe ledger: %w", err)
	}
	if !exists {
		mirror := schema.NewSchema()
		backend := NewBackendMigrator(drv, mirror, nil)
		if err := backend.Apply(ctx, boot); err != nil {
			return nil, fmt.Errorf("tag manager: bootstrap backend: %w", err)
		}
	}

	ledger, err := snapshot.Layout(LedgerTable)
	if err != nil {
		return nil, fmt.Errorf("tag manager: %w", err)
	}
	return &TagManager{drv: drv, snapshot: snapshot, ledger: ledger}, nil
}

// Tag inserts one ledger row.
func (tm *TagManager) Tag(ctx context.Context, value string) error {
	r, err := record.New(tm.ledger, map[string]any{"tag": value})
	if err != nil {
		return fmt.Errorf("tag %q: %w", value, err)
	}
	stmt, err := tm.drv.RecordGrammar().RenderInsert(tm.ledger, r)
	if err != nil {
		return fmt.Errorf("tag %q: %w", value, err)
	}
	if _, err := tm.drv.Write(ctx, stmt); err != nil {
		return fmt.Errorf("tag %q: %w", value, err)
	}
	return nil
}

// Untag deletes matching rows by value equality, not by primary key.
// If multiple identical tags were ever created, one Untag removes them
// all in this implementation's dialects, but callers must not rely on
// cardinality.
func (tm *TagManager) Untag(ctx context.Context, value string) error {
	stmt, err := tm.drv.RecordGrammar().RenderDeleteBy(tm.ledger, "tag", value)
	if err != nil {
		return fmt.Errorf("untag %q: %w", value, err)
	}
	if _, err := tm.drv.Write(ctx, stmt); err != nil {
		return fmt.Errorf("untag %q: %w", value, err)
	}
	return nil
}

// List returns all tag values as a set; duplicates are possible in the
// ledger but not meaningful.
func (tm *TagManager) List(ctx context.Context) (map[string]struct{}, error) {
	q := query.NewTableQuery(tm.ledger)
	if err := q.Select("tag"); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	stmt, err := tm.drv.QueryGrammar().RenderQuery(q)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	rows, err := tm.drv.Read(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		out[tag] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

// Contains reports whether the ledger holds the tag value.
func (tm *TagManager) Contains(ctx context.Context, value string) (bool, error) {
	tags, err := tm.List(ctx)
	if err != nil {
		return false, err
	}
	_, ok := tags[value]
	return ok, nil
}

// tableExists probes the backend for a table through the schema
// grammar.
func tableExists(ctx context.Context, drv driver.Driver, table string) (bool, error) {
	stmt, err := drv.SchemaGrammar().HasTable("", table)
	if err != nil {
		return false, err
	}
	rows, err := drv.Read(ctx, stmt)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}
