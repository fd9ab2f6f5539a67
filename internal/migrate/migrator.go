package migrate

import (
	"context"
	"fmt"

	"github.com/strata-db/strata/internal/driver"
	"github.com/strata-db/strata/internal/hooks"
	"github.com/strata-db/strata/internal/schema"
)

// Migrator is one target a migration is replayed against. The Runner
// drives every migrator in fixed order: the live backend first, then
// the in-memory schema state.
type Migrator interface {
	// Name identifies the migrator in errors.
	Name() string

	// Apply runs the migration's Up against this target.
	Apply(ctx context.Context, m Migration) error

	// Rollback runs the migration's Down against this target.
	Rollback(ctx context.Context, m Migration) error

	// FastForward reconciles the target with a migration already
	// recorded in the ledger, without re-applying it.
	FastForward(ctx context.Context, m Migration) error

	// Tags returns the migrator's ledger, or nil when the target opts
	// out of tagging.
	Tags() *TagManager
}

// SchemaMigrator applies migrations to the in-memory schema snapshot
// and registers lifecycle hooks. It keeps no ledger.
type SchemaMigrator struct {
	schema *schema.Schema
	hooks  *hooks.Registry
	clock  hooks.Clock
}

// NewSchemaMigrator creates a snapshot-side migrator.
func NewSchemaMigrator(s *schema.Schema, reg *hooks.Registry, clock hooks.Clock) *SchemaMigrator {
	return &SchemaMigrator{schema: s, hooks: reg, clock: clock}
}

// Name implements Migrator.
func (s *SchemaMigrator) Name() string { return "schema" }

// Apply implements Migrator.
func (s *SchemaMigrator) Apply(_ context.Context, m Migration) error {
	x := NewExecutor(s.schema, s.hooks, s.clock)
	if err := m.Up(x); err != nil {
		return fmt.Errorf("schema migrator: up %s: %w", m.Identifier(), err)
	}
	return nil
}

// Rollback implements Migrator.
func (s *SchemaMigrator) Rollback(_ context.Context, m Migration) error {
	x := NewExecutor(s.schema, s.hooks, s.clock)
	if err := m.Down(x); err != nil {
		return fmt.Errorf("schema migrator: down %s: %w", m.Identifier(), err)
	}
	return nil
}

// FastForward replays Up in ensure mode against the snapshot. After a
// snapshot reload the structural effects are already present; what the
// replay restores is hook registration, which only happens as a side
// effect of running the migration.
func (s *SchemaMigrator) FastForward(_ context.Context, m Migration) error {
	x := NewReplayExecutor(s.schema, s.hooks, s.clock)
	if err := m.Up(x); err != nil {
		return fmt.Errorf("schema migrator: replay %s: %w", m.Identifier(), err)
	}
	return nil
}

// Tags implements Migrator: the snapshot keeps no ledger.
func (s *SchemaMigrator) Tags() *TagManager { return nil }

// Schema returns the migrated schema.
func (s *SchemaMigrator) Schema() *schema.Schema { return s.schema }

// BackendMigrator applies migrations to a live backend through the
// driver's schema grammar, keeping its own schema mirror for invariant
// checks and DDL rendering.
type BackendMigrator struct {
	drv    driver.Driver
	mirror *schema.Schema
	tags   *TagManager
}

// NewBackendMigrator creates a live-backend migrator. The mirror
// should start from the same snapshot as the schema migrator's state
// (typically a Clone); tags may be nil for backends that opt out of
// the ledger.
func NewBackendMigrator(drv driver.Driver, mirror *schema.Schema, tags *TagManager) *BackendMigrator {
	return &BackendMigrator{drv: drv, mirror: mirror, tags: tags}
}

// Name implements Migrator.
func (b *BackendMigrator) Name() string { return "backend" }

// Apply implements Migrator.
func (b *BackendMigrator) Apply(ctx context.Context, m Migration) error {
	x := NewExecutor(b.mirror, nil, nil)
	if err := m.Up(x); err != nil {
		return fmt.Errorf("backend migrator: up %s: %w", m.Identifier(), err)
	}
	if err := b.flush(ctx, x); err != nil {
		return fmt.Errorf("backend migrator: up %s: %w", m.Identifier(), err)
	}
	return nil
}

// Rollback implements Migrator.
func (b *BackendMigrator) Rollback(ctx context.Context, m Migration) error {
	x := NewExecutor(b.mirror, nil, nil)
	if err := m.Down(x); err != nil {
		return fmt.Errorf("backend migrator: down %s: %w", m.Identifier(), err)
	}
	if err := b.flush(ctx, x); err != nil {
		return fmt.Errorf("backend migrator: down %s: %w", m.Identifier(), err)
	}
	return nil
}

// FastForward replays Up in ensure mode against the mirror only. The
// ledger says the live backend already holds the migration, so no DDL
// is rendered; the replay teaches a mirror that started from an older
// or empty snapshot what the backend already looks like.
func (b *BackendMigrator) FastForward(_ context.Context, m Migration) error {
	x := NewReplayExecutor(b.mirror, nil, nil)
	if err := m.Up(x); err != nil {
		return fmt.Errorf("backend migrator: replay %s: %w", m.Identifier(), err)
	}
	return nil
}

// Tags implements Migrator.
func (b *BackendMigrator) Tags() *TagManager { return b.tags }

// Mirror returns the migrator's schema mirror.
func (b *BackendMigrator) Mirror() *schema.Schema { return b.mirror }

// flush renders the executor's outcome as DDL and writes it: full
// creations for tables first seen this run, alters for pre-existing
// ones, drops last.
func (b *BackendMigrator) flush(ctx context.Context, x *Executor) error {
	grammar := b.drv.SchemaGrammar()

	for _, table := range x.CreatedTables() {
		layout, err := b.mirror.Layout(table)
		if err != nil {
			// Created and dropped within the same run; nothing to emit.
			continue
		}
		stmts, err := grammar.RenderCreateTable(layout)
		if err != nil {
			return err
		}
		if err := b.writeAll(ctx, stmts); err != nil {
			return err
		}
	}

	for _, op := range x.Operations() {
		if x.Created(opTable(op)) {
			continue
		}
		stmts, err := grammar.RenderAlter(op)
		if err != nil {
			return err
		}
		if err := b.writeAll(ctx, stmts); err != nil {
			return err
		}
	}

	for _, table := range x.DroppedTables() {
		if x.Created(table) {
			continue
		}
		stmt, err := grammar.RenderDropTable(table)
		if err != nil {
			return err
		}
		if _, err := b.drv.Write(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *BackendMigrator) writeAll(ctx context.Context, stmts []driver.Statement) error {
	for _, stmt := range stmts {
		if _, err := b.drv.Write(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func opTable(op schema.Operation) string {
	switch o := op.(type) {
	case schema.AddField:
		return o.Table
	case schema.DropField:
		return o.Table
	case schema.AddIndex:
		return o.Table
	case schema.DropIndex:
		return o.Table
	default:
		return ""
	}
}
