package migrate

import (
	"fmt"

	"github.com/strata-db/strata/internal/hooks"
	"github.com/strata-db/strata/internal/schema"
)

// PrimaryIndexName is the reserved name of the index created by
// Primary and Increments.
const PrimaryIndexName = "primary"

// Executor is the state a migration's Up and Down run against: one
// schema plus the operation log that backend migrators later render to
// DDL. The hook registry is present only on the snapshot-side
// executor; backend replays pass nil and register nothing.
type Executor struct {
	schema *schema.Schema
	hooks  *hooks.Registry
	clock  hooks.Clock
	replay bool

	ops          []schema.Operation
	created      map[string]bool
	createdOrder []string
	droppedOrder []string
}

// NewExecutor creates an executor over a schema. reg may be nil; clock
// defaults to the wall clock when nil.
func NewExecutor(s *schema.Schema, reg *hooks.Registry, clock hooks.Clock) *Executor {
	if clock == nil {
		clock = hooks.WallClock{}
	}
	return &Executor{
		schema:  s,
		hooks:   reg,
		clock:   clock,
		created: make(map[string]bool),
	}
}

// NewReplayExecutor creates an executor for revisiting migrations the
// schema already reflects, typically after a snapshot reload. Every
// structural call becomes an ensure operation: fields overwrite in
// place, an existing primary key satisfies Increments and Primary,
// already-absent drop targets are tolerated, and no operations are
// recorded for DDL rendering. Hook registration still runs, which is
// the point of a replay.
func NewReplayExecutor(s *schema.Schema, reg *hooks.Registry, clock hooks.Clock) *Executor {
	x := NewExecutor(s, reg, clock)
	x.replay = true
	return x
}

// Table returns a table executor bound to the named layout, creating
// the layout when it does not exist yet.
func (x *Executor) Table(name string) *TableExecutor {
	key := schema.NormalizeIdent(name)
	if !x.schema.Has(key) {
		x.schema.Put(schema.NewLayout(key))
		if !x.replay {
			x.created[key] = true
			x.createdOrder = append(x.createdOrder, key)
		}
	}
	layout, _ := x.schema.Layout(key)
	return &TableExecutor{parent: x, layout: layout}
}

// DropTable removes a layout and records the drop for DDL rendering.
func (x *Executor) DropTable(name string) error {
	if err := x.schema.Remove(name); err != nil {
		if x.replay && schema.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !x.replay {
		x.droppedOrder = append(x.droppedOrder, schema.NormalizeIdent(name))
	}
	return nil
}

// Schema returns the executor's schema.
func (x *Executor) Schema() *schema.Schema { return x.schema }

// Operations returns the recorded layout mutations in call order.
func (x *Executor) Operations() []schema.Operation { return x.ops }

// CreatedTables returns the tables first seen in this run, in creation
// order.
func (x *Executor) CreatedTables() []string { return x.createdOrder }

// DroppedTables returns the tables dropped in this run.
func (x *Executor) DroppedTables() []string { return x.droppedOrder }

// Created reports whether the table was created in this run.
func (x *Executor) Created(table string) bool {
	return x.created[schema.NormalizeIdent(table)]
}

// TableExecutor is the fluent migration DSL over one layout.
//
// Each operation is idempotent in its effect on the layout's shape,
// but the builder is not transactional: the first failed invariant
// check sticks, subsequent calls become no-ops, and Err returns the
// failure. Prior calls in the chain are not rolled back.
type TableExecutor struct {
	parent *Executor
	layout *schema.Layout
	err    error
}

// Layout returns the layout under mutation.
func (t *TableExecutor) Layout() *schema.Layout { return t.layout }

// Err returns the first failure in the chain, nil when the chain is
// clean. Migration authors return this from Up/Down.
func (t *TableExecutor) Err() error { return t.err }

func (t *TableExecutor) fail(err error) *TableExecutor {
	if t.err == nil {
		t.err = err
	}
	return t
}

func (t *TableExecutor) addField(f schema.Field) *TableExecutor {
	if t.err != nil {
		return t
	}
	t.layout.SetField(f)
	if !t.parent.replay {
		t.parent.ops = append(t.parent.ops, schema.AddField{Table: t.layout.Table(), Field: f})
	}
	return t
}

func (t *TableExecutor) putIndex(idx schema.Index) *TableExecutor {
	if t.err != nil {
		return t
	}
	if err := t.layout.PutIndex(idx); err != nil {
		if t.parent.replay {
			return t
		}
		return t.fail(err)
	}
	if !t.parent.replay {
		t.parent.ops = append(t.parent.ops, schema.AddIndex{Table: t.layout.Table(), Index: idx})
	}
	return t
}

// Increments adds an unsigned auto-increment field and immediately
// promotes it to primary key. Fails when a primary key already exists.
func (t *TableExecutor) Increments(name string) *TableExecutor {
	if t.err != nil {
		return t
	}
	if pk := t.layout.PrimaryKey(); pk != nil {
		if t.parent.replay {
			return t
		}
		return t.fail(&schema.InvariantError{
			Code:    schema.ErrCodeDuplicatePrimary,
			Subject: t.layout.Table(),
			Message: fmt.Sprintf("primary index %q already registered", pk.Name),
		})
	}
	t.addField(schema.Field{
		Name:          name,
		Type:          schema.LongType(),
		AutoIncrement: true,
		Unsigned:      true,
	})
	f, err := t.layout.Field(name)
	if err != nil {
		return t.fail(err)
	}
	return t.putIndex(schema.Index{Name: PrimaryIndexName, Fields: []schema.Field{*f}, Primary: true})
}

// Primary promotes an existing field to a dedicated primary-key index
// under the reserved name. Fails when a primary key already exists or
// the field is missing.
func (t *TableExecutor) Primary(name string) *TableExecutor {
	if t.err != nil {
		return t
	}
	if pk := t.layout.PrimaryKey(); pk != nil {
		if t.parent.replay {
			return t
		}
		return t.fail(&schema.InvariantError{
			Code:    schema.ErrCodeDuplicatePrimary,
			Subject: t.layout.Table(),
			Message: fmt.Sprintf("primary index %q already registered", pk.Name),
		})
	}
	f, err := t.layout.Field(name)
	if err != nil {
		return t.fail(err)
	}
	return t.putIndex(schema.Index{Name: PrimaryIndexName, Fields: []schema.Field{*f}, Primary: true})
}

// Int adds a nullable 32-bit integer field.
func (t *TableExecutor) Int(name string) *TableExecutor {
	return t.addField(schema.Field{Name: name, Type: schema.IntType(), Nullable: true})
}

// Long adds a nullable 64-bit integer field.
func (t *TableExecutor) Long(name string) *TableExecutor {
	return t.addField(schema.Field{Name: name, Type: schema.LongType(), Nullable: true})
}

// String adds a nullable bounded varchar field.
func (t *TableExecutor) String(name string, length int) *TableExecutor {
	return t.addField(schema.Field{Name: name, Type: schema.StringType(length), Nullable: true})
}

// Text adds a nullable unbounded text field.
func (t *TableExecutor) Text(name string) *TableExecutor {
	return t.addField(schema.Field{Name: name, Type: schema.TextType(), Nullable: true})
}

// DateTime adds a nullable timestamp field.
func (t *TableExecutor) DateTime(name string) *TableExecutor {
	return t.addField(schema.Field{Name: name, Type: schema.DateTimeType(), Nullable: true})
}

// Enum adds a nullable enum field. Options containing the separator
// fail the chain at construction time.
func (t *TableExecutor) Enum(name string, options []string) *TableExecutor {
	if t.err != nil {
		return t
	}
	typ, err := schema.NewEnumType(options)
	if err != nil {
		return t.fail(err)
	}
	return t.addField(schema.Field{Name: name, Type: typ, Nullable: true})
}

// Index registers a named non-unique index over the given fields. Each
// field name must resolve against the layout.
func (t *TableExecutor) Index(name string, fields ...string) *TableExecutor {
	return t.index(name, fields, false)
}

// Unique registers a named unique index over the given fields.
func (t *TableExecutor) Unique(name string, fields ...string) *TableExecutor {
	return t.index(name, fields, true)
}

func (t *TableExecutor) index(name string, fields []string, unique bool) *TableExecutor {
	if t.err != nil {
		return t
	}
	resolved := make([]schema.Field, 0, len(fields))
	for _, fn := range fields {
		f, err := t.layout.Field(fn)
		if err != nil {
			return t.fail(err)
		}
		resolved = append(resolved, *f)
	}
	return t.putIndex(schema.Index{Name: name, Fields: resolved, Unique: unique})
}

// Foreign creates an optional relationship to another table. The
// remote layout must already expose exactly one primary-key field; a
// nullable field named <name><remotePrimaryField> of the same type is
// added here and a foreign-key index named fk_<table>_<name> is
// registered against the remote primary field. The local field is
// deliberately nullable even though the referenced key is not.
func (t *TableExecutor) Foreign(name string, remote *TableExecutor) *TableExecutor {
	if t.err != nil {
		return t
	}
	if remote.err != nil {
		return t.fail(remote.err)
	}
	remotePK, ok := remote.layout.PrimaryKeyField()
	if !ok {
		return t.fail(&schema.InvariantError{
			Code:    schema.ErrCodeMissingPrimary,
			Subject: remote.layout.Table(),
			Message: "foreign key requires exactly one primary-key field on the remote layout",
		})
	}
	local := schema.Field{
		Name:     name + remotePK.Name,
		Type:     remotePK.Type,
		Nullable: true,
		Unsigned: remotePK.Unsigned,
	}
	t.addField(local)
	return t.putIndex(schema.Index{
		Name:   fmt.Sprintf("fk_%s_%s", t.layout.Table(), name),
		Fields: []schema.Field{local},
		Foreign: &schema.ForeignRef{
			Table: remote.layout.Table(),
			Field: remotePK.Name,
		},
	})
}

// Timestamps adds the created and updated convention fields and
// registers the lifecycle hook that populates them on insert and
// update. Hook registration is a side effect of the migration, not of
// record writes.
func (t *TableExecutor) Timestamps() *TableExecutor {
	t.DateTime(hooks.FieldCreated)
	t.DateTime(hooks.FieldUpdated)
	if t.err == nil && t.parent.hooks != nil {
		h := hooks.TimestampHook{Clock: t.parent.clock}
		t.parent.hooks.AddInsert(t.layout.Table(), h)
		t.parent.hooks.AddUpdate(t.layout.Table(), h)
	}
	return t
}

// SoftDelete adds the removed convention field and registers the hook
// that stamps it on delete and filters stamped rows on query
// construction.
func (t *TableExecutor) SoftDelete() *TableExecutor {
	t.DateTime(hooks.FieldRemoved)
	if t.err == nil && t.parent.hooks != nil {
		h := hooks.SoftDeleteHook{Clock: t.parent.clock}
		t.parent.hooks.AddDelete(t.layout.Table(), h)
		t.parent.hooks.AddQuery(t.layout.Table(), h)
	}
	return t
}

// Drop removes a field. Removing a field that backs an active foreign
// key leaves a dangling reference; the core does not validate that.
func (t *TableExecutor) Drop(name string) *TableExecutor {
	if t.err != nil {
		return t
	}
	if err := t.layout.UnsetField(name); err != nil {
		if t.parent.replay && schema.IsNotFound(err) {
			return t
		}
		return t.fail(err)
	}
	if !t.parent.replay {
		t.parent.ops = append(t.parent.ops, schema.DropField{Table: t.layout.Table(), Name: schema.NormalizeIdent(name)})
	}
	return t
}

// DropIndex removes an index.
func (t *TableExecutor) DropIndex(name string) *TableExecutor {
	if t.err != nil {
		return t
	}
	if err := t.layout.UnsetIndex(name); err != nil {
		if t.parent.replay && schema.IsNotFound(err) {
			return t
		}
		return t.fail(err)
	}
	if !t.parent.replay {
		t.parent.ops = append(t.parent.ops, schema.DropIndex{Table: t.layout.Table(), Name: schema.NormalizeIdent(name)})
	}
	return t
}
