package migrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/hooks"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
)

// fakeMigrator records calls and optionally fails. It opts out of
// tagging; ledger behavior is covered by the connection tests against
// the sqlite backend.
type fakeMigrator struct {
	name string
	fail error
	log  *[]string
}

func (f *fakeMigrator) Name() string { return f.name }

func (f *fakeMigrator) Apply(_ context.Context, m Migration) error {
	*f.log = append(*f.log, f.name+":up:"+m.Identifier())
	return f.fail
}

func (f *fakeMigrator) Rollback(_ context.Context, m Migration) error {
	*f.log = append(*f.log, f.name+":down:"+m.Identifier())
	return f.fail
}

func (f *fakeMigrator) FastForward(_ context.Context, m Migration) error {
	*f.log = append(*f.log, f.name+":ff:"+m.Identifier())
	return f.fail
}

func (f *fakeMigrator) Tags() *TagManager { return nil }

func addUsers() Migration {
	return Def{
		ID: "add_users",
		Apply: func(x *Executor) error {
			return x.Table("users").Increments("_id").String("name", 255).Err()
		},
		Revert: func(x *Executor) error {
			return x.DropTable("users")
		},
	}
}

func TestRunner_AppliesInFixedOrder(t *testing.T) {
	var log []string
	r := NewRunner(
		&fakeMigrator{name: "backend", log: &log},
		&fakeMigrator{name: "schema", log: &log},
	)

	require.NoError(t, r.Apply(context.Background(), addUsers()))
	assert.Equal(t, []string{"backend:up:add_users", "schema:up:add_users"}, log)

	log = nil
	require.NoError(t, r.Rollback(context.Background(), addUsers()))
	assert.Equal(t, []string{"backend:down:add_users", "schema:down:add_users"}, log)
}

func TestRunner_PartialFailureAbortsWithoutCompensation(t *testing.T) {
	var log []string
	boom := errors.New("ddl rejected")
	r := NewRunner(
		&fakeMigrator{name: "backend", log: &log},
		&fakeMigrator{name: "schema", fail: boom, log: &log},
	)

	err := r.Apply(context.Background(), addUsers())
	require.Error(t, err)

	var ae *ApplyError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "schema", ae.Migrator)
	assert.Equal(t, []string{"backend"}, ae.Completed)
	assert.Equal(t, DirectionUp, ae.Direction)
	assert.NotEmpty(t, ae.RunToken)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsPartialFailure(err))

	// No compensating rollback was issued
	assert.Equal(t, []string{"backend:up:add_users", "schema:up:add_users"}, log)
}

func TestRunner_FirstMigratorFailureIsNotPartial(t *testing.T) {
	var log []string
	r := NewRunner(
		&fakeMigrator{name: "backend", fail: errors.New("refused"), log: &log},
		&fakeMigrator{name: "schema", log: &log},
	)

	err := r.Apply(context.Background(), addUsers())
	require.Error(t, err)
	assert.False(t, IsPartialFailure(err))
	assert.Equal(t, []string{"backend:up:add_users"}, log)
}

func TestRunner_NoLedgerContainsReportsFalse(t *testing.T) {
	var log []string
	r := NewRunner(&fakeMigrator{name: "backend", log: &log})

	applied, err := r.Contains(context.Background(), addUsers())
	require.NoError(t, err)
	assert.False(t, applied)
}

func addPosts() Migration {
	return Def{
		ID: "add_posts",
		Apply: func(x *Executor) error {
			return x.Table("posts").
				Increments("_id").
				String("title", 255).
				Timestamps().
				SoftDelete().
				Err()
		},
		Revert: func(x *Executor) error {
			return x.DropTable("posts")
		},
	}
}

func TestSchemaMigrator_FastForwardRestoresHooks(t *testing.T) {
	ctx := context.Background()
	clock := hooks.FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := addPosts()

	s := schema.NewSchema()
	first := NewSchemaMigrator(s, hooks.NewRegistry(), clock)
	require.NoError(t, first.Apply(ctx, m))

	// A later session starts from the migrated snapshot shape but with
	// an empty hook registry.
	reloaded := s.Clone()
	reg := hooks.NewRegistry()
	second := NewSchemaMigrator(reloaded, reg, clock)
	require.NoError(t, second.FastForward(ctx, m))

	layout, err := reloaded.Layout("posts")
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "title", "created", "updated", "removed"}, layout.FieldNames())

	r, err := record.New(layout, map[string]any{"title": "hello"})
	require.NoError(t, err)
	require.NoError(t, reg.RunInsert("posts", r))
	created, err := r.Get(hooks.FieldCreated)
	require.NoError(t, err)
	assert.Equal(t, clock.T, created)

	handled, err := reg.RunDelete("posts", r)
	require.NoError(t, err)
	assert.True(t, handled)
	removed, err := r.Get(hooks.FieldRemoved)
	require.NoError(t, err)
	assert.Equal(t, clock.T, removed)
}

func TestRunner_RollbackForgetsFastForwardState(t *testing.T) {
	ctx := context.Background()
	var log []string
	r := NewRunner(&fakeMigrator{name: "backend", log: &log})
	m := addUsers()

	require.NoError(t, r.Apply(ctx, m))
	require.NoError(t, r.Rollback(ctx, m))
	require.NoError(t, r.Apply(ctx, m))

	assert.Equal(t, []string{
		"backend:up:add_users",
		"backend:down:add_users",
		"backend:up:add_users",
	}, log)
}

func TestSchemaMigrator_MutatesSnapshot(t *testing.T) {
	s := schema.NewSchema()
	mg := NewSchemaMigrator(s, nil, nil)

	require.NoError(t, mg.Apply(context.Background(), addUsers()))
	require.True(t, s.Has("users"))

	layout, err := s.Layout("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "name"}, layout.FieldNames())

	require.NoError(t, mg.Rollback(context.Background(), addUsers()))
	assert.False(t, s.Has("users"))
}

func TestManifest_RollbackAllRunsInReverse(t *testing.T) {
	var log []string
	r := NewRunner(&fakeMigrator{name: "backend", log: &log})

	manifest := Manifest{
		Def{ID: "one", Apply: func(*Executor) error { return nil }},
		Def{ID: "two", Apply: func(*Executor) error { return nil }},
	}

	require.NoError(t, r.ApplyAll(context.Background(), manifest))
	require.NoError(t, r.RollbackAll(context.Background(), manifest))

	assert.Equal(t, []string{
		"backend:up:one",
		"backend:up:two",
		"backend:down:two",
		"backend:down:one",
	}, log)
}
