package conn

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/hooks"
	"github.com/strata-db/strata/internal/migrate"
	"github.com/strata-db/strata/internal/predicate"
	"github.com/strata-db/strata/internal/query"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
	"github.com/strata-db/strata/internal/sqlite"
)

var testClock = hooks.FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

func openConn(t *testing.T, path string) *Connection {
	t.Helper()
	drv, err := sqlite.Open(path)
	require.NoError(t, err)
	c, err := New(context.Background(), drv, Options{Clock: testClock})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func usersMigration() migrate.Migration {
	return migrate.Def{
		ID: "create_users",
		Apply: func(x *migrate.Executor) error {
			return x.Table("users").
				Increments("_id").
				String("name", 255).
				Timestamps().
				SoftDelete().
				Err()
		},
		Revert: func(x *migrate.Executor) error {
			return x.DropTable("users")
		},
	}
}

func notesMigration() migrate.Migration {
	return migrate.Def{
		ID: "create_notes",
		Apply: func(x *migrate.Executor) error {
			return x.Table("notes").Increments("_id").Text("body").Err()
		},
		Revert: func(x *migrate.Executor) error {
			return x.DropTable("notes")
		},
	}
}

func insertUser(t *testing.T, c *Connection, name string) *record.Record {
	t.Helper()
	layout, err := c.Schema().Layout("users")
	require.NoError(t, err)
	r, err := record.New(layout, map[string]any{"name": name})
	require.NoError(t, err)
	require.NoError(t, c.Insert(context.Background(), r))
	return r
}

func TestApplyRollback_Ledger(t *testing.T) {
	ctx := context.Background()
	c := openConn(t, ":memory:")
	m := usersMigration()

	applied, err := c.Contains(ctx, m)
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, c.Apply(ctx, m))
	applied, err = c.Contains(ctx, m)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, c.Schema().Has("users"))

	// Re-applying is a no-op, not a duplicate table error.
	require.NoError(t, c.Apply(ctx, m))

	require.NoError(t, c.Rollback(ctx, m))
	applied, err = c.Contains(ctx, m)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, c.Schema().Has("users"))

	// Rolling back an unapplied migration is a no-op.
	require.NoError(t, c.Rollback(ctx, m))
}

func TestApplyAll_RollbackAll(t *testing.T) {
	ctx := context.Background()
	c := openConn(t, ":memory:")
	manifest := migrate.Manifest{usersMigration(), notesMigration()}

	require.NoError(t, c.ApplyAll(ctx, manifest))
	assert.True(t, c.Schema().Has("users"))
	assert.True(t, c.Schema().Has("notes"))

	require.NoError(t, c.RollbackAll(ctx, manifest))
	assert.False(t, c.Schema().Has("users"))
	assert.False(t, c.Schema().Has("notes"))
}

func TestLedger_PersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "strata.db")
	m := usersMigration()

	first := openConn(t, path)
	require.NoError(t, first.Apply(ctx, m))
	require.NoError(t, first.Close())

	second := openConn(t, path)
	applied, err := second.Contains(ctx, m)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestSnapshotReload_FastForwardKeepsHooks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "strata.db")
	snapPath := filepath.Join(dir, "snapshot.yaml")
	m := usersMigration()

	first := openConn(t, path)
	require.NoError(t, first.Apply(ctx, m))
	insertUser(t, first, "ada")
	require.NoError(t, schema.SaveSnapshotFile(snapPath, first.Schema()))
	require.NoError(t, first.Close())

	// A new session starts from the persisted snapshot and
	// fast-forwards past the already applied migration.
	reloaded, err := schema.LoadSnapshotFile(snapPath)
	require.NoError(t, err)
	drv, err := sqlite.Open(path)
	require.NoError(t, err)
	second, err := New(ctx, drv, Options{Snapshot: reloaded, Clock: testClock})
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	require.NoError(t, second.Apply(ctx, m))

	// Timestamp hooks are live in the resumed session.
	grace := insertUser(t, second, "grace")
	created, err := grace.Get(hooks.FieldCreated)
	require.NoError(t, err)
	assert.Equal(t, testClock.T, created)

	// Soft delete is live too: the row is stamped, not removed.
	require.NoError(t, second.Delete(ctx, grace))
	removed, err := grace.Get(hooks.FieldRemoved)
	require.NoError(t, err)
	assert.Equal(t, testClock.T, removed)

	layout, err := second.Schema().Layout("users")
	require.NoError(t, err)
	n, err := second.Count(ctx, query.NewTableQuery(layout))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	q, err := second.Query("users")
	require.NoError(t, err)
	n, err = second.Count(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInsert_GeneratedKeyAndTimestamps(t *testing.T) {
	c := openConn(t, ":memory:")
	require.NoError(t, c.Apply(context.Background(), usersMigration()))

	r := insertUser(t, c, "ada")

	assert.False(t, r.Dirty())
	id, err := r.Get("_id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	created, err := r.Get(hooks.FieldCreated)
	require.NoError(t, err)
	assert.Equal(t, testClock.T, created)
	updated, err := r.Get(hooks.FieldUpdated)
	require.NoError(t, err)
	assert.Equal(t, testClock.T, updated)
}

func TestSelect_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openConn(t, ":memory:")
	require.NoError(t, c.Apply(ctx, usersMigration()))
	insertUser(t, c, "ada")
	insertUser(t, c, "grace")

	q, err := c.Query("users")
	require.NoError(t, err)
	require.NoError(t, q.Select("name"))
	q.Restrictions().And(predicate.Field("name", "=", "ada"))

	rows, err := c.Select(ctx, q)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var name string
	require.NoError(t, rows.Scan(&name))
	assert.Equal(t, "ada", name)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Err())
}

func TestUpdate_DirtyColumnsOnly(t *testing.T) {
	ctx := context.Background()
	c := openConn(t, ":memory:")
	require.NoError(t, c.Apply(ctx, usersMigration()))
	r := insertUser(t, c, "ada")

	require.NoError(t, r.Set("name", "ada lovelace"))
	require.NoError(t, c.Update(ctx, r))
	assert.False(t, r.Dirty())

	q, err := c.Query("users")
	require.NoError(t, err)
	q.Restrictions().And(predicate.Field("name", "=", "ada lovelace"))
	n, err := c.Count(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdate_CleanRecordIsNoOp(t *testing.T) {
	ctx := context.Background()
	c := openConn(t, ":memory:")
	require.NoError(t, c.Apply(ctx, notesMigration()))

	layout, err := c.Schema().Layout("notes")
	require.NoError(t, err)
	r, err := record.New(layout, map[string]any{"body": "x"})
	require.NoError(t, err)
	require.NoError(t, c.Insert(ctx, r))

	// No pending values and no update hooks: nothing to write.
	require.NoError(t, c.Update(ctx, r))
}

func TestDelete_SoftDeleteFiltersQueries(t *testing.T) {
	ctx := context.Background()
	c := openConn(t, ":memory:")
	require.NoError(t, c.Apply(ctx, usersMigration()))
	ada := insertUser(t, c, "ada")
	insertUser(t, c, "grace")

	require.NoError(t, c.Delete(ctx, ada))

	removed, err := ada.Get(hooks.FieldRemoved)
	require.NoError(t, err)
	assert.Equal(t, testClock.T, removed)

	// Hook-built queries exclude the stamped row.
	q, err := c.Query("users")
	require.NoError(t, err)
	n, err := c.Count(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The row itself is still in storage.
	layout, err := c.Schema().Layout("users")
	require.NoError(t, err)
	raw := query.NewTableQuery(layout)
	n, err = c.Count(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDelete_HardDeleteRemovesRow(t *testing.T) {
	ctx := context.Background()
	c := openConn(t, ":memory:")
	require.NoError(t, c.Apply(ctx, notesMigration()))

	layout, err := c.Schema().Layout("notes")
	require.NoError(t, err)
	r, err := record.New(layout, map[string]any{"body": "x"})
	require.NoError(t, err)
	require.NoError(t, c.Insert(ctx, r))

	require.NoError(t, c.Delete(ctx, r))

	n, err := c.Count(ctx, query.NewTableQuery(layout))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestQuery_UnknownTable(t *testing.T) {
	c := openConn(t, ":memory:")
	_, err := c.Query("missing")
	require.Error(t, err)
}

func TestNew_DisabledLedger(t *testing.T) {
	ctx := context.Background()
	drv, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	c, err := New(ctx, drv, Options{DisableLedger: true, Clock: testClock})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	assert.Nil(t, c.Tags())
	m := usersMigration()
	require.NoError(t, c.Apply(ctx, m))
	applied, err := c.Contains(ctx, m)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSession_Unique(t *testing.T) {
	a := openConn(t, ":memory:")
	b := openConn(t, ":memory:")
	assert.NotEmpty(t, a.Session())
	assert.NotEqual(t, a.Session(), b.Session())
}
