package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/hooks"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
)

func TestIncrements_PromotesToPrimary(t *testing.T) {
	x := NewExecutor(schema.NewSchema(), nil, nil)
	users := x.Table("users").Increments("_id")
	require.NoError(t, users.Err())

	pk := users.Layout().PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, PrimaryIndexName, pk.Name)
	assert.True(t, pk.IsUnique())

	f, ok := users.Layout().PrimaryKeyField()
	require.True(t, ok)
	assert.True(t, f.AutoIncrement)
	assert.True(t, f.Unsigned)
	assert.Equal(t, schema.KindLong, f.Type.Kind)
}

func TestPrimary_SecondCallFails(t *testing.T) {
	x := NewExecutor(schema.NewSchema(), nil, nil)
	users := x.Table("users").
		Long("a").
		Long("b").
		Primary("a").
		Primary("b")

	require.Error(t, users.Err())
	assert.True(t, schema.IsInvariant(users.Err(), schema.ErrCodeDuplicatePrimary))
}

func TestIncrements_AfterPrimaryFails(t *testing.T) {
	x := NewExecutor(schema.NewSchema(), nil, nil)
	users := x.Table("users").Increments("_id").Increments("_id2")
	assert.True(t, schema.IsInvariant(users.Err(), schema.ErrCodeDuplicatePrimary))
}

func TestEnum_SeparatorInOptionFailsChain(t *testing.T) {
	x := NewExecutor(schema.NewSchema(), nil, nil)
	users := x.Table("users").Enum("state", []string{"a,b"})

	require.Error(t, users.Err())
	assert.True(t, schema.IsInvariant(users.Err(), schema.ErrCodeEnumSeparator))

	// The chain is stuck: later calls are no-ops
	users.String("name", 255)
	assert.False(t, users.Layout().HasField("name"))
}

func TestIndex_UnknownFieldIsLookupError(t *testing.T) {
	x := NewExecutor(schema.NewSchema(), nil, nil)
	users := x.Table("users").String("name", 255).Index("idx_nope", "nope")
	assert.True(t, schema.IsNotFound(users.Err()))

	x2 := NewExecutor(schema.NewSchema(), nil, nil)
	ok := x2.Table("users").String("name", 255).Unique("uq_name", "name")
	require.NoError(t, ok.Err())

	idx, err := ok.Layout().Index("uq_name")
	require.NoError(t, err)
	assert.True(t, idx.IsUnique())
	assert.False(t, idx.Primary)
}

func TestForeign_RequiresRemotePrimary(t *testing.T) {
	x := NewExecutor(schema.NewSchema(), nil, nil)
	authors := x.Table("authors").String("name", 255)
	books := x.Table("books").Increments("_id").Foreign("author", authors)

	require.Error(t, books.Err())
	assert.True(t, schema.IsInvariant(books.Err(), schema.ErrCodeMissingPrimary))
}

func TestForeign_CreatesNullableLocalField(t *testing.T) {
	x := NewExecutor(schema.NewSchema(), nil, nil)
	authors := x.Table("authors").Increments("_id")
	books := x.Table("books").Increments("_id").Foreign("author", authors)
	require.NoError(t, books.Err())

	f, err := books.Layout().Field("author_id")
	require.NoError(t, err)
	assert.True(t, f.Nullable)
	assert.Equal(t, schema.KindLong, f.Type.Kind)

	idx, err := books.Layout().Index("fk_books_author")
	require.NoError(t, err)
	require.NotNil(t, idx.Foreign)
	assert.Equal(t, "authors", idx.Foreign.Table)
	assert.Equal(t, "_id", idx.Foreign.Field)
}

func TestTimestamps_FieldsAndInsertHook(t *testing.T) {
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	reg := hooks.NewRegistry()
	x := NewExecutor(schema.NewSchema(), reg, hooks.FixedClock{T: now})

	users := x.Table("users").
		Increments("_id").
		String("name", 255).
		Timestamps()
	require.NoError(t, users.Err())

	layout := users.Layout()
	assert.Equal(t, []string{"_id", "name", "created", "updated"}, layout.FieldNames())

	pk := layout.PrimaryKey()
	require.NotNil(t, pk)
	require.Len(t, pk.Fields, 1)
	assert.Equal(t, "_id", pk.Fields[0].Name)

	r, err := record.New(layout, map[string]any{"name": "ada"})
	require.NoError(t, err)
	require.NoError(t, reg.RunInsert("users", r))

	created, err := r.Get("created")
	require.NoError(t, err)
	assert.Equal(t, now, created)
}

func TestSoftDelete_RegistersDeleteAndQueryHooks(t *testing.T) {
	reg := hooks.NewRegistry()
	x := NewExecutor(schema.NewSchema(), reg, hooks.FixedClock{T: time.Unix(0, 0).UTC()})

	posts := x.Table("posts").Increments("_id").SoftDelete()
	require.NoError(t, posts.Err())
	assert.True(t, posts.Layout().HasField("removed"))

	r, err := record.New(posts.Layout(), nil)
	require.NoError(t, err)
	r.Commit()

	handled, err := reg.RunDelete("posts", r)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, r.Diff(), "removed")
}

func TestDrop_RecordsOperations(t *testing.T) {
	s := schema.NewSchema()
	seed := NewExecutor(s, nil, nil)
	require.NoError(t, seed.Table("users").Increments("_id").String("name", 255).Err())

	x := NewExecutor(s, nil, nil)
	users := x.Table("users").Drop("name").DropIndex(PrimaryIndexName)
	require.NoError(t, users.Err())

	assert.False(t, users.Layout().HasField("name"))
	assert.Nil(t, users.Layout().PrimaryKey())

	ops := x.Operations()
	require.Len(t, ops, 2)
	assert.IsType(t, schema.DropField{}, ops[0])
	assert.IsType(t, schema.DropIndex{}, ops[1])

	// users existed before this run
	assert.Empty(t, x.CreatedTables())
}

func TestReplayExecutor_EnsuresExistingShape(t *testing.T) {
	build := func(x *Executor) error {
		authors := x.Table("authors").Increments("_id").String("name", 255)
		if err := authors.Err(); err != nil {
			return err
		}
		return x.Table("books").
			Increments("_id").
			String("title", 255).
			Index("by_title", "title").
			Foreign("author", authors).
			Err()
	}

	s := schema.NewSchema()
	require.NoError(t, build(NewExecutor(s, nil, nil)))

	// A second run over the same schema tolerates every structure that
	// already exists and records nothing for DDL rendering.
	r := NewReplayExecutor(s, nil, nil)
	require.NoError(t, build(r))
	assert.Empty(t, r.Operations())
	assert.Empty(t, r.CreatedTables())

	layout, err := s.Layout("books")
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "title", "author_id"}, layout.FieldNames())
	pk, ok := layout.PrimaryKeyField()
	require.True(t, ok)
	assert.Equal(t, "_id", pk.Name)
}

func TestReplayExecutor_ToleratesAbsentDropTargets(t *testing.T) {
	s := schema.NewSchema()
	x := NewExecutor(s, nil, nil)
	require.NoError(t, x.Table("posts").Increments("_id").Err())

	r := NewReplayExecutor(s, nil, nil)
	require.NoError(t, r.Table("posts").Drop("legacy").DropIndex("by_legacy").Err())
	require.NoError(t, r.DropTable("missing"))
	assert.Empty(t, r.Operations())
}
