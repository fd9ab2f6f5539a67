package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/predicate"
	"github.com/strata-db/strata/internal/schema"
)

func booksLayout() *schema.Layout {
	l := schema.NewLayout("books")
	l.SetField(schema.Field{Name: "_id", Type: schema.LongType(), AutoIncrement: true, Unsigned: true})
	l.SetField(schema.Field{Name: "title", Type: schema.StringType(255), Nullable: true})
	l.SetField(schema.Field{Name: "author_id", Type: schema.LongType(), Nullable: true})
	return l
}

func authorsLayout() *schema.Layout {
	l := schema.NewLayout("authors")
	l.SetField(schema.Field{Name: "_id", Type: schema.LongType(), AutoIncrement: true, Unsigned: true})
	l.SetField(schema.Field{Name: "name", Type: schema.StringType(255), Nullable: true})
	return l
}

func TestSelect_ResolvesAgainstSource(t *testing.T) {
	q := NewTableQuery(booksLayout())

	require.NoError(t, q.Select("title"))
	require.NoError(t, q.Select("title", "book_title"))

	err := q.Select("tittle")
	require.Error(t, err)
	assert.True(t, schema.IsNotFound(err))

	require.Len(t, q.Selects(), 2)
	assert.Equal(t, "title", q.Selects()[0].OutputName())
	assert.Equal(t, "book_title", q.Selects()[1].OutputName())
}

func TestJoinTable_ConfiguratorRunsSynchronously(t *testing.T) {
	q := NewTableQuery(booksLayout())

	var seen *Join
	j := q.JoinTable(authorsLayout(), "a", func(join *Join, query *Query) {
		seen = join
		join.On().And(predicate.Field("a._id", "=", predicate.FieldRef("books.author_id")))
	})

	assert.Same(t, j, seen)
	require.Len(t, q.Joins(), 1)
	assert.Equal(t, "a", j.Alias().Name())
	assert.Len(t, j.On().Children(), 1)

	// Joined namespace participates in resolution
	require.NoError(t, q.Select("a.name"))
	require.NoError(t, q.OrderBy("a.name", false))

	err := q.Select("a.nope")
	assert.True(t, schema.IsNotFound(err))

	err = q.Select("b.name")
	assert.True(t, schema.IsNotFound(err))
}

func TestRange_IndependentNullableBounds(t *testing.T) {
	q := NewTableQuery(booksLayout())

	skip, count := int64(10), int64(5)
	q.Range(&skip, &count)
	require.NotNil(t, q.Offset())
	require.NotNil(t, q.Limit())
	assert.Equal(t, int64(10), *q.Offset())
	assert.Equal(t, int64(5), *q.Limit())

	q.Range(nil, &count)
	assert.Nil(t, q.Offset())
	require.NotNil(t, q.Limit())

	q.Range(nil, nil)
	assert.Nil(t, q.Offset())
	assert.Nil(t, q.Limit())
}

func TestWithoutSelect_KeepsFilterJoinsGrouping(t *testing.T) {
	q := NewTableQuery(booksLayout())
	require.NoError(t, q.Select("title"))
	require.NoError(t, q.OrderBy("title", true))
	require.NoError(t, q.GroupBy("author_id"))
	q.Restrictions().And(predicate.Field("title", "=", "dune"))
	q.JoinTable(authorsLayout(), "a", nil)

	cp := q.WithoutSelect()

	assert.Empty(t, cp.Selects())
	assert.Empty(t, cp.Orders())
	assert.Equal(t, []string{"author_id"}, cp.Groups())
	assert.Same(t, q.Restrictions(), cp.Restrictions())
	assert.Len(t, cp.Joins(), 1)

	// The original is untouched
	assert.Len(t, q.Selects(), 1)
	assert.Len(t, q.Orders(), 1)
}

func TestAggregate_ExplicitAliasNoDerivation(t *testing.T) {
	q := NewTableQuery(booksLayout())
	require.NoError(t, q.Aggregate("_id", AggCount, "total"))

	require.Len(t, q.Selects(), 1)
	se := q.Selects()[0]
	assert.Equal(t, AggCount, se.Aggregate)
	assert.Equal(t, "total", se.OutputName())
}

func TestAggregate_EmptyAliasDerives(t *testing.T) {
	q := NewTableQuery(booksLayout())
	require.NoError(t, q.Aggregate("_id", AggCount, ""))

	q.JoinTable(authorsLayout(), "a", nil)
	require.NoError(t, q.Aggregate("a.name", AggMax, ""))

	require.Len(t, q.Selects(), 2)
	assert.Equal(t, "count__id", q.Selects()[0].OutputName())
	assert.Equal(t, "max_a_name", q.Selects()[1].OutputName())
}

func TestNewAggregate_DerivedAliasIsDeterministic(t *testing.T) {
	a := NewAggregate(AggCount, OutputRef{Table: "b", Field: "_id"})
	assert.Equal(t, "count_b__id", a.Alias)

	b := NewAggregate(AggCount, OutputRef{Table: "b", Field: "_id"})
	assert.Equal(t, a.Alias, b.Alias)

	c := NewAggregate(AggSum, OutputRef{Field: "qty"})
	assert.Equal(t, "sum_qty", c.Alias)
}

func TestSubQueryAsSource(t *testing.T) {
	inner := NewTableQuery(booksLayout())
	require.NoError(t, inner.Select("author_id", "aid"))

	outer := New(inner, "sub")
	require.NoError(t, outer.Select("aid"))

	err := outer.Select("title")
	assert.True(t, schema.IsNotFound(err))

	assert.Equal(t, "aid", inner.OperandName())
}
