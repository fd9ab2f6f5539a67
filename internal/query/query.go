package query

import (
	"strings"

	"github.com/strata-db/strata/internal/predicate"
	"github.com/strata-db/strata/internal/schema"
)

// Query aggregates one source, joins, a filter tree, projections,
// grouping, ordering and pagination.
//
// Query implements Source (so it can back another query's Alias as a
// sub-query) and predicate.Operand (so it can be the target of a
// restriction).
type Query struct {
	source       *Alias
	joins        []*Join
	restrictions *predicate.RestrictionGroup
	selects      []SelectExpression
	groupBy      []string
	orderBy      []OrderBy
	offset       *int64
	limit        *int64
}

// New creates a query over the given source. The root restriction
// group defaults to AND; offset and limit start unbounded.
func New(source Source, alias string) *Query {
	return &Query{
		source:       NewAlias(source, alias),
		restrictions: predicate.NewGroup(predicate.ConnectiveAnd),
	}
}

// NewTableQuery is shorthand for a query over a table layout.
func NewTableQuery(l *schema.Layout) *Query {
	return New(NewTable(l), "")
}

// SourceAlias returns the query's aliased source.
func (q *Query) SourceAlias() *Alias { return q.source }

// Restrictions returns the root filter group.
func (q *Query) Restrictions() *predicate.RestrictionGroup { return q.restrictions }

// Joins returns the joins in attachment order.
func (q *Query) Joins() []*Join { return q.joins }

// Selects returns the projections in attachment order.
func (q *Query) Selects() []SelectExpression { return q.selects }

// Groups returns the group-by identifiers.
func (q *Query) Groups() []string { return q.groupBy }

// Orders returns the ordering terms.
func (q *Query) Orders() []OrderBy { return q.orderBy }

// Offset returns the pagination offset, nil when unbounded.
func (q *Query) Offset() *int64 { return q.offset }

// Limit returns the pagination limit, nil when unbounded.
func (q *Query) Limit() *int64 { return q.limit }

// JoinTable attaches an aliased table. When a configurator is given it
// runs synchronously with the new join and the query itself, so the
// caller can wire cross-table restrictions before the join is
// returned. There are no deferred execution semantics.
func (q *Query) JoinTable(l *schema.Layout, alias string, configure func(*Join, *Query)) *Join {
	j := &Join{
		alias: NewAlias(NewTable(l), alias),
		on:    predicate.NewGroup(predicate.ConnectiveAnd),
	}
	q.joins = append(q.joins, j)
	if configure != nil {
		configure(j, q)
	}
	return j
}

// Select appends a plain column projection. The name must resolve
// against the source or one of the joins; unresolved names fail with a
// lookup error.
func (q *Query) Select(name string, alias ...string) error {
	if err := q.resolve(name); err != nil {
		return err
	}
	se := SelectExpression{Field: name}
	if len(alias) > 0 {
		se.Alias = alias[0]
	}
	q.selects = append(q.selects, se)
	return nil
}

// Aggregate appends an aggregate projection. An empty alias derives
// one from the function and the (possibly qualified) field via
// NewAggregate, so output naming stays deterministic.
func (q *Query) Aggregate(field string, fn AggregateFunc, alias string) error {
	if err := q.resolve(field); err != nil {
		return err
	}
	if alias == "" {
		ref := OutputRef{Field: field}
		if table, name, ok := strings.Cut(field, "."); ok {
			ref = OutputRef{Table: table, Field: name}
		}
		alias = NewAggregate(fn, ref).Alias
	}
	q.selects = append(q.selects, SelectExpression{Field: field, Alias: alias, Aggregate: fn})
	return nil
}

// GroupBy appends group-by identifiers, each resolved against the
// query's namespaces.
func (q *Query) GroupBy(names ...string) error {
	for _, n := range names {
		if err := q.resolve(n); err != nil {
			return err
		}
	}
	q.groupBy = append(q.groupBy, names...)
	return nil
}

// OrderBy appends one ordering term.
func (q *Query) OrderBy(name string, descending bool) error {
	if err := q.resolve(name); err != nil {
		return err
	}
	q.orderBy = append(q.orderBy, OrderBy{Field: name, Descending: descending})
	return nil
}

// Range sets offset and limit independently. Either may be nil to mean
// unbounded from here.
func (q *Query) Range(skip, count *int64) {
	q.offset = skip
	q.limit = count
}

// WithoutSelect returns a structural copy with projections and
// ordering cleared but restrictions, joins and grouping intact. Used
// for metadata-only queries (counting matches) where projection and
// ordering are irrelevant or invalid. The filter tree and joins are
// shared with the original, not deep-copied.
func (q *Query) WithoutSelect() *Query {
	cp := &Query{
		source:       q.source,
		joins:        q.joins,
		restrictions: q.restrictions,
		offset:       q.offset,
		limit:        q.limit,
	}
	cp.groupBy = append(cp.groupBy, q.groupBy...)
	return cp
}

// resolve checks an identifier against the source and join namespaces.
// Qualified names ("alias.field") resolve against the matching alias
// only.
func (q *Query) resolve(name string) error {
	if table, field, ok := strings.Cut(name, "."); ok {
		for _, a := range q.namespaces() {
			if a.Name() == schema.NormalizeIdent(table) {
				if a.HasOutput(field) {
					return nil
				}
				return &schema.LookupError{Kind: "identifier", Name: field, Scope: a.Name()}
			}
		}
		return &schema.LookupError{Kind: "identifier", Name: table, Scope: q.source.Name()}
	}
	for _, a := range q.namespaces() {
		if a.HasOutput(name) {
			return nil
		}
	}
	return &schema.LookupError{Kind: "identifier", Name: name, Scope: q.source.Name()}
}

func (q *Query) namespaces() []*Alias {
	out := make([]*Alias, 0, 1+len(q.joins))
	out = append(out, q.source)
	for _, j := range q.joins {
		out = append(out, j.alias)
	}
	return out
}

// SourceName implements Source for sub-query use.
func (q *Query) SourceName() string { return q.source.Name() }

// HasOutput implements Source: a sub-query's namespace is its
// projection output names.
func (q *Query) HasOutput(field string) bool {
	for _, se := range q.selects {
		if se.OutputName() == field {
			return true
		}
	}
	return false
}

// Outputs implements Source.
func (q *Query) Outputs() []string {
	out := make([]string, len(q.selects))
	for i, se := range q.selects {
		out[i] = se.OutputName()
	}
	return out
}

// OperandName implements predicate.Operand: a sub-query used as a
// restriction target contributes its first projection's output name.
func (q *Query) OperandName() string {
	if len(q.selects) == 0 {
		return q.source.Name()
	}
	return q.selects[0].OutputName()
}
