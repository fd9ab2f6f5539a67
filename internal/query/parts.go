package query

import (
	"strings"

	"github.com/strata-db/strata/internal/predicate"
)

// AggregateFunc names an aggregate operation.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
	AggAvg   AggregateFunc = "AVG"
)

// SelectExpression is one projection: a source field, an optional
// output alias and an optional aggregate function.
type SelectExpression struct {
	Field     string
	Alias     string
	Aggregate AggregateFunc // "" for a plain column projection
}

// OutputName returns the name the projection contributes to the
// query's output namespace.
func (s SelectExpression) OutputName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Field
}

// OutputRef names one output of an aliased source.
type OutputRef struct {
	Table string // alias name, "" for the unqualified source
	Field string
}

// Aggregate is an aggregate projection with a deterministically
// derived alias.
type Aggregate struct {
	Operation AggregateFunc
	Input     OutputRef
	Alias     string
}

// NewAggregate derives the alias from operation, table alias and field
// so output naming is stable and collision-resistant within one query.
func NewAggregate(op AggregateFunc, input OutputRef) Aggregate {
	parts := []string{strings.ToLower(string(op))}
	if input.Table != "" {
		parts = append(parts, input.Table)
	}
	if input.Field != "" {
		parts = append(parts, input.Field)
	}
	return Aggregate{
		Operation: op,
		Input:     input,
		Alias:     strings.Join(parts, "_"),
	}
}

// OrderBy is one ordering term.
type OrderBy struct {
	Field      string
	Descending bool
}

// Join attaches an aliased table to a query. Cross-table conditions
// live in the join's own AND group and render as the ON clause.
type Join struct {
	alias *Alias
	on    *predicate.RestrictionGroup
}

// Alias returns the joined source's alias.
func (j *Join) Alias() *Alias { return j.alias }

// On returns the join's condition group.
func (j *Join) On() *predicate.RestrictionGroup { return j.on }
