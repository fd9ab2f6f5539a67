package sqlite

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/strata-db/strata/internal/driver"
	"github.com/strata-db/strata/internal/predicate"
	"github.com/strata-db/strata/internal/query"
)

// QueryGrammar renders the abstract query model to SQLite SELECTs.
type QueryGrammar struct{}

// RenderQuery implements driver.QueryGrammar.
func (g QueryGrammar) RenderQuery(q *query.Query) (driver.Statement, error) {
	var b sqlBuilder
	if err := b.selectQuery(q); err != nil {
		return driver.Statement{}, err
	}
	return driver.Statement{SQL: b.sql.String(), Args: b.args}, nil
}

// sqlBuilder accumulates SQL text and args in statement order.
type sqlBuilder struct {
	sql  strings.Builder
	args []any
}

func (b *sqlBuilder) selectQuery(q *query.Query) error {
	b.sql.WriteString("SELECT ")
	b.projections(q)

	b.sql.WriteString(" FROM ")
	if err := b.source(q.SourceAlias()); err != nil {
		return err
	}

	for _, j := range q.Joins() {
		b.sql.WriteString(" JOIN ")
		if err := b.source(j.Alias()); err != nil {
			return err
		}
		if !j.On().Empty() {
			b.sql.WriteString(" ON ")
			if err := b.group(j.On()); err != nil {
				return err
			}
		}
	}

	if !q.Restrictions().Empty() {
		b.sql.WriteString(" WHERE ")
		if err := b.group(q.Restrictions()); err != nil {
			return err
		}
	}

	if groups := q.Groups(); len(groups) > 0 {
		b.sql.WriteString(" GROUP BY ")
		for i, name := range groups {
			if i > 0 {
				b.sql.WriteString(", ")
			}
			b.sql.WriteString(quoteQualified(name))
		}
	}

	if orders := q.Orders(); len(orders) > 0 {
		b.sql.WriteString(" ORDER BY ")
		for i, o := range orders {
			if i > 0 {
				b.sql.WriteString(", ")
			}
			b.sql.WriteString(quoteQualified(o.Field))
			if o.Descending {
				b.sql.WriteString(" DESC")
			} else {
				b.sql.WriteString(" ASC")
			}
		}
	}

	// SQLite accepts OFFSET only after LIMIT; -1 means unbounded.
	if q.Limit() != nil || q.Offset() != nil {
		b.sql.WriteString(" LIMIT ")
		if q.Limit() != nil {
			fmt.Fprintf(&b.sql, "%d", *q.Limit())
		} else {
			b.sql.WriteString("-1")
		}
		if q.Offset() != nil {
			fmt.Fprintf(&b.sql, " OFFSET %d", *q.Offset())
		}
	}
	return nil
}

func (b *sqlBuilder) projections(q *query.Query) {
	selects := q.Selects()
	if len(selects) == 0 {
		b.sql.WriteString("*")
		return
	}
	for i, se := range selects {
		if i > 0 {
			b.sql.WriteString(", ")
		}
		if se.Aggregate != "" {
			fmt.Fprintf(&b.sql, "%s(%s)", se.Aggregate, quoteQualified(se.Field))
		} else {
			b.sql.WriteString(quoteQualified(se.Field))
		}
		if se.Alias != "" {
			b.sql.WriteString(" AS ")
			b.sql.WriteString(quoteIdent(se.Alias))
		}
	}
}

func (b *sqlBuilder) source(a *query.Alias) error {
	switch src := a.Source().(type) {
	case query.Table:
		b.sql.WriteString(quoteIdent(src.SourceName()))
		if a.Name() != src.SourceName() {
			b.sql.WriteString(" AS ")
			b.sql.WriteString(quoteIdent(a.Name()))
		}
		return nil
	case *query.Query:
		b.sql.WriteString("(")
		if err := b.selectQuery(src); err != nil {
			return err
		}
		b.sql.WriteString(") AS ")
		b.sql.WriteString(quoteIdent(a.Name()))
		return nil
	default:
		return fmt.Errorf("unsupported source type: %T", src)
	}
}

func (b *sqlBuilder) group(g *predicate.RestrictionGroup) error {
	connective := " " + string(g.Connective()) + " "
	for i, child := range g.Children() {
		if i > 0 {
			b.sql.WriteString(connective)
		}
		switch node := child.(type) {
		case *predicate.Restriction:
			if err := b.restriction(node); err != nil {
				return err
			}
		case *predicate.RestrictionGroup:
			if node.Empty() {
				// A vacuously true subgroup renders as a neutral term.
				b.sql.WriteString("1=1")
				continue
			}
			b.sql.WriteString("(")
			if err := b.group(node); err != nil {
				return err
			}
			b.sql.WriteString(")")
		default:
			return fmt.Errorf("unsupported filter node: %T", child)
		}
	}
	return nil
}

func (b *sqlBuilder) restriction(r *predicate.Restriction) error {
	if err := b.operand(r.Target()); err != nil {
		return err
	}

	op := r.Operator()
	b.sql.WriteString(" ")
	b.sql.WriteString(string(op))
	b.sql.WriteString(" ")

	switch value := r.Value().(type) {
	case nil:
		b.sql.WriteString("NULL")
	case predicate.FieldRef:
		b.sql.WriteString(quoteQualified(string(value)))
	default:
		if op == predicate.OpIn || op == predicate.OpNotIn {
			return b.valueList(value)
		}
		b.sql.WriteString("?")
		b.args = append(b.args, value)
	}
	return nil
}

func (b *sqlBuilder) operand(o predicate.Operand) error {
	switch target := o.(type) {
	case predicate.FieldRef:
		b.sql.WriteString(quoteQualified(string(target)))
		return nil
	case *query.Query:
		b.sql.WriteString("(")
		if err := b.selectQuery(target); err != nil {
			return err
		}
		b.sql.WriteString(")")
		return nil
	default:
		return fmt.Errorf("unsupported restriction target: %T", o)
	}
}

func (b *sqlBuilder) valueList(value any) error {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		// Scalar under IN still renders as a one-element list.
		b.sql.WriteString("(?)")
		b.args = append(b.args, value)
		return nil
	}
	b.sql.WriteString("(")
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.sql.WriteString(", ")
		}
		b.sql.WriteString("?")
		b.args = append(b.args, v.Index(i).Interface())
	}
	b.sql.WriteString(")")
	return nil
}

// quoteIdent double-quotes one identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes a possibly alias-qualified identifier
// ("a.field" becomes "a"."field").
func quoteQualified(name string) string {
	if table, field, ok := strings.Cut(name, "."); ok {
		return quoteIdent(table) + "." + quoteIdent(field)
	}
	return quoteIdent(name)
}
