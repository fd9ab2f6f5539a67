package sqlite

import (
	"fmt"
	"strings"

	"github.com/strata-db/strata/internal/driver"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
)

// RecordGrammar renders row writes to SQLite statements.
type RecordGrammar struct{}

// RenderInsert implements driver.RecordGrammar: only the record's
// pending values are sent, in column order.
func (g RecordGrammar) RenderInsert(l *schema.Layout, r *record.Record) (driver.Statement, error) {
	diff := r.Diff()
	cols, args := orderedValues(l, diff)
	if len(cols) == 0 {
		return driver.Statement{
			SQL: fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(l.Table())),
		}, nil
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(l.Table()),
		strings.Join(quoted, ", "),
		strings.Join(marks, ", "))
	return driver.Statement{SQL: sql, Args: args}, nil
}

// RenderUpdate implements driver.RecordGrammar: dirty columns only,
// keyed by primary key.
func (g RecordGrammar) RenderUpdate(l *schema.Layout, r *record.Record) (driver.Statement, error) {
	diff := r.Diff()
	cols, args := orderedValues(l, diff)
	if len(cols) == 0 {
		return driver.Statement{}, fmt.Errorf("update %s: record has no pending values", l.Table())
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quoteIdent(c) + " = ?"
	}

	where, keyArgs, err := primaryKeyClause(l, r)
	if err != nil {
		return driver.Statement{}, fmt.Errorf("update %s: %w", l.Table(), err)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		quoteIdent(l.Table()), strings.Join(sets, ", "), where)
	return driver.Statement{SQL: sql, Args: append(args, keyArgs...)}, nil
}

// RenderDelete implements driver.RecordGrammar: keyed by primary key.
func (g RecordGrammar) RenderDelete(l *schema.Layout, r *record.Record) (driver.Statement, error) {
	where, keyArgs, err := primaryKeyClause(l, r)
	if err != nil {
		return driver.Statement{}, fmt.Errorf("delete %s: %w", l.Table(), err)
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(l.Table()), where)
	return driver.Statement{SQL: sql, Args: keyArgs}, nil
}

// RenderDeleteBy implements driver.RecordGrammar: delete by value
// equality on one column.
func (g RecordGrammar) RenderDeleteBy(l *schema.Layout, field string, value any) (driver.Statement, error) {
	if !l.HasField(field) {
		return driver.Statement{}, &schema.LookupError{Kind: "field", Name: field, Scope: l.Table()}
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		quoteIdent(l.Table()), quoteIdent(schema.NormalizeIdent(field)))
	return driver.Statement{SQL: sql, Args: []any{value}}, nil
}

// RenderLastInsertID implements driver.RecordGrammar.
func (g RecordGrammar) RenderLastInsertID(_ *schema.Layout) (driver.Statement, error) {
	return driver.Statement{SQL: "SELECT last_insert_rowid()"}, nil
}

// orderedValues filters the layout's column order down to the fields
// present in values, keeping SQL deterministic.
func orderedValues(l *schema.Layout, values map[string]any) ([]string, []any) {
	var cols []string
	var args []any
	for _, name := range l.FieldNames() {
		if v, ok := values[name]; ok {
			cols = append(cols, name)
			args = append(args, v)
		}
	}
	return cols, args
}

func primaryKeyClause(l *schema.Layout, r *record.Record) (string, []any, error) {
	pk, err := r.Primary()
	if err != nil {
		return "", nil, err
	}
	cols, args := orderedValues(l, pk)
	terms := make([]string, len(cols))
	for i, c := range cols {
		terms[i] = quoteIdent(c) + " = ?"
	}
	return strings.Join(terms, " AND "), args, nil
}
