// Package manifest compiles declarative CUE table definitions into
// migrations.
//
// A manifest file declares tables under the top-level "table" struct:
//
// CUE hides labels that start with an underscore, so the conventional
// key column is declared quoted:
//
//	table: users: {
//		columns: {
//			"_id": "increments"
//			name:  {type: "string", length: 255}
//			state: {type: "enum", options: ["draft", "active"]}
//		}
//		indexes: uq_name: {fields: ["name"], unique: true}
//		timestamps: true
//	}
//
// Each table compiles to one migration named "create_<table>" whose
// Down drops the table. Declaration order is preserved, so tables that
// reference others by foreign key must be declared after them.
package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/strata-db/strata/internal/migrate"
)

// Column kinds accepted in manifest files. They mirror the fluent DSL
// verbs one to one.
const (
	KindIncrements = "increments"
	KindInt        = "int"
	KindLong       = "long"
	KindString     = "string"
	KindText       = "text"
	KindEnum       = "enum"
	KindDateTime   = "datetime"
)

// DefaultStringLength applies to string columns that declare no length.
const DefaultStringLength = 255

// ColumnSpec is one compiled column declaration.
type ColumnSpec struct {
	Name    string
	Kind    string
	Length  int
	Options []string
}

// IndexSpec is one compiled index declaration.
type IndexSpec struct {
	Name   string
	Fields []string
	Unique bool
}

// ForeignSpec is one compiled foreign-key declaration: the local
// relation name and the referenced table.
type ForeignSpec struct {
	Name  string
	Table string
}

// TableSpec is one compiled table declaration.
type TableSpec struct {
	Name       string
	Columns    []ColumnSpec
	Primary    string
	Indexes    []IndexSpec
	Foreigns   []ForeignSpec
	Timestamps bool
	SoftDelete bool
}

// CompileTable parses a CUE value into a TableSpec. The value should be
// one table struct, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: users: { ... }`)
//	spec, err := CompileTable(v.LookupPath(cue.ParsePath("table.users")))
func CompileTable(v cue.Value) (*TableSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &TableSpec{}

	// Table name comes from the struct label.
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	columns, err := parseColumns(v)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}
	spec.Columns = columns

	if primaryVal := v.LookupPath(cue.ParsePath("primary")); primaryVal.Exists() {
		primary, err := primaryVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Primary = primary
	}

	spec.Indexes, err = parseIndexes(v)
	if err != nil {
		return nil, err
	}
	spec.Foreigns, err = parseForeigns(v)
	if err != nil {
		return nil, err
	}

	spec.Timestamps, err = parseFlag(v, "timestamps")
	if err != nil {
		return nil, err
	}
	spec.SoftDelete, err = parseFlag(v, "softDelete")
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// Migration builds the migration for this table: Up replays the column,
// index and relation declarations through the fluent DSL, Down drops
// the table.
func (s *TableSpec) Migration() migrate.Migration {
	return migrate.Def{
		ID: "create_" + s.Name,
		Apply: func(x *migrate.Executor) error {
			return s.apply(x)
		},
		Revert: func(x *migrate.Executor) error {
			return x.DropTable(s.Name)
		},
	}
}

func (s *TableSpec) apply(x *migrate.Executor) error {
	t := x.Table(s.Name)
	for _, col := range s.Columns {
		switch col.Kind {
		case KindIncrements:
			t.Increments(col.Name)
		case KindInt:
			t.Int(col.Name)
		case KindLong:
			t.Long(col.Name)
		case KindString:
			length := col.Length
			if length == 0 {
				length = DefaultStringLength
			}
			t.String(col.Name, length)
		case KindText:
			t.Text(col.Name)
		case KindEnum:
			t.Enum(col.Name, col.Options)
		case KindDateTime:
			t.DateTime(col.Name)
		}
	}
	if s.Primary != "" {
		t.Primary(s.Primary)
	}
	for _, idx := range s.Indexes {
		if idx.Unique {
			t.Unique(idx.Name, idx.Fields...)
		} else {
			t.Index(idx.Name, idx.Fields...)
		}
	}
	for _, fk := range s.Foreigns {
		t.Foreign(fk.Name, x.Table(fk.Table))
	}
	if s.Timestamps {
		t.Timestamps()
	}
	if s.SoftDelete {
		t.SoftDelete()
	}
	return t.Err()
}

// parseColumns reads the columns struct. A column is either a bare
// type-name string or a struct with type, length and options fields.
func parseColumns(v cue.Value) ([]ColumnSpec, error) {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{
			Field:   "columns",
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var columns []ColumnSpec
	for iter.Next() {
		col, err := parseColumn(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func parseColumn(name string, v cue.Value) (ColumnSpec, error) {
	col := ColumnSpec{Name: name}

	// Bare string shorthand: name: "text"
	if kind, err := v.String(); err == nil {
		col.Kind = kind
		return col, validateKind(col, v)
	}

	kindVal := v.LookupPath(cue.ParsePath("type"))
	if !kindVal.Exists() {
		return col, &CompileError{
			Field:   "columns." + name,
			Message: "column type is required",
			Pos:     v.Pos(),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return col, formatCUEError(err)
	}
	col.Kind = kind

	if lengthVal := v.LookupPath(cue.ParsePath("length")); lengthVal.Exists() {
		length, err := lengthVal.Int64()
		if err != nil {
			return col, formatCUEError(err)
		}
		col.Length = int(length)
	}

	if optionsVal := v.LookupPath(cue.ParsePath("options")); optionsVal.Exists() {
		options, err := stringList(optionsVal)
		if err != nil {
			return col, err
		}
		col.Options = options
	}

	return col, validateKind(col, v)
}

func validateKind(col ColumnSpec, v cue.Value) error {
	switch col.Kind {
	case KindIncrements, KindInt, KindLong, KindString, KindText, KindDateTime:
		return nil
	case KindEnum:
		if len(col.Options) == 0 {
			return &CompileError{
				Field:   "columns." + col.Name,
				Message: "enum columns require options",
				Pos:     v.Pos(),
			}
		}
		return nil
	default:
		return &CompileError{
			Field:   "columns." + col.Name,
			Message: fmt.Sprintf("unsupported column type %q", col.Kind),
			Pos:     v.Pos(),
		}
	}
}

func parseIndexes(v cue.Value) ([]IndexSpec, error) {
	idxVal := v.LookupPath(cue.ParsePath("indexes"))
	if !idxVal.Exists() {
		return nil, nil
	}

	iter, err := idxVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var indexes []IndexSpec
	for iter.Next() {
		name := iter.Label()
		iv := iter.Value()

		fieldsVal := iv.LookupPath(cue.ParsePath("fields"))
		if !fieldsVal.Exists() {
			return nil, &CompileError{
				Field:   "indexes." + name,
				Message: "index fields are required",
				Pos:     iv.Pos(),
			}
		}
		fields, err := stringList(fieldsVal)
		if err != nil {
			return nil, err
		}

		idx := IndexSpec{Name: name, Fields: fields}
		if uniqueVal := iv.LookupPath(cue.ParsePath("unique")); uniqueVal.Exists() {
			unique, err := uniqueVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			idx.Unique = unique
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// parseForeigns reads the foreign struct: relation name to referenced
// table name.
func parseForeigns(v cue.Value) ([]ForeignSpec, error) {
	fkVal := v.LookupPath(cue.ParsePath("foreign"))
	if !fkVal.Exists() {
		return nil, nil
	}

	iter, err := fkVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var foreigns []ForeignSpec
	for iter.Next() {
		table, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		foreigns = append(foreigns, ForeignSpec{
			Name:  iter.Label(),
			Table: table,
		})
	}
	return foreigns, nil
}

func parseFlag(v cue.Value, name string) (bool, error) {
	flagVal := v.LookupPath(cue.ParsePath(name))
	if !flagVal.Exists() {
		return false, nil
	}
	flag, err := flagVal.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return flag, nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError is a manifest compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	firstErr := errs[0]
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
