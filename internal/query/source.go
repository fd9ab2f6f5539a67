package query

import "github.com/strata-db/strata/internal/schema"

// Source is anything a query can read from: a table layout or another
// query. It exposes the output field namespace used for identifier
// resolution.
type Source interface {
	// SourceName returns the table name or derived sub-query name.
	SourceName() string

	// HasOutput reports whether the source produces the named field.
	HasOutput(field string) bool

	// Outputs returns all output field names.
	Outputs() []string
}

// Table adapts a schema.Layout as a query source.
type Table struct {
	layout *schema.Layout
}

// NewTable wraps a layout.
func NewTable(l *schema.Layout) Table { return Table{layout: l} }

// Layout returns the wrapped layout.
func (t Table) Layout() *schema.Layout { return t.layout }

// SourceName implements Source.
func (t Table) SourceName() string { return t.layout.Table() }

// HasOutput implements Source.
func (t Table) HasOutput(field string) bool { return t.layout.HasField(field) }

// Outputs implements Source.
func (t Table) Outputs() []string { return t.layout.FieldNames() }

// Alias binds a source to an alias identity. Two aliases over the same
// table are distinct namespaces, which is what makes self-joins
// expressible.
type Alias struct {
	source Source
	name   string
}

// NewAlias wraps a source. An empty name defaults to the source's own
// name.
func NewAlias(source Source, name string) *Alias {
	if name == "" {
		name = source.SourceName()
	}
	return &Alias{source: source, name: schema.NormalizeIdent(name)}
}

// Name returns the alias identity.
func (a *Alias) Name() string { return a.name }

// Source returns the wrapped source.
func (a *Alias) Source() Source { return a.source }

// HasOutput reports whether the aliased source produces the field.
func (a *Alias) HasOutput(field string) bool { return a.source.HasOutput(field) }
