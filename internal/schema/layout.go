package schema

import "fmt"

// Layout is the physical shape of one table: fields in column order
// plus named indexes. Mutate only through the setter methods; they
// carry the invariant checks.
type Layout struct {
	table      string
	fieldOrder []string
	fields     map[string]*Field
	indexOrder []string
	indexes    map[string]*Index
}

// NewLayout creates an empty layout for the named table.
func NewLayout(table string) *Layout {
	return &Layout{
		table:   NormalizeIdent(table),
		fields:  make(map[string]*Field),
		indexes: make(map[string]*Index),
	}
}

// Table returns the layout's table name.
func (l *Layout) Table() string { return l.table }

// SetField inserts or replaces a field. Insertion order is column
// order; replacing an existing field keeps its position.
func (l *Layout) SetField(f Field) {
	key := NormalizeIdent(f.Name)
	f.Name = key
	if _, ok := l.fields[key]; !ok {
		l.fieldOrder = append(l.fieldOrder, key)
	}
	l.fields[key] = &f
}

// Field returns the named field or a LookupError.
func (l *Layout) Field(name string) (*Field, error) {
	f, ok := l.fields[NormalizeIdent(name)]
	if !ok {
		return nil, &LookupError{Kind: "field", Name: name, Scope: l.table}
	}
	return f, nil
}

// HasField reports whether the named field exists.
func (l *Layout) HasField(name string) bool {
	_, ok := l.fields[NormalizeIdent(name)]
	return ok
}

// UnsetField removes a field. Removing a missing field is a
// LookupError: it signals a migration authored against the wrong shape.
func (l *Layout) UnsetField(name string) error {
	key := NormalizeIdent(name)
	if _, ok := l.fields[key]; !ok {
		return &LookupError{Kind: "field", Name: name, Scope: l.table}
	}
	delete(l.fields, key)
	for i, n := range l.fieldOrder {
		if n == key {
			l.fieldOrder = append(l.fieldOrder[:i], l.fieldOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Fields returns all fields in column order.
func (l *Layout) Fields() []*Field {
	out := make([]*Field, 0, len(l.fieldOrder))
	for _, n := range l.fieldOrder {
		out = append(out, l.fields[n])
	}
	return out
}

// FieldNames returns the column names in column order.
func (l *Layout) FieldNames() []string {
	out := make([]string, len(l.fieldOrder))
	copy(out, l.fieldOrder)
	return out
}

// PutIndex inserts or replaces an index. Registering a second primary
// index fails with ErrCodeDuplicatePrimary; the invariant is enforced
// here, at mutation time, so reads never observe two primaries.
func (l *Layout) PutIndex(idx Index) error {
	key := NormalizeIdent(idx.Name)
	idx.Name = key
	if idx.Primary {
		if existing := l.PrimaryKey(); existing != nil && existing.Name != key {
			return &InvariantError{
				Code:    ErrCodeDuplicatePrimary,
				Subject: l.table,
				Message: fmt.Sprintf("primary index %q already registered", existing.Name),
			}
		}
	}
	if _, ok := l.indexes[key]; !ok {
		l.indexOrder = append(l.indexOrder, key)
	}
	l.indexes[key] = &idx
	return nil
}

// Index returns the named index or a LookupError.
func (l *Layout) Index(name string) (*Index, error) {
	idx, ok := l.indexes[NormalizeIdent(name)]
	if !ok {
		return nil, &LookupError{Kind: "index", Name: name, Scope: l.table}
	}
	return idx, nil
}

// UnsetIndex removes an index; missing indexes are a LookupError.
func (l *Layout) UnsetIndex(name string) error {
	key := NormalizeIdent(name)
	if _, ok := l.indexes[key]; !ok {
		return &LookupError{Kind: "index", Name: name, Scope: l.table}
	}
	delete(l.indexes, key)
	for i, n := range l.indexOrder {
		if n == key {
			l.indexOrder = append(l.indexOrder[:i], l.indexOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Indexes returns all indexes in registration order.
func (l *Layout) Indexes() []*Index {
	out := make([]*Index, 0, len(l.indexOrder))
	for _, n := range l.indexOrder {
		out = append(out, l.indexes[n])
	}
	return out
}

// PrimaryKey returns the primary index, or nil when the layout has
// none. At most one can exist; PutIndex blocks duplicates.
func (l *Layout) PrimaryKey() *Index {
	for _, n := range l.indexOrder {
		if l.indexes[n].Primary {
			return l.indexes[n]
		}
	}
	return nil
}

// PrimaryKeyField returns the single field backing the primary index.
// Layouts without a primary key, or with a composite one, return false.
func (l *Layout) PrimaryKeyField() (*Field, bool) {
	pk := l.PrimaryKey()
	if pk == nil || len(pk.Fields) != 1 {
		return nil, false
	}
	f, ok := l.fields[NormalizeIdent(pk.Fields[0].Name)]
	return f, ok
}

// Clone returns a deep copy of the layout.
func (l *Layout) Clone() *Layout {
	out := NewLayout(l.table)
	for _, f := range l.Fields() {
		out.SetField(*f)
	}
	for _, idx := range l.Indexes() {
		cp := *idx
		cp.Fields = append([]Field(nil), idx.Fields...)
		if idx.Foreign != nil {
			ref := *idx.Foreign
			cp.Foreign = &ref
		}
		// Clone preserves the source invariants; PutIndex cannot fail here.
		_ = out.PutIndex(cp)
	}
	return out
}

// Schema is a named collection of layouts: the in-memory snapshot of
// the last-known-applied database shape.
type Schema struct {
	order   []string
	layouts map[string]*Layout
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{layouts: make(map[string]*Layout)}
}

// Put inserts or replaces a layout.
func (s *Schema) Put(l *Layout) {
	key := l.Table()
	if _, ok := s.layouts[key]; !ok {
		s.order = append(s.order, key)
	}
	s.layouts[key] = l
}

// Layout returns the named layout or a LookupError.
func (s *Schema) Layout(table string) (*Layout, error) {
	l, ok := s.layouts[NormalizeIdent(table)]
	if !ok {
		return nil, &LookupError{Kind: "table", Name: table}
	}
	return l, nil
}

// Has reports whether the named layout exists.
func (s *Schema) Has(table string) bool {
	_, ok := s.layouts[NormalizeIdent(table)]
	return ok
}

// Remove deletes a layout; missing layouts are a LookupError.
func (s *Schema) Remove(table string) error {
	key := NormalizeIdent(table)
	if _, ok := s.layouts[key]; !ok {
		return &LookupError{Kind: "table", Name: table}
	}
	delete(s.layouts, key)
	for i, n := range s.order {
		if n == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Layouts returns all layouts in insertion order.
func (s *Schema) Layouts() []*Layout {
	out := make([]*Layout, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.layouts[n])
	}
	return out
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := NewSchema()
	for _, l := range s.Layouts() {
		out.Put(l.Clone())
	}
	return out
}
