package schema

// ForeignRef points an index at a remote layout's primary-key field.
type ForeignRef struct {
	Table string `yaml:"table"`
	Field string `yaml:"field"`
}

// Index is a named index over an ordered sequence of fields. An index
// with a non-nil Foreign reference is a foreign key.
type Index struct {
	Name    string      `yaml:"name"`
	Fields  []Field     `yaml:"fields"`
	Unique  bool        `yaml:"unique,omitempty"`
	Primary bool        `yaml:"primary,omitempty"`
	Foreign *ForeignRef `yaml:"foreign,omitempty"`
}

// IsUnique reports whether the index enforces uniqueness. A primary
// index is always unique; callers must use this method rather than
// reading Unique alone when primary-ness matters.
func (i *Index) IsUnique() bool {
	return i.Unique || i.Primary
}
