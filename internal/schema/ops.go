package schema

// Operation describes one layout mutation for dialect grammars to
// render as DDL. Executors record operations as they mutate a layout;
// backend migrators replay the log.
//
// This is a sealed interface - only types in this package implement it.
type Operation interface {
	operationNode() // Marker method - seals interface to this package
}

// AddField adds a column.
type AddField struct {
	Table string
	Field Field
}

func (AddField) operationNode() {}

// DropField removes a column.
type DropField struct {
	Table string
	Name  string
}

func (DropField) operationNode() {}

// AddIndex registers an index (or foreign key, when Index.Foreign is
// set).
type AddIndex struct {
	Table string
	Index Index
}

func (AddIndex) operationNode() {}

// DropIndex removes an index.
type DropIndex struct {
	Table string
	Name  string
}

func (DropIndex) operationNode() {}
