package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot serialization. The snapshot caches the last-known-applied
// schema shape so a process can reload it and fast-forward migrations
// against it instead of rebuilding from scratch.

type layoutDoc struct {
	Table   string  `yaml:"table"`
	Fields  []Field `yaml:"fields"`
	Indexes []Index `yaml:"indexes,omitempty"`
}

type snapshotDoc struct {
	Layouts []layoutDoc `yaml:"layouts"`
}

// SaveSnapshot writes the schema as YAML.
func SaveSnapshot(w io.Writer, s *Schema) error {
	doc := snapshotDoc{}
	for _, l := range s.Layouts() {
		ld := layoutDoc{Table: l.Table()}
		for _, f := range l.Fields() {
			ld.Fields = append(ld.Fields, *f)
		}
		for _, idx := range l.Indexes() {
			ld.Indexes = append(ld.Indexes, *idx)
		}
		doc.Layouts = append(doc.Layouts, ld)
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a YAML snapshot back into a Schema. The loaded
// schema replaces the in-memory one before migrations are
// fast-forwarded against it.
func LoadSnapshot(r io.Reader) (*Schema, error) {
	var doc snapshotDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	s := NewSchema()
	for _, ld := range doc.Layouts {
		l := NewLayout(ld.Table)
		for _, f := range ld.Fields {
			l.SetField(f)
		}
		for _, idx := range ld.Indexes {
			if err := l.PutIndex(idx); err != nil {
				return nil, fmt.Errorf("load snapshot: table %s: %w", ld.Table, err)
			}
		}
		s.Put(l)
	}
	return s, nil
}

// SaveSnapshotFile writes the schema snapshot to path.
func SaveSnapshotFile(path string, s *Schema) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer f.Close()
	return SaveSnapshot(f, s)
}

// LoadSnapshotFile reads a schema snapshot from path.
func LoadSnapshotFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer f.Close()
	return LoadSnapshot(f)
}
