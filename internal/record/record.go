// Package record tracks per-row field mutations so writes send only
// changed columns.
//
// A Record keeps two snapshots: committed values (known to match
// storage) and pending values (written since the last commit). The
// pair makes the commit boundary explicit: Diff is exactly the pending
// snapshot, and Commit folds pending into committed.
package record

import (
	"github.com/strata-db/strata/internal/schema"
)

// Record is one row of a layout with mutation tracking.
type Record struct {
	layout    *schema.Layout
	committed map[string]any
	pending   map[string]any
}

// New creates a record from initial values. The values are pending:
// the row has never been written, so everything is part of the first
// diff.
func New(layout *schema.Layout, initial map[string]any) (*Record, error) {
	r := &Record{
		layout:    layout,
		committed: make(map[string]any),
		pending:   make(map[string]any),
	}
	for name, value := range initial {
		if err := r.Set(name, value); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// FromStorage creates a record whose values are already in sync with
// storage: the committed snapshot is populated and the diff is empty.
func FromStorage(layout *schema.Layout, values map[string]any) (*Record, error) {
	r := &Record{
		layout:    layout,
		committed: make(map[string]any, len(values)),
		pending:   make(map[string]any),
	}
	for name, value := range values {
		if !layout.HasField(name) {
			return nil, &schema.LookupError{Kind: "field", Name: name, Scope: layout.Table()}
		}
		r.committed[schema.NormalizeIdent(name)] = value
	}
	return r, nil
}

// Layout returns the record's layout.
func (r *Record) Layout() *schema.Layout { return r.layout }

// Set writes a field value into the pending snapshot. Unknown fields
// fail with a lookup error.
func (r *Record) Set(name string, value any) error {
	if !r.layout.HasField(name) {
		return &schema.LookupError{Kind: "field", Name: name, Scope: r.layout.Table()}
	}
	r.pending[schema.NormalizeIdent(name)] = value
	return nil
}

// Get reads a field value, pending over committed. Unknown fields fail
// with a lookup error; a known field with no value reads as nil.
func (r *Record) Get(name string) (any, error) {
	if !r.layout.HasField(name) {
		return nil, &schema.LookupError{Kind: "field", Name: name, Scope: r.layout.Table()}
	}
	key := schema.NormalizeIdent(name)
	if v, ok := r.pending[key]; ok {
		return v, nil
	}
	return r.committed[key], nil
}

// Diff returns the pending snapshot: only the fields written since the
// last commit, in a fresh map.
func (r *Record) Diff() map[string]any {
	out := make(map[string]any, len(r.pending))
	for k, v := range r.pending {
		out[k] = v
	}
	return out
}

// Dirty reports whether any uncommitted writes exist.
func (r *Record) Dirty() bool { return len(r.pending) > 0 }

// Commit folds pending values into the committed snapshot, marking the
// record in sync with storage. Call after a successful write.
func (r *Record) Commit() {
	for k, v := range r.pending {
		r.committed[k] = v
	}
	r.pending = make(map[string]any)
}

// Data returns the merged view: committed values overlaid with pending
// writes.
func (r *Record) Data() map[string]any {
	out := make(map[string]any, len(r.committed)+len(r.pending))
	for k, v := range r.committed {
		out[k] = v
	}
	for k, v := range r.pending {
		out[k] = v
	}
	return out
}

// Primary extracts the primary-key values from the record. Layouts
// without a primary key fail with ErrCodeMissingPrimary.
func (r *Record) Primary() (map[string]any, error) {
	pk := r.layout.PrimaryKey()
	if pk == nil {
		return nil, &schema.InvariantError{
			Code:    schema.ErrCodeMissingPrimary,
			Subject: r.layout.Table(),
			Message: "layout has no primary key",
		}
	}
	out := make(map[string]any, len(pk.Fields))
	for _, f := range pk.Fields {
		v, err := r.Get(f.Name)
		if err != nil {
			return nil, err
		}
		out[schema.NormalizeIdent(f.Name)] = v
	}
	return out, nil
}
