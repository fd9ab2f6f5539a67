// Package hooks provides lifecycle hooks that run around record writes
// and query construction.
//
// Hooks are registered per table, typically as a side effect of a
// migration (Timestamps, SoftDelete), not of normal record writes.
// The Connection consults the registry on every insert, update, delete
// and query build.
package hooks

import (
	"time"

	"github.com/strata-db/strata/internal/query"
	"github.com/strata-db/strata/internal/record"
	"github.com/strata-db/strata/internal/schema"
)

// Clock supplies timestamps to hooks. Production code uses WallClock;
// tests inject a fixed clock for deterministic field values.
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock.
type WallClock struct{}

// Now implements Clock.
func (WallClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now implements Clock.
func (c FixedClock) Now() time.Time { return c.T }

// InsertHook runs before an insert round-trip.
type InsertHook interface {
	BeforeInsert(r *record.Record) error
}

// UpdateHook runs before an update round-trip.
type UpdateHook interface {
	BeforeUpdate(r *record.Record) error
}

// DeleteHook runs before a delete round-trip. A hook that returns
// handled=true replaces the physical delete with whatever mutation it
// wrote to the record (soft delete writes a removal stamp and lets the
// connection issue an update instead).
type DeleteHook interface {
	BeforeDelete(r *record.Record) (handled bool, err error)
}

// QueryHook runs when a query over the table is constructed.
type QueryHook interface {
	OnQuery(q *query.Query) error
}

// Registry holds hooks keyed by table name.
type Registry struct {
	inserts map[string][]InsertHook
	updates map[string][]UpdateHook
	deletes map[string][]DeleteHook
	queries map[string][]QueryHook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		inserts: make(map[string][]InsertHook),
		updates: make(map[string][]UpdateHook),
		deletes: make(map[string][]DeleteHook),
		queries: make(map[string][]QueryHook),
	}
}

// AddInsert registers an insert hook for a table.
func (reg *Registry) AddInsert(table string, h InsertHook) {
	key := schema.NormalizeIdent(table)
	reg.inserts[key] = append(reg.inserts[key], h)
}

// AddUpdate registers an update hook for a table.
func (reg *Registry) AddUpdate(table string, h UpdateHook) {
	key := schema.NormalizeIdent(table)
	reg.updates[key] = append(reg.updates[key], h)
}

// AddDelete registers a delete hook for a table.
func (reg *Registry) AddDelete(table string, h DeleteHook) {
	key := schema.NormalizeIdent(table)
	reg.deletes[key] = append(reg.deletes[key], h)
}

// AddQuery registers a query hook for a table.
func (reg *Registry) AddQuery(table string, h QueryHook) {
	key := schema.NormalizeIdent(table)
	reg.queries[key] = append(reg.queries[key], h)
}

// RunInsert fires all insert hooks for the table in registration order.
func (reg *Registry) RunInsert(table string, r *record.Record) error {
	for _, h := range reg.inserts[schema.NormalizeIdent(table)] {
		if err := h.BeforeInsert(r); err != nil {
			return err
		}
	}
	return nil
}

// RunUpdate fires all update hooks for the table in registration order.
func (reg *Registry) RunUpdate(table string, r *record.Record) error {
	for _, h := range reg.updates[schema.NormalizeIdent(table)] {
		if err := h.BeforeUpdate(r); err != nil {
			return err
		}
	}
	return nil
}

// RunDelete fires delete hooks until one handles the delete. Returns
// whether any hook handled it.
func (reg *Registry) RunDelete(table string, r *record.Record) (bool, error) {
	for _, h := range reg.deletes[schema.NormalizeIdent(table)] {
		handled, err := h.BeforeDelete(r)
		if err != nil {
			return false, err
		}
		if handled {
			return true, nil
		}
	}
	return false, nil
}

// RunQuery fires all query hooks for the table in registration order.
func (reg *Registry) RunQuery(table string, q *query.Query) error {
	for _, h := range reg.queries[schema.NormalizeIdent(table)] {
		if err := h.OnQuery(q); err != nil {
			return err
		}
	}
	return nil
}
