package hooks

import (
	"github.com/strata-db/strata/internal/predicate"
	"github.com/strata-db/strata/internal/query"
	"github.com/strata-db/strata/internal/record"
)

// Convention field names added by the Timestamps and SoftDelete
// migration operations.
const (
	FieldCreated = "created"
	FieldUpdated = "updated"
	FieldRemoved = "removed"
)

// TimestampHook populates the created and updated fields on insert and
// refreshes updated on every update.
type TimestampHook struct {
	Clock Clock
}

// BeforeInsert implements InsertHook.
func (h TimestampHook) BeforeInsert(r *record.Record) error {
	now := h.Clock.Now()
	if err := r.Set(FieldCreated, now); err != nil {
		return err
	}
	return r.Set(FieldUpdated, now)
}

// BeforeUpdate implements UpdateHook.
func (h TimestampHook) BeforeUpdate(r *record.Record) error {
	return r.Set(FieldUpdated, h.Clock.Now())
}

// SoftDeleteHook converts deletes into removal stamps and filters
// removed rows out of every query over the table.
type SoftDeleteHook struct {
	Clock Clock
}

// BeforeDelete implements DeleteHook: the row is stamped rather than
// deleted, and the connection issues an update instead.
func (h SoftDeleteHook) BeforeDelete(r *record.Record) (bool, error) {
	if err := r.Set(FieldRemoved, h.Clock.Now()); err != nil {
		return false, err
	}
	return true, nil
}

// OnQuery implements QueryHook: only rows without a removal stamp are
// visible.
func (h SoftDeleteHook) OnQuery(q *query.Query) error {
	q.Restrictions().And(predicate.Field(FieldRemoved, "IS", nil))
	return nil
}
