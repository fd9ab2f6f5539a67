package predicate

import (
	"reflect"
	"strings"
)

// Node is a sealed interface over Restriction and RestrictionGroup.
type Node interface {
	filterNode() // Marker method - seals interface to this package
}

// Operand is the target of a restriction: either a column reference or
// a sub-query that produces one column. Resolving the operand is a
// grammar concern; the core only needs its output identifier.
type Operand interface {
	// OperandName returns the identifier the operand contributes to the
	// rendered comparison (a column name for FieldRef, the alias for a
	// sub-query).
	OperandName() string
}

// FieldRef names a column of the query source, optionally qualified
// ("alias.column").
type FieldRef string

// OperandName implements Operand.
func (f FieldRef) OperandName() string { return string(f) }

// Restriction is one comparison condition: target <operator> value.
//
// Value may be a scalar, a sequence of scalars, a FieldRef (column to
// column comparison), or nil (for IS / IS NOT).
type Restriction struct {
	target   Operand
	operator Operator
	value    any
}

func (*Restriction) filterNode() {}

// NewRestriction constructs a restriction leaf. The operator is trimmed
// of surrounding whitespace but not validated; unknown operators are
// passed through to the grammar untouched.
func NewRestriction(target Operand, operator string, value any) *Restriction {
	return &Restriction{
		target:   target,
		operator: Operator(strings.TrimSpace(operator)),
		value:    value,
	}
}

// Field is shorthand for a restriction on a named column.
func Field(name, operator string, value any) *Restriction {
	return NewRestriction(FieldRef(name), operator, value)
}

// Target returns the restriction's operand.
func (r *Restriction) Target() Operand { return r.target }

// Value returns the stored comparison value.
func (r *Restriction) Value() any { return r.value }

// Operator returns the effective operator. When the stored value is a
// sequence and the stored operator is not already a set-membership
// operator, the effective operator is IN. The stored operator is never
// mutated by this view.
func (r *Restriction) Operator() Operator {
	if r.operator != OpIn && r.operator != OpNotIn && isSequence(r.value) {
		return OpIn
	}
	return r.operator
}

// Negate replaces the stored operator with its logical complement and
// returns the new operator. Operators without a defined complement fail
// with InvalidOperatorError; the restriction is left unmodified on
// failure.
func (r *Restriction) Negate() (Operator, error) {
	c, ok := complements[r.operator]
	if !ok {
		return "", &InvalidOperatorError{Operator: r.operator}
	}
	r.operator = c
	return c, nil
}

// isSequence reports whether v is a multi-value comparison operand.
// Byte slices are scalars (blobs), as are FieldRefs.
func isSequence(v any) bool {
	switch v.(type) {
	case nil, []byte, FieldRef:
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
