package predicate

import "fmt"

// Operator is a comparison operator as understood by dialect grammars.
// The core does not validate operators against a fixed set; it only
// assigns meaning to the ones it needs for effective-operator and
// negation logic.
type Operator string

// Operators with core-level meaning.
const (
	OpEqual     Operator = "="
	OpNotEqual  Operator = "<>"
	OpGreater   Operator = ">"
	OpLess      Operator = "<"
	OpIs        Operator = "IS"
	OpIsNot     Operator = "IS NOT"
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
)

// complements maps each negatable operator to its logical complement.
// The table is symmetric: negating twice restores the original.
var complements = map[Operator]Operator{
	OpEqual:    OpNotEqual,
	OpNotEqual: OpEqual,
	OpGreater:  OpLess,
	OpLess:     OpGreater,
	OpIs:       OpIsNot,
	OpIsNot:    OpIs,
	OpLike:     OpNotLike,
	OpNotLike:  OpLike,
}

// Complement returns the logical complement of op.
// The second return is false when op has no defined complement.
func Complement(op Operator) (Operator, bool) {
	c, ok := complements[op]
	return c, ok
}

// InvalidOperatorError reports an operator with no defined complement.
type InvalidOperatorError struct {
	Operator Operator
}

// Error implements the error interface.
func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid operator %q: no defined complement", string(e.Operator))
}
