package predicate

// Connective is the boolean operator joining a group's children.
type Connective string

const (
	// ConnectiveAnd joins children with AND.
	ConnectiveAnd Connective = "AND"

	// ConnectiveOr joins children with OR.
	ConnectiveOr Connective = "OR"
)

// RestrictionGroup is an ordered boolean tree of restrictions and
// nested groups, joined by a single connective.
//
// An empty group is vacuously true: grammars render it as no filter at
// all.
type RestrictionGroup struct {
	connective Connective
	children   []Node
}

func (*RestrictionGroup) filterNode() {}

// NewGroup creates an empty group with the given connective.
func NewGroup(connective Connective) *RestrictionGroup {
	return &RestrictionGroup{connective: connective}
}

// And appends nodes under AND semantics. If the group's own connective
// is OR and more than one node is given, the nodes are wrapped in a
// nested AND group so the caller's intent survives; a single node is
// appended directly (the wrapping would be a no-op).
func (g *RestrictionGroup) And(nodes ...Node) *RestrictionGroup {
	return g.append(ConnectiveAnd, nodes)
}

// Or appends nodes under OR semantics, symmetric to And.
func (g *RestrictionGroup) Or(nodes ...Node) *RestrictionGroup {
	return g.append(ConnectiveOr, nodes)
}

func (g *RestrictionGroup) append(c Connective, nodes []Node) *RestrictionGroup {
	if c == g.connective || len(nodes) == 1 {
		g.children = append(g.children, nodes...)
		return g
	}
	sub := NewGroup(c)
	sub.children = append(sub.children, nodes...)
	g.children = append(g.children, sub)
	return g
}

// Connective returns the group's boolean connective.
func (g *RestrictionGroup) Connective() Connective { return g.connective }

// Children returns the group's child nodes in insertion order.
// The returned slice is the group's own backing store; callers must
// not mutate it.
func (g *RestrictionGroup) Children() []Node { return g.children }

// Empty reports whether the group has no children.
func (g *RestrictionGroup) Empty() bool { return len(g.children) == 0 }
