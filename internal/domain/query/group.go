package query

import "fmt"

// GroupKind is the boolean combinator of a filter group.
type GroupKind string

const (
	// And matches records satisfying every member.
	And GroupKind = "and"
	// Or matches records satisfying any member.
	Or GroupKind = "or"
	// Not matches records satisfying none of the members (NOR, not a
	// negation of an implicit and).
	Not GroupKind = "not"
)

// Node is a member of a group: either a nested *Group or a Term.
type Node interface {
	node()
}

// Group is a boolean combinator over terms and nested groups.
type Group struct {
	kind    GroupKind
	members []Node
}

func (*Group) node() {}

// NewGroup validates member arity and creates a group. and/not require at
// least one member; or requires at least two (a single-alternative or is a
// grammar error, never silently collapsed).
func NewGroup(kind GroupKind, members []Node) (*Group, error) {
	switch kind {
	case And, Not:
		if len(members) < 1 {
			return nil, fmt.Errorf("%s group requires at least one member", kind)
		}
	case Or:
		if len(members) < 2 {
			return nil, fmt.Errorf("or group requires at least two members, got %d", len(members))
		}
	default:
		return nil, fmt.Errorf("unknown group kind %q", kind)
	}
	for i, m := range members {
		if m == nil {
			return nil, fmt.Errorf("%s group member %d is nil", kind, i)
		}
	}
	return &Group{kind: kind, members: members}, nil
}

// Kind returns the boolean combinator.
func (g *Group) Kind() GroupKind { return g.kind }

// Members returns the ordered member nodes.
func (g *Group) Members() []Node { return g.members }
