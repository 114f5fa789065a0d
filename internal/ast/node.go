// Package ast defines the relational-algebra expression tree (§3.2).
//
// The tree is a tagged sum: Node is an interface implemented by one
// concrete struct per node kind, each carrying only the payload its
// kind actually needs. This is the Go re-expression of the "tagged
// sum with kind-specific payloads" design note — a select node, for
// example, has no field for a rename list. Payload slices are not
// checked for emptiness by the type system: a Select with no
// Conditions still compiles.
package ast

import "github.com/raql-dev/raql/internal/catalog"

// Kind identifies which of the closed set of node variants a Node is.
type Kind int

const (
	RelationKind Kind = iota
	ProjectKind
	RenameKind
	SelectKind
	UnionKind
	IntersectKind
	MinusKind
	JoinKind
	TimesKind
	AggregateKind
)

func (k Kind) String() string {
	switch k {
	case RelationKind:
		return "relation"
	case ProjectKind:
		return "project"
	case RenameKind:
		return "rename"
	case SelectKind:
		return "select"
	case UnionKind:
		return "union"
	case IntersectKind:
		return "intersect"
	case MinusKind:
		return "minus"
	case JoinKind:
		return "join"
	case TimesKind:
		return "times"
	case AggregateKind:
		return "aggregate"
	default:
		return "unknown"
	}
}

// Header is the small common envelope every node carries, independent
// of its kind: a stable identifier assigned at parse time, the
// TEMP_k/relation name assigned by the namer, and the attribute and
// domain lists populated by the analyzer.
type Header struct {
	ID         int
	TempName   string
	Attributes []string
	Domains    []catalog.Domain
}

// Node is implemented by every concrete node type. Children returns
// this node's operands in left-to-right order (empty for a leaf).
type Node interface {
	Kind() Kind
	Hdr() *Header
	Children() []Node
}

// Tree is a complete, parsed expression with its root and the highest
// node ID assigned while building it.
type Tree struct {
	Root  Node
	MaxID int
}

// Walk invokes visit on every node of the tree in pre-order.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}

// Find locates the node with the given ID, or nil if none matches.
func Find(root Node, id int) Node {
	var found Node
	Walk(root, func(n Node) {
		if found == nil && n.Hdr().ID == id {
			found = n
		}
	})
	return found
}
