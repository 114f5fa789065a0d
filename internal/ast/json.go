package ast

import (
	"encoding/json"
	"fmt"

	"github.com/raql-dev/raql/internal/catalog"
)

// wireNode is the flat JSON envelope every node kind serializes
// through. Unlike the in-memory Node interface, the wire form is one
// record with a kind discriminator and optional fields — that shape
// is fine at a serialization boundary (it is what the visualization
// front-end posts back to the Subtree Inspector); it would be the
// wrong shape for the in-memory tree, which is why Node is not
// modeled this way.
type wireNode struct {
	Kind       string           `json:"kind"`
	ID         int              `json:"id"`
	TempName   string           `json:"tempName,omitempty"`
	Attributes []string         `json:"attributes,omitempty"`
	Domains    []catalog.Domain `json:"domains,omitempty"`

	Name string `json:"name,omitempty"` // relation

	Child *wireNode `json:"child,omitempty"`
	Left  *wireNode `json:"left,omitempty"`
	Right *wireNode `json:"right,omitempty"`

	Columns     []ProjItem  `json:"columns,omitempty"`     // project
	NewNames    []string    `json:"newNames,omitempty"`    // rename
	Conditions  []Condition `json:"conditions,omitempty"`  // select
	JoinColumns []string    `json:"joinColumns,omitempty"` // join
	Items       []ProjItem  `json:"items,omitempty"`       // aggregate
	RenameList  []string    `json:"renameList,omitempty"`
	GroupBy     []string    `json:"groupBy,omitempty"`
	Having      []Condition `json:"having,omitempty"`
}

func toWire(n Node) *wireNode {
	if n == nil {
		return nil
	}
	h := n.Hdr()
	w := &wireNode{
		Kind:       n.Kind().String(),
		ID:         h.ID,
		TempName:   h.TempName,
		Attributes: h.Attributes,
		Domains:    h.Domains,
	}
	switch v := n.(type) {
	case *Relation:
		w.Name = v.Name
	case *Project:
		w.Child = toWire(v.Child)
		w.Columns = v.Columns
	case *Rename:
		w.Child = toWire(v.Child)
		w.NewNames = v.NewNames
	case *Select:
		w.Child = toWire(v.Child)
		w.Conditions = v.Conditions
	case *SetOp:
		w.Left = toWire(v.Left)
		w.Right = toWire(v.Right)
	case *Join:
		w.Left = toWire(v.Left)
		w.Right = toWire(v.Right)
		w.JoinColumns = v.JoinColumns
	case *Times:
		w.Left = toWire(v.Left)
		w.Right = toWire(v.Right)
	case *Aggregate:
		w.Child = toWire(v.Child)
		w.Items = v.Items
		w.RenameList = v.RenameList
		w.GroupBy = v.GroupBy
		w.Having = v.Having
	}
	return w
}

func fromWire(w *wireNode) (Node, error) {
	if w == nil {
		return nil, nil
	}
	hdr := Header{ID: w.ID, TempName: w.TempName, Attributes: w.Attributes, Domains: w.Domains}
	switch w.Kind {
	case RelationKind.String():
		return &Relation{Header: hdr, Name: w.Name}, nil
	case ProjectKind.String():
		child, err := fromWire(w.Child)
		if err != nil {
			return nil, err
		}
		return &Project{Header: hdr, Child: child, Columns: w.Columns}, nil
	case RenameKind.String():
		child, err := fromWire(w.Child)
		if err != nil {
			return nil, err
		}
		return &Rename{Header: hdr, Child: child, NewNames: w.NewNames}, nil
	case SelectKind.String():
		child, err := fromWire(w.Child)
		if err != nil {
			return nil, err
		}
		return &Select{Header: hdr, Child: child, Conditions: w.Conditions}, nil
	case UnionKind.String(), IntersectKind.String(), MinusKind.String():
		left, err := fromWire(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := fromWire(w.Right)
		if err != nil {
			return nil, err
		}
		var op Kind
		switch w.Kind {
		case UnionKind.String():
			op = UnionKind
		case IntersectKind.String():
			op = IntersectKind
		default:
			op = MinusKind
		}
		return &SetOp{Header: hdr, Op: op, Left: left, Right: right}, nil
	case JoinKind.String():
		left, err := fromWire(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := fromWire(w.Right)
		if err != nil {
			return nil, err
		}
		return &Join{Header: hdr, Left: left, Right: right, JoinColumns: w.JoinColumns}, nil
	case TimesKind.String():
		left, err := fromWire(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := fromWire(w.Right)
		if err != nil {
			return nil, err
		}
		return &Times{Header: hdr, Left: left, Right: right}, nil
	case AggregateKind.String():
		child, err := fromWire(w.Child)
		if err != nil {
			return nil, err
		}
		return &Aggregate{
			Header:     hdr,
			Child:      child,
			Items:      w.Items,
			RenameList: w.RenameList,
			GroupBy:    w.GroupBy,
			Having:     w.Having,
		}, nil
	default:
		return nil, fmt.Errorf("ast: unknown node kind %q in serialized tree", w.Kind)
	}
}

// MarshalJSON implements the JSON wire form described in SPEC_FULL.md
// §3.2 ("Addition — wire form").
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Root  *wireNode `json:"root"`
		MaxID int       `json:"maxId"`
	}{Root: toWire(t.Root), MaxID: t.MaxID})
}

// UnmarshalJSON rebuilds a Tree from its wire form, as consumed by the
// Subtree Inspector (§4.6).
func (t *Tree) UnmarshalJSON(data []byte) error {
	var w struct {
		Root  *wireNode `json:"root"`
		MaxID int       `json:"maxId"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	root, err := fromWire(w.Root)
	if err != nil {
		return err
	}
	t.Root = root
	t.MaxID = w.MaxID
	return nil
}
