package ast

// OperandKind is the closed set of simple-condition operand shapes.
type OperandKind string

const (
	OperandCol OperandKind = "col"
	OperandStr OperandKind = "str"
	OperandNum OperandKind = "num"
	OperandAgg OperandKind = "agg"
)

// Operand is one side of a simple condition.
type Operand struct {
	Kind OperandKind `json:"kind"`
	// Value holds the column name (col), the unquoted string body
	// (str), or the numeric literal text (num).
	Value string `json:"value,omitempty"`
	// AggFunc/AggAttr are set only when Kind == OperandAgg, e.g.
	// COUNT(ID) as a HAVING operand.
	AggFunc string `json:"aggFunc,omitempty"`
	AggAttr string `json:"aggAttr,omitempty"`
}

// CompareOp is the closed set of comparison operators.
type CompareOp string

const (
	OpEQ  CompareOp = "="
	OpNEQ CompareOp = "<>"
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
)

// Condition is a simple condition: a 5-tuple of left operand,
// operator, and right operand (§3.2).
type Condition struct {
	Left  Operand   `json:"left"`
	Op    CompareOp `json:"op"`
	Right Operand   `json:"right"`
}

// Relation is a leaf node naming a catalog relation.
type Relation struct {
	Header
	Name string
}

func (n *Relation) Kind() Kind       { return RelationKind }
func (n *Relation) Hdr() *Header     { return &n.Header }
func (n *Relation) Children() []Node { return nil }

// Project keeps only the named output columns (or aggregate forms)
// of its child.
type Project struct {
	Header
	Child   Node
	Columns []ProjItem
}

func (n *Project) Kind() Kind       { return ProjectKind }
func (n *Project) Hdr() *Header     { return &n.Header }
func (n *Project) Children() []Node { return []Node{n.Child} }

// Rename relabels every attribute of its child, in order.
type Rename struct {
	Header
	Child    Node
	NewNames []string
}

func (n *Rename) Kind() Kind       { return RenameKind }
func (n *Rename) Hdr() *Header     { return &n.Header }
func (n *Rename) Children() []Node { return []Node{n.Child} }

// Select filters its child by a non-empty conjunction of simple
// conditions.
type Select struct {
	Header
	Child      Node
	Conditions []Condition
}

func (n *Select) Kind() Kind       { return SelectKind }
func (n *Select) Hdr() *Header     { return &n.Header }
func (n *Select) Children() []Node { return []Node{n.Child} }

// SetOp is a binary union/intersect/minus node. Which of the three it
// is lives in Op, not in three separate Go types, because the three
// share identical arity, payload (none), and analysis rule (§4.4) —
// splitting them would just be three copies of the same struct.
type SetOp struct {
	Header
	Op          Kind // UnionKind, IntersectKind, or MinusKind
	Left, Right Node
}

func (n *SetOp) Kind() Kind       { return n.Op }
func (n *SetOp) Hdr() *Header     { return &n.Header }
func (n *SetOp) Children() []Node { return []Node{n.Left, n.Right} }

// Join is a natural join; JoinColumns is derived by the analyzer.
type Join struct {
	Header
	Left, Right Node
	JoinColumns []string
}

func (n *Join) Kind() Kind       { return JoinKind }
func (n *Join) Hdr() *Header     { return &n.Header }
func (n *Join) Children() []Node { return []Node{n.Left, n.Right} }

// Times is a Cartesian product.
type Times struct {
	Header
	Left, Right Node
}

func (n *Times) Kind() Kind       { return TimesKind }
func (n *Times) Hdr() *Header     { return &n.Header }
func (n *Times) Children() []Node { return []Node{n.Left, n.Right} }

// ProjItemKind distinguishes a pass-through column from an aggregated one.
type ProjItemKind string

const (
	ProjItemID  ProjItemKind = "id"
	ProjItemAgg ProjItemKind = "agg"
)

// AggFunc is the closed set of supported aggregate functions.
type AggFunc string

const (
	Sum   AggFunc = "SUM"
	Avg   AggFunc = "AVG"
	Count AggFunc = "COUNT"
	Min   AggFunc = "MIN"
	Max   AggFunc = "MAX"
)

// ProjItem is one aggregate projection item: either a pass-through
// attribute or an aggregated one.
type ProjItem struct {
	Kind   ProjItemKind `json:"kind"`
	Attr   string       `json:"attr,omitempty"` // set when Kind == ProjItemID, or as the aggregated attribute
	Func   AggFunc      `json:"func,omitempty"` // set when Kind == ProjItemAgg
	IsStar bool         `json:"isStar,omitempty"`
}

// DisplayName is the verbatim, user-visible text of this item, used
// as the attribute name it contributes to an output header.
func (p ProjItem) DisplayName() string {
	if p.Kind == ProjItemID {
		return p.Attr
	}
	if p.IsStar {
		return string(p.Func) + "(*)"
	}
	return string(p.Func) + "(" + p.Attr + ")"
}

// Aggregate is the grouped-aggregation node. It collapses spec.md's
// aggregate1/aggregate2/aggregate3 into one struct: GroupBy and Having
// are simply empty for the lighter-weight forms, which is the
// idiomatic Go way to express a family of payloads that only grows by
// appending optional trailing fields — three near-identical structs
// would not express anything these two nil checks don't.
type Aggregate struct {
	Header
	Child      Node
	Items      []ProjItem
	RenameList []string
	GroupBy    []string
	Having     []Condition
}

func (n *Aggregate) Kind() Kind       { return AggregateKind }
func (n *Aggregate) Hdr() *Header     { return &n.Header }
func (n *Aggregate) Children() []Node { return []Node{n.Child} }
