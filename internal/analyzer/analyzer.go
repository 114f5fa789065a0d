// Package analyzer performs the bottom-up semantic pass of §4.4: it
// attaches attributes and domains to every node, validates type
// compatibility, and rewrites attribute names where the algebra
// requires it (times disambiguation, join-column derivation).
package analyzer

import (
	"fmt"

	"github.com/raql-dev/raql/internal/ast"
	"github.com/raql-dev/raql/internal/catalog"
)

// Error is a classified semantic error: the operation that detected
// it, plus a message. Its Error() text matches the
// "SEMANTIC ERROR (OP): message" format existing tooling expects.
type Error struct {
	Op      string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("SEMANTIC ERROR (%s): %s", e.Op, e.Message)
}

func fail(op, format string, args ...any) error {
	return &Error{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Analyze walks the tree bottom-up and returns the first error
// encountered, or nil on success (§4.4, §7: compilation halts at the
// first semantic error).
func Analyze(n ast.Node, cat *catalog.Catalog) error {
	for _, child := range n.Children() {
		if err := Analyze(child, cat); err != nil {
			return err
		}
	}
	switch v := n.(type) {
	case *ast.Relation:
		return analyzeRelation(v, cat)
	case *ast.Select:
		return analyzeSelect(v)
	case *ast.Times:
		return analyzeTimes(v)
	case *ast.SetOp:
		return analyzeSetOp(v)
	case *ast.Join:
		return analyzeJoin(v)
	case *ast.Project:
		return analyzeProject(v)
	case *ast.Rename:
		return analyzeRename(v)
	case *ast.Aggregate:
		return analyzeAggregate(v)
	default:
		return fmt.Errorf("analyzer: unhandled node type %T", n)
	}
}

func indexOf(attrs []string, name string) int {
	for i, a := range attrs {
		if a == name {
			return i
		}
	}
	return -1
}

func analyzeRelation(n *ast.Relation, cat *catalog.Catalog) error {
	rel, err := cat.Lookup(n.Name)
	if err != nil {
		return fail("RELATION", "Relation '%s' does not exist", catalog.Fold(n.Name))
	}
	n.Name = rel.Name
	n.TempName = rel.Name
	n.Attributes = rel.Attributes()
	n.Domains = rel.Domains()
	return nil
}

// typeClass classifies a domain into the "str"/"num" comparability
// class used by select's type-mismatch check (§4.4).
func typeClass(d catalog.Domain) string {
	if d == catalog.Varchar {
		return "str"
	}
	return "num"
}

func operandTypeClass(op ast.Operand, childAttrs []string, childDomains []catalog.Domain) (string, error) {
	switch op.Kind {
	case ast.OperandStr:
		return "str", nil
	case ast.OperandNum:
		return "num", nil
	case ast.OperandCol:
		idx := indexOf(childAttrs, op.Value)
		if idx < 0 {
			return "", fail("SELECT", "Unknown attribute '%s'", op.Value)
		}
		return typeClass(childDomains[idx]), nil
	case ast.OperandAgg:
		return "num", nil
	default:
		return "", fail("SELECT", "unrecognized operand kind %q", op.Kind)
	}
}

func analyzeSelect(n *ast.Select) error {
	child := n.Child.Hdr()
	for _, c := range n.Conditions {
		lt, err := operandTypeClass(c.Left, child.Attributes, child.Domains)
		if err != nil {
			return err
		}
		rt, err := operandTypeClass(c.Right, child.Attributes, child.Domains)
		if err != nil {
			return err
		}
		if lt != rt {
			return fail("SELECT", "type mismatch between %s and %s", lt, rt)
		}
	}
	n.Attributes = child.Attributes
	n.Domains = child.Domains
	return nil
}

func analyzeTimes(n *ast.Times) error {
	l, r := n.Left.Hdr(), n.Right.Hdr()
	dup := make(map[string]bool)
	for _, a := range l.Attributes {
		if indexOf(r.Attributes, a) >= 0 {
			dup[a] = true
		}
	}
	var attrs []string
	var domains []catalog.Domain
	for i, a := range l.Attributes {
		if dup[a] {
			attrs = append(attrs, a+"_L")
		} else {
			attrs = append(attrs, a)
		}
		domains = append(domains, l.Domains[i])
	}
	for i, a := range r.Attributes {
		if dup[a] {
			attrs = append(attrs, a+"_R")
		} else {
			attrs = append(attrs, a)
		}
		domains = append(domains, r.Domains[i])
	}
	n.Attributes = attrs
	n.Domains = domains
	return nil
}

func analyzeSetOp(n *ast.SetOp) error {
	l, r := n.Left.Hdr(), n.Right.Hdr()
	op := map[ast.Kind]string{ast.UnionKind: "UNION", ast.IntersectKind: "INTERSECT", ast.MinusKind: "MINUS"}[n.Op]
	if len(l.Attributes) != len(r.Attributes) {
		return fail(op, "arity mismatch: left has %d columns, right has %d", len(l.Attributes), len(r.Attributes))
	}
	for i := range l.Domains {
		if l.Domains[i] != r.Domains[i] {
			return fail(op, "domain mismatch at column %d: %s vs %s", i, l.Domains[i], r.Domains[i])
		}
	}
	n.Attributes = l.Attributes
	n.Domains = l.Domains
	return nil
}

func analyzeJoin(n *ast.Join) error {
	l, r := n.Left.Hdr(), n.Right.Hdr()
	var joinCols []string
	for _, a := range l.Attributes {
		if indexOf(r.Attributes, a) >= 0 {
			joinCols = append(joinCols, a)
		}
	}
	n.JoinColumns = joinCols

	attrs := append([]string{}, l.Attributes...)
	domains := append([]catalog.Domain{}, l.Domains...)
	for i, a := range r.Attributes {
		if indexOf(l.Attributes, a) < 0 {
			attrs = append(attrs, a)
			domains = append(domains, r.Domains[i])
		}
	}
	n.Attributes = attrs
	n.Domains = domains
	return nil
}

// aggregateRenameIndex returns the index of name in the rename list
// of an aggregate node, or -1 if n is not an aggregate or lacks name.
func aggregateRenameIndex(n ast.Node, name string) int {
	agg, ok := n.(*ast.Aggregate)
	if !ok {
		return -1
	}
	return indexOf(agg.RenameList, name)
}

func analyzeProject(n *ast.Project) error {
	childHdr := n.Child.Hdr()
	var attrs []string
	var domains []catalog.Domain

	// A project directly above a join of two aggregate nodes may
	// reference names from either aggregate's rename list (§4.4
	// "projection forwards through the join").
	var joinOfAggregates *ast.Join
	if j, ok := n.Child.(*ast.Join); ok {
		_, lAgg := j.Left.(*ast.Aggregate)
		_, rAgg := j.Right.(*ast.Aggregate)
		if lAgg && rAgg {
			joinOfAggregates = j
		}
	}

	for _, item := range n.Columns {
		name := item.DisplayName()
		switch item.Kind {
		case ast.ProjItemID:
			if idx := indexOf(childHdr.Attributes, item.Attr); idx >= 0 {
				attrs = append(attrs, name)
				domains = append(domains, childHdr.Domains[idx])
				continue
			}
			if joinOfAggregates != nil {
				if aggregateRenameIndex(joinOfAggregates.Left, item.Attr) >= 0 ||
					aggregateRenameIndex(joinOfAggregates.Right, item.Attr) >= 0 {
					attrs = append(attrs, name)
					domains = append(domains, catalog.Varchar)
					continue
				}
			}
			return fail("PROJECT", "Unknown attribute '%s'", item.Attr)
		case ast.ProjItemAgg:
			if !item.IsStar && indexOf(childHdr.Attributes, item.Attr) < 0 {
				return fail("PROJECT", "Unknown attribute '%s' in %s", item.Attr, name)
			}
			if item.IsStar && item.Func != ast.Count {
				return fail("PROJECT", "%s(*) is not a legal aggregate form", item.Func)
			}
			attrs = append(attrs, name)
			domains = append(domains, catalog.Integer)
		default:
			return fail("PROJECT", "unrecognized projection item kind %q", item.Kind)
		}
	}
	n.Attributes = attrs
	n.Domains = domains
	return nil
}

func analyzeRename(n *ast.Rename) error {
	childHdr := n.Child.Hdr()
	if len(n.NewNames) != len(childHdr.Attributes) {
		return fail("RENAME", "arity mismatch: child has %d columns, rename list has %d",
			len(childHdr.Attributes), len(n.NewNames))
	}
	seen := make(map[string]bool, len(n.NewNames))
	for _, name := range n.NewNames {
		if seen[name] {
			return fail("RENAME", "duplicate name '%s' in rename list", name)
		}
		seen[name] = true
	}
	n.Attributes = append([]string{}, n.NewNames...)
	n.Domains = append([]catalog.Domain{}, childHdr.Domains...)

	// Remap any join_columns the child already derived, through the
	// old->new mapping, so a later join above this rename sees the
	// renamed columns (§4.4).
	if j, ok := n.Child.(*ast.Join); ok {
		remap := make(map[string]string, len(childHdr.Attributes))
		for i, old := range childHdr.Attributes {
			remap[old] = n.NewNames[i]
		}
		for i, c := range j.JoinColumns {
			if newName, ok := remap[c]; ok {
				j.JoinColumns[i] = newName
			}
		}
	}
	return nil
}

func analyzeAggregate(n *ast.Aggregate) error {
	childHdr := n.Child.Hdr()
	groupBySet := make(map[string]bool, len(n.GroupBy))
	for _, g := range n.GroupBy {
		if indexOf(childHdr.Attributes, g) < 0 {
			return fail("AGGREGATE", "Unknown group-by attribute '%s'", g)
		}
		groupBySet[g] = true
	}

	legalFunc := func(f ast.AggFunc) bool {
		switch f {
		case ast.Sum, ast.Avg, ast.Count, ast.Min, ast.Max:
			return true
		default:
			return false
		}
	}

	for _, item := range n.Items {
		switch item.Kind {
		case ast.ProjItemID:
			if indexOf(childHdr.Attributes, item.Attr) < 0 {
				return fail("AGGREGATE", "Unknown attribute '%s'", item.Attr)
			}
			if len(n.GroupBy) > 0 && !groupBySet[item.Attr] {
				return fail("AGGREGATE", "pass-through attribute '%s' must appear in the group-by list", item.Attr)
			}
		case ast.ProjItemAgg:
			if !legalFunc(item.Func) {
				return fail("AGGREGATE", "unknown aggregate function '%s'", item.Func)
			}
			if !item.IsStar && indexOf(childHdr.Attributes, item.Attr) < 0 {
				return fail("AGGREGATE", "Unknown attribute '%s'", item.Attr)
			}
			if item.IsStar && item.Func != ast.Count {
				return fail("AGGREGATE", "%s(*) is not a legal aggregate form", item.Func)
			}
		}
	}

	for _, cond := range n.Having {
		if err := checkHavingOperand(childHdr.Attributes, cond.Left); err != nil {
			return err
		}
		if err := checkHavingOperand(childHdr.Attributes, cond.Right); err != nil {
			return err
		}
	}

	if len(n.RenameList) < len(n.Items) {
		return fail("AGGREGATE", "rename list (%d) shorter than projection list (%d)", len(n.RenameList), len(n.Items))
	}

	// Output attributes equal the rename list verbatim; every aggregate
	// column is typed INTEGER, including group-by passthroughs — a
	// documented quirk preserved as-is (see SPEC_FULL.md §9).
	attrs := append([]string{}, n.RenameList...)
	domains := make([]catalog.Domain, len(attrs))
	for i := range domains {
		domains[i] = catalog.Integer
	}
	n.Attributes = attrs
	n.Domains = domains
	return nil
}

func checkHavingOperand(childAttrs []string, op ast.Operand) error {
	switch op.Kind {
	case ast.OperandCol:
		if indexOf(childAttrs, op.Value) < 0 {
			return fail("AGGREGATE", "Unknown attribute '%s' in HAVING", op.Value)
		}
	case ast.OperandAgg:
		if indexOf(childAttrs, op.AggAttr) < 0 {
			return fail("AGGREGATE", "Unknown attribute '%s' in HAVING", op.AggAttr)
		}
	}
	return nil
}
