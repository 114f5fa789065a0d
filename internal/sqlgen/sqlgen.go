// Package sqlgen lowers an annotated relational-algebra tree into a
// single nested SQL statement by recursive composition of
// sub-queries (§4.5), following the teacher corpus's Build*SQL
// string-builder convention.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/raql-dev/raql/internal/ast"
)

// Emit produces the SQL for the given node by recursive descent,
// using the node's TEMP_k (or relation name) as the alias for its
// sub-query.
func Emit(n ast.Node) (string, error) {
	switch v := n.(type) {
	case *ast.Relation:
		return buildRelationSQL(v), nil
	case *ast.Project:
		return buildProjectSQL(v)
	case *ast.Rename:
		return buildRenameSQL(v)
	case *ast.Select:
		return buildSelectSQL(v)
	case *ast.SetOp:
		return buildSetOpSQL(v)
	case *ast.Times:
		return buildTimesSQL(v)
	case *ast.Join:
		return buildJoinSQL(v)
	case *ast.Aggregate:
		return buildAggregateSQL(v)
	default:
		return "", fmt.Errorf("sqlgen: unhandled node type %T", n)
	}
}

func buildRelationSQL(n *ast.Relation) string {
	return fmt.Sprintf("SELECT * FROM %s", n.Name)
}

func buildProjectSQL(n *ast.Project) (string, error) {
	// Special path: the child is a join whose own children are
	// aggregates. Emit that join's sub-query once and select the
	// requested columns directly from it.
	if j, ok := n.Child.(*ast.Join); ok {
		if _, lAgg := j.Left.(*ast.Aggregate); lAgg {
			if _, rAgg := j.Right.(*ast.Aggregate); rAgg {
				joinSQL, err := Emit(j)
				if err != nil {
					return "", err
				}
				cols := make([]string, len(n.Columns))
				for i, item := range n.Columns {
					cols[i] = item.DisplayName()
				}
				return fmt.Sprintf("SELECT %s FROM (%s) %s", strings.Join(cols, ", "), joinSQL, j.TempName), nil
			}
		}
	}

	childSQL, err := Emit(n.Child)
	if err != nil {
		return "", err
	}

	var cols []string
	var plainCols []string
	hasAgg := false
	for _, item := range n.Columns {
		cols = append(cols, projItemSQL(item))
		if item.Kind == ast.ProjItemAgg {
			hasAgg = true
		} else {
			plainCols = append(plainCols, item.Attr)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM (%s) %s", strings.Join(cols, ", "), childSQL, n.Child.Hdr().TempName)

	// Bare projection (no aggregate forms, and the child is not
	// itself an aggregate node) implicitly deduplicates via GROUP BY,
	// matching relational-algebra set semantics against SQL bag
	// semantics. Documented open behavior, not a bug (see SPEC_FULL.md §9).
	_, childIsAgg := n.Child.(*ast.Aggregate)
	if !hasAgg && !childIsAgg {
		fmt.Fprintf(&sb, " GROUP BY %s", strings.Join(plainCols, ", "))
	}
	return sb.String(), nil
}

func projItemSQL(item ast.ProjItem) string {
	if item.Kind == ast.ProjItemID {
		return item.Attr
	}
	if item.IsStar {
		return fmt.Sprintf("%s(*)", item.Func)
	}
	return fmt.Sprintf("%s(%s)", item.Func, item.Attr)
}

func buildRenameSQL(n *ast.Rename) (string, error) {
	childHdr := n.Child.Hdr()
	childSQL, err := Emit(n.Child)
	if err != nil {
		return "", err
	}
	if _, isUnion := n.Child.(*ast.SetOp); isUnion {
		childSQL = "(" + childSQL + ")"
	}
	cols := make([]string, len(n.NewNames))
	for i, newName := range n.NewNames {
		cols[i] = fmt.Sprintf("%s AS %s", childHdr.Attributes[i], newName)
	}
	return fmt.Sprintf("SELECT %s FROM (%s) %s", strings.Join(cols, ", "), childSQL, childHdr.TempName), nil
}

func buildSelectSQL(n *ast.Select) (string, error) {
	childSQL, err := Emit(n.Child)
	if err != nil {
		return "", err
	}
	conds := make([]string, len(n.Conditions))
	for i, c := range n.Conditions {
		conds[i] = conditionSQL(c)
	}
	return fmt.Sprintf("SELECT * FROM (%s) %s WHERE %s", childSQL, n.Child.Hdr().TempName, strings.Join(conds, " AND ")), nil
}

func conditionSQL(c ast.Condition) string {
	return fmt.Sprintf("%s %s %s", operandSQL(c.Left), compareOpSQL(c), operandSQL(c.Right))
}

// compareOpSQL renders the LIKE extension hook (§4.5, §9): it is
// reachable only when a condition's operator text is literally
// "LIKE", which the grammar in §4.2 never produces on its own.
func compareOpSQL(c ast.Condition) string {
	if c.Op == "LIKE" {
		return "LIKE"
	}
	return string(c.Op)
}

func operandSQL(op ast.Operand) string {
	switch op.Kind {
	case ast.OperandStr:
		return "'" + op.Value + "'"
	case ast.OperandNum:
		return op.Value
	case ast.OperandCol:
		return op.Value
	case ast.OperandAgg:
		return fmt.Sprintf("%s(%s)", op.AggFunc, op.AggAttr)
	default:
		return op.Value
	}
}

func buildSetOpSQL(n *ast.SetOp) (string, error) {
	leftSQL, err := Emit(n.Left)
	if err != nil {
		return "", err
	}
	rightSQL, err := Emit(n.Right)
	if err != nil {
		return "", err
	}

	switch n.Op {
	case ast.UnionKind:
		if _, ok := n.Left.(*ast.Aggregate); ok {
			leftSQL = "(" + leftSQL + ")"
		}
		if _, ok := n.Right.(*ast.Aggregate); ok {
			rightSQL = "(" + rightSQL + ")"
		}
		return fmt.Sprintf("%s UNION %s", leftSQL, rightSQL), nil
	case ast.IntersectKind, ast.MinusKind:
		cols := strings.Join(n.Attributes, ", ")
		verb := "IN"
		if n.Op == ast.MinusKind {
			verb = "NOT IN"
		}
		leftAlias, rightAlias := n.Left.Hdr().TempName, n.Right.Hdr().TempName
		return fmt.Sprintf(
			"SELECT * FROM (%s) %s WHERE (%s) %s (SELECT %s FROM (%s) %s)",
			leftSQL, leftAlias, cols, verb, cols, rightSQL, rightAlias,
		), nil
	default:
		return "", fmt.Errorf("sqlgen: unrecognized set operation kind %v", n.Op)
	}
}

func buildTimesSQL(n *ast.Times) (string, error) {
	leftSQL, err := Emit(n.Left)
	if err != nil {
		return "", err
	}
	rightSQL, err := Emit(n.Right)
	if err != nil {
		return "", err
	}
	l, r := n.Left.Hdr(), n.Right.Hdr()

	dup := make(map[string]bool)
	for _, a := range l.Attributes {
		for _, b := range r.Attributes {
			if a == b {
				dup[a] = true
			}
		}
	}

	var cols []string
	for _, a := range l.Attributes {
		cols = append(cols, timesColumnSQL(l.TempName, a, dup[a], "_L"))
	}
	for _, a := range r.Attributes {
		cols = append(cols, timesColumnSQL(r.TempName, a, dup[a], "_R"))
	}

	return fmt.Sprintf("SELECT %s FROM (%s) %s, (%s) %s", strings.Join(cols, ", "), leftSQL, l.TempName, rightSQL, r.TempName), nil
}

// timesColumnSQL double-quotes the attribute name (§4.5 "Quoting") and
// appends a disambiguating alias for names that collide across sides.
func timesColumnSQL(tableAlias, attr string, isDup bool, suffix string) string {
	if isDup {
		return fmt.Sprintf(`%s."%s" AS "%s%s"`, tableAlias, attr, attr, suffix)
	}
	return fmt.Sprintf(`%s."%s"`, tableAlias, attr)
}

// effectiveColumns returns the column set a join should match a side
// against: the aggregate's rename list if that side is an aggregate
// node, else its plain attribute list.
func effectiveColumns(n ast.Node) []string {
	if agg, ok := n.(*ast.Aggregate); ok {
		return agg.RenameList
	}
	return n.Hdr().Attributes
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func buildJoinSQL(n *ast.Join) (string, error) {
	leftSQL, err := Emit(n.Left)
	if err != nil {
		return "", err
	}
	rightSQL, err := Emit(n.Right)
	if err != nil {
		return "", err
	}

	_, lAgg := n.Left.(*ast.Aggregate)
	_, rAgg := n.Right.(*ast.Aggregate)
	leftEff, rightEff := effectiveColumns(n.Left), effectiveColumns(n.Right)

	var predicates []string
	for _, c := range n.JoinColumns {
		if contains(leftEff, c) && contains(rightEff, c) {
			predicates = append(predicates, c)
		}
	}

	if len(predicates) == 0 || (lAgg && rAgg) {
		return buildCrossJoinSQL(n, leftSQL, rightSQL)
	}

	l, r := n.Left.Hdr(), n.Right.Hdr()
	var cols []string
	for _, c := range predicates {
		cols = append(cols, fmt.Sprintf("%s.%s", l.TempName, c))
	}
	for _, a := range l.Attributes {
		if contains(predicates, a) {
			continue
		}
		cols = append(cols, fmt.Sprintf("%s.%s", l.TempName, a))
	}
	for _, a := range r.Attributes {
		if contains(l.Attributes, a) {
			continue
		}
		cols = append(cols, fmt.Sprintf("%s.%s", r.TempName, a))
	}

	var wheres []string
	for _, c := range predicates {
		wheres = append(wheres, fmt.Sprintf("%s.%s = %s.%s", l.TempName, c, r.TempName, c))
	}

	return fmt.Sprintf(
		"SELECT %s FROM (%s) %s, (%s) %s WHERE %s",
		strings.Join(cols, ", "), leftSQL, l.TempName, rightSQL, r.TempName, strings.Join(wheres, " AND "),
	), nil
}

// buildCrossJoinSQL emits the disambiguated cross-product form used
// when no join predicate survives, or both sides are aggregates.
func buildCrossJoinSQL(n *ast.Join, leftSQL, rightSQL string) (string, error) {
	l, r := n.Left.Hdr(), n.Right.Hdr()
	dup := make(map[string]bool)
	for _, a := range l.Attributes {
		if contains(r.Attributes, a) {
			dup[a] = true
		}
	}
	var cols []string
	for _, a := range l.Attributes {
		cols = append(cols, timesColumnSQL(l.TempName, a, dup[a], "_L"))
	}
	for _, a := range r.Attributes {
		cols = append(cols, timesColumnSQL(r.TempName, a, dup[a], "_R"))
	}
	return fmt.Sprintf("SELECT %s FROM (%s) %s, (%s) %s", strings.Join(cols, ", "), leftSQL, l.TempName, rightSQL, r.TempName), nil
}

func buildAggregateSQL(n *ast.Aggregate) (string, error) {
	childSQL, err := Emit(n.Child)
	if err != nil {
		return "", err
	}

	cols := make([]string, len(n.Items))
	for i, item := range n.Items {
		var expr string
		if item.Kind == ast.ProjItemAgg {
			if item.IsStar {
				expr = fmt.Sprintf("%s(*)", item.Func)
			} else {
				expr = fmt.Sprintf("%s(%s)", item.Func, item.Attr)
			}
		} else {
			expr = item.Attr
		}
		out := item.Attr
		if i < len(n.RenameList) {
			out = n.RenameList[i]
		}
		cols[i] = fmt.Sprintf("%s AS %s", expr, out)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM (%s) %s", strings.Join(cols, ", "), childSQL, n.Child.Hdr().TempName)
	if len(n.GroupBy) > 0 {
		fmt.Fprintf(&sb, " GROUP BY %s", strings.Join(n.GroupBy, ", "))
	}
	if len(n.Having) > 0 {
		conds := make([]string, len(n.Having))
		for i, c := range n.Having {
			conds[i] = havingConditionSQL(c)
		}
		fmt.Fprintf(&sb, " HAVING %s", strings.Join(conds, " AND "))
	}
	return sb.String(), nil
}

func havingConditionSQL(c ast.Condition) string {
	return fmt.Sprintf("%s %s %s", havingOperandSQL(c.Left), compareOpSQL(c), havingOperandSQL(c.Right))
}

func havingOperandSQL(op ast.Operand) string {
	if op.Kind == ast.OperandAgg {
		return fmt.Sprintf("%s(%s)", op.AggFunc, op.AggAttr)
	}
	return operandSQL(op)
}
