package parser

import (
	"testing"

	"github.com/raql-dev/raql/internal/ast"
)

func TestParseRelation(t *testing.T) {
	tree, err := Parse("emp;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rel, ok := tree.Root.(*ast.Relation)
	if !ok {
		t.Fatalf("expected *ast.Relation, got %T", tree.Root)
	}
	if rel.Name != "EMP" {
		t.Fatalf("relation name = %q, want EMP", rel.Name)
	}
}

func TestParseProjectSelect(t *testing.T) {
	tree, err := Parse("project[name](select[sal>50000](emp));")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proj, ok := tree.Root.(*ast.Project)
	if !ok {
		t.Fatalf("expected *ast.Project, got %T", tree.Root)
	}
	if len(proj.Columns) != 1 || proj.Columns[0].Attr != "NAME" {
		t.Fatalf("columns = %v", proj.Columns)
	}
	sel, ok := proj.Child.(*ast.Select)
	if !ok {
		t.Fatalf("expected *ast.Select child, got %T", proj.Child)
	}
	if len(sel.Conditions) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(sel.Conditions))
	}
	cond := sel.Conditions[0]
	if cond.Left.Value != "SAL" || cond.Op != ast.OpGT || cond.Right.Value != "50000" {
		t.Fatalf("condition = %+v", cond)
	}
}

func TestParseJoin(t *testing.T) {
	tree, err := Parse("emp join dept;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tree.Root.(*ast.Join); !ok {
		t.Fatalf("expected *ast.Join, got %T", tree.Root)
	}
}

func TestParseTimes(t *testing.T) {
	tree, err := Parse("emp times dept;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tree.Root.(*ast.Times); !ok {
		t.Fatalf("expected *ast.Times, got %T", tree.Root)
	}
}

func TestParseAggregate(t *testing.T) {
	tree, err := Parse("aggregate[(CNT),(count(ID)),(DEPT)](emp);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	agg, ok := tree.Root.(*ast.Aggregate)
	if !ok {
		t.Fatalf("expected *ast.Aggregate, got %T", tree.Root)
	}
	if len(agg.RenameList) != 1 || agg.RenameList[0] != "CNT" {
		t.Fatalf("rename list = %v", agg.RenameList)
	}
	if len(agg.Items) != 1 || agg.Items[0].Func != ast.Count || agg.Items[0].Attr != "ID" {
		t.Fatalf("items = %+v", agg.Items)
	}
	if len(agg.GroupBy) != 1 || agg.GroupBy[0] != "DEPT" {
		t.Fatalf("group by = %v", agg.GroupBy)
	}
}

func TestParseAggregateWithHaving(t *testing.T) {
	tree, err := Parse("aggregate[(CNT),(count(ID)),(DEPT),(count(ID)>5)](emp);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	agg := tree.Root.(*ast.Aggregate)
	if len(agg.Having) != 1 {
		t.Fatalf("expected 1 having condition, got %d", len(agg.Having))
	}
	h := agg.Having[0]
	if h.Left.Kind != ast.OperandAgg || h.Left.AggFunc != "COUNT" || h.Left.AggAttr != "ID" {
		t.Fatalf("having left = %+v", h.Left)
	}
}

func TestPrecedenceUnionLooserThanJoin(t *testing.T) {
	// A UNION B JOIN C should parse as A UNION (B JOIN C): the set-op
	// tier is looser and right-associative.
	tree, err := Parse("a union b join c;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	setop, ok := tree.Root.(*ast.SetOp)
	if !ok || setop.Op != ast.UnionKind {
		t.Fatalf("expected top-level union, got %T", tree.Root)
	}
	if _, ok := setop.Right.(*ast.Join); !ok {
		t.Fatalf("expected right side to be a join, got %T", setop.Right)
	}
}

func TestPrecedenceRightAssociative(t *testing.T) {
	// A UNION B UNION C should parse as A UNION (B UNION C).
	tree, err := Parse("a union b union c;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer := tree.Root.(*ast.SetOp)
	if _, ok := outer.Left.(*ast.Relation); !ok {
		t.Fatalf("expected left to be a bare relation, got %T", outer.Left)
	}
	inner, ok := outer.Right.(*ast.SetOp)
	if !ok {
		t.Fatalf("expected right to be nested union, got %T", outer.Right)
	}
	if _, ok := inner.Left.(*ast.Relation); !ok {
		t.Fatalf("expected inner left to be a bare relation, got %T", inner.Left)
	}
}

func TestParseCaseInsensitiveKeywords(t *testing.T) {
	a, err := Parse("Project[x](R);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Parse("PROJECT[X](r);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pa, pb := a.Root.(*ast.Project), b.Root.(*ast.Project)
	if pa.Columns[0].Attr != pb.Columns[0].Attr {
		t.Fatalf("case folding mismatch: %q vs %q", pa.Columns[0].Attr, pb.Columns[0].Attr)
	}
}

func TestParseSyntaxErrorOnUnexpectedToken(t *testing.T) {
	_, err := Parse("project[name](select[sal>](emp));")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	se, ok := err.(*SyntaxError)
	if !ok {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}
	if se.Token.Value != "]" {
		t.Fatalf("offending token = %q, want ]", se.Token.Value)
	}
}

func TestParseRenameArity(t *testing.T) {
	tree, err := Parse("rename[a,b](project[id,name](emp));")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ren := tree.Root.(*ast.Rename)
	if len(ren.NewNames) != 2 {
		t.Fatalf("new names = %v", ren.NewNames)
	}
}

func TestParseAssignsUniqueIDs(t *testing.T) {
	tree, err := Parse("project[name](select[sal>50000](emp));")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[int]bool{}
	ast.Walk(tree.Root, func(n ast.Node) {
		if seen[n.Hdr().ID] {
			t.Fatalf("duplicate node ID %d", n.Hdr().ID)
		}
		seen[n.Hdr().ID] = true
	})
	if len(seen) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(seen))
	}
}
