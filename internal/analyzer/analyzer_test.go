package analyzer

import (
	"strings"
	"testing"

	"github.com/raql-dev/raql/internal/catalog"
	"github.com/raql-dev/raql/internal/parser"
)

func empDeptCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Add("EMP", []catalog.Column{
		{Name: "ID", Domain: catalog.Integer},
		{Name: "NAME", Domain: catalog.Varchar},
		{Name: "DEPT", Domain: catalog.Varchar},
		{Name: "SAL", Domain: catalog.Integer},
	})
	cat.Add("DEPT", []catalog.Column{
		{Name: "DEPT", Domain: catalog.Varchar},
		{Name: "LOC", Domain: catalog.Varchar},
	})
	return cat
}

func analyzeSource(t *testing.T, src string) error {
	t.Helper()
	tree, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return Analyze(tree.Root, empDeptCatalog())
}

func TestScenario1ProjectSelect(t *testing.T) {
	err := analyzeSource(t, "project[name](select[sal>50000](emp));")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScenario2Join(t *testing.T) {
	tree, err := parser.Parse("emp join dept;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Analyze(tree.Root, empDeptCatalog()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ID", "NAME", "DEPT", "SAL", "LOC"}
	got := tree.Root.Hdr().Attributes
	if len(got) != len(want) {
		t.Fatalf("attributes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attribute %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScenario3Times(t *testing.T) {
	tree, err := parser.Parse("emp times dept;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Analyze(tree.Root, empDeptCatalog()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	attrs := tree.Root.Hdr().Attributes
	hasL, hasR := false, false
	for _, a := range attrs {
		if a == "DEPT_L" {
			hasL = true
		}
		if a == "DEPT_R" {
			hasR = true
		}
	}
	if !hasL || !hasR {
		t.Fatalf("attributes = %v, want DEPT_L and DEPT_R", attrs)
	}
}

func TestScenario4Aggregate(t *testing.T) {
	tree, err := parser.Parse("aggregate[(CNT),(count(ID)),(DEPT)](emp);")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Analyze(tree.Root, empDeptCatalog()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hdr := tree.Root.Hdr()
	if len(hdr.Attributes) != 1 || hdr.Attributes[0] != "CNT" {
		t.Fatalf("attributes = %v", hdr.Attributes)
	}
	if hdr.Domains[0] != catalog.Integer {
		t.Fatalf("domain = %v, want INTEGER", hdr.Domains[0])
	}
}

func TestScenario5RenameArityMismatch(t *testing.T) {
	err := analyzeSource(t, "rename[a,b,c](project[id,name](emp));")
	if err == nil {
		t.Fatal("expected an arity-mismatch error")
	}
	if !strings.Contains(err.Error(), "SEMANTIC ERROR (RENAME)") {
		t.Fatalf("got %v, want SEMANTIC ERROR (RENAME)", err)
	}
}

func TestScenario6UnknownRelation(t *testing.T) {
	err := analyzeSource(t, "project[name](bogus);")
	if err == nil {
		t.Fatal("expected an unknown-relation error")
	}
	if !strings.Contains(err.Error(), "BOGUS") {
		t.Fatalf("got %v, want it to mention BOGUS", err)
	}
}

func TestSelectTypeMismatch(t *testing.T) {
	err := analyzeSource(t, "select[name>50000](emp);")
	if err == nil {
		t.Fatal("expected a type-mismatch error")
	}
	if !strings.Contains(err.Error(), "SEMANTIC ERROR (SELECT)") {
		t.Fatalf("got %v", err)
	}
}

func TestUnionArityMismatch(t *testing.T) {
	err := analyzeSource(t, "project[id,name,dept](emp) union dept;")
	if err == nil {
		t.Fatal("expected an arity-mismatch error")
	}
	if !strings.Contains(err.Error(), "SEMANTIC ERROR (UNION)") {
		t.Fatalf("got %v", err)
	}
}

func TestAggregateGroupByDiscipline(t *testing.T) {
	// NAME is a pass-through item but not in the group-by list.
	err := analyzeSource(t, "aggregate[(NM,CNT),(name,count(ID)),(DEPT)](emp);")
	if err == nil {
		t.Fatal("expected a group-by discipline error")
	}
	if !strings.Contains(err.Error(), "SEMANTIC ERROR (AGGREGATE)") {
		t.Fatalf("got %v", err)
	}
}

func TestProjectForwardsThroughJoinOfAggregates(t *testing.T) {
	src := "project[CNT,TOTAL](" +
		"aggregate[(CNT),(count(ID)),(DEPT)](emp) " +
		"join " +
		"aggregate[(TOTAL),(sum(SAL)),(DEPT)](emp));"
	err := analyzeSource(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
