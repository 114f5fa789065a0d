package sqlgen

import (
	"strings"
	"testing"

	"github.com/raql-dev/raql/internal/analyzer"
	"github.com/raql-dev/raql/internal/catalog"
	"github.com/raql-dev/raql/internal/namer"
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

func compile(t *testing.T, src string) string {
	t.Helper()
	tree, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := analyzer.Analyze(tree.Root, empDeptCatalog()); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	namer.Assign(tree.Root, namer.NewCounter())
	sql, err := Emit(tree.Root)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return sql
}

func TestScenario1ProjectSelect(t *testing.T) {
	sql := compile(t, "project[name](select[sal>50000](emp));")
	if !strings.Contains(sql, "SELECT NAME") {
		t.Fatalf("sql = %q, want it to select NAME", sql)
	}
	// Per spec.md §8 scenario 1, the select node wraps its child's
	// sub-query aliased by that child's own real name (the relation
	// name for a leaf, or its TEMP_k otherwise) rather than a fixed
	// placeholder alias.
	if !strings.Contains(sql, "SELECT * FROM EMP) EMP WHERE SAL > 50000") {
		t.Fatalf("sql = %q, want the EMP sub-query aliased EMP with a SAL > 50000 predicate", sql)
	}
}

func TestScenario2Join(t *testing.T) {
	sql := compile(t, "emp join dept;")
	if !strings.Contains(sql, "EMP.DEPT = DEPT.DEPT") {
		t.Fatalf("sql = %q, want a join predicate on DEPT using each side's own alias", sql)
	}
}

func TestScenario3Times(t *testing.T) {
	sql := compile(t, "emp times dept;")
	if !strings.Contains(sql, `AS "DEPT_L"`) || !strings.Contains(sql, `AS "DEPT_R"`) {
		t.Fatalf("sql = %q, want DEPT_L/DEPT_R aliases", sql)
	}
}

func TestScenario4Aggregate(t *testing.T) {
	sql := compile(t, "aggregate[(CNT),(count(ID)),(DEPT)](emp);")
	if !strings.Contains(sql, "GROUP BY DEPT") {
		t.Fatalf("sql = %q, want GROUP BY DEPT", sql)
	}
	if !strings.Contains(sql, "COUNT(ID) AS CNT") {
		t.Fatalf("sql = %q, want COUNT(ID) AS CNT", sql)
	}
}

func TestBareProjectionImpliesGroupBy(t *testing.T) {
	sql := compile(t, "project[dept](emp);")
	if !strings.Contains(sql, "GROUP BY DEPT") {
		t.Fatalf("sql = %q, want implicit GROUP BY for bare projection", sql)
	}
}

func TestProjectOfAggregateHasNoGroupBy(t *testing.T) {
	sql := compile(t, "project[cnt](aggregate[(cnt),(count(ID))](emp));")
	if strings.Contains(sql, "GROUP BY") {
		t.Fatalf("sql = %q, project over an aggregate child must not add GROUP BY", sql)
	}
}

func TestIntersectUsesInSubquery(t *testing.T) {
	sql := compile(t, "project[dept](emp) intersect project[dept](dept);")
	if !strings.Contains(sql, " IN (") || strings.Contains(sql, "NOT IN") {
		t.Fatalf("sql = %q, want an IN subquery", sql)
	}
}

func TestMinusUsesNotInSubquery(t *testing.T) {
	sql := compile(t, "project[dept](emp) minus project[dept](dept);")
	if !strings.Contains(sql, "NOT IN (") {
		t.Fatalf("sql = %q, want a NOT IN subquery", sql)
	}
}

func TestAggregateHaving(t *testing.T) {
	sql := compile(t, "aggregate[(CNT),(count(ID)),(DEPT),(count(ID)>1)](emp);")
	if !strings.Contains(sql, "HAVING COUNT(ID) > 1") {
		t.Fatalf("sql = %q, want HAVING COUNT(ID) > 1", sql)
	}
}

func TestCheckSyntaxAcceptsPlainSelect(t *testing.T) {
	if err := CheckSyntax("SELECT * FROM (SELECT * FROM EMP) tL"); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestCheckSyntaxSkipsQuotedTimesOutput(t *testing.T) {
	sql := compile(t, "emp times dept;")
	if err := CheckSyntax(sql); err != nil {
		t.Fatalf("expected times output to be skipped, got error: %v", err)
	}
}
