package inspector

import (
	"context"
	"testing"

	"github.com/raql-dev/raql/internal/analyzer"
	"github.com/raql-dev/raql/internal/ast"
	"github.com/raql-dev/raql/internal/catalog"
	"github.com/raql-dev/raql/internal/driver"
	"github.com/raql-dev/raql/internal/namer"
	"github.com/raql-dev/raql/internal/parser"
)

type fakeDriver struct {
	gotSQL  string
	headers []driver.Header
	rows    [][]any
}

func (f *fakeDriver) ListRelations(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeDriver) ListColumns(ctx context.Context, relation string) ([]driver.ColumnInfo, error) {
	return nil, nil
}
func (f *fakeDriver) Execute(ctx context.Context, sql string) ([]driver.Header, [][]any, error) {
	f.gotSQL = sql
	return f.headers, f.rows, nil
}
func (f *fakeDriver) Close() error { return nil }

func empDeptCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Add("EMP", []catalog.Column{
		{Name: "ID", Domain: catalog.Integer},
		{Name: "NAME", Domain: catalog.Varchar},
		{Name: "DEPT", Domain: catalog.Varchar},
		{Name: "SAL", Domain: catalog.Integer},
	})
	return cat
}

func buildTree(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := analyzer.Analyze(tree.Root, empDeptCatalog()); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	namer.Assign(tree.Root, namer.NewCounter())
	return tree
}

func TestInspectUsesNodeAttributes(t *testing.T) {
	tree := buildTree(t, "project[name](select[sal>50000](emp));")
	fd := &fakeDriver{
		headers: []driver.Header{{Name: "NAME"}},
		rows:    [][]any{{"ANN"}},
	}

	headers, rows, err := Inspect(context.Background(), tree, tree.Root.Hdr().ID, fd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(headers) != 1 || headers[0].Name != "NAME" {
		t.Fatalf("headers = %v", headers)
	}
	if len(rows) != 1 || rows[0][0] != "ANN" {
		t.Fatalf("rows = %v", rows)
	}
	if fd.gotSQL == "" {
		t.Fatal("expected SQL to be generated and executed")
	}
}

func TestInspectOnChildNode(t *testing.T) {
	tree := buildTree(t, "project[name](select[sal>50000](emp));")
	child := tree.Root.Children()[0]
	fd := &fakeDriver{
		headers: []driver.Header{{Name: "ID"}, {Name: "NAME"}, {Name: "DEPT"}, {Name: "SAL"}},
		rows:    [][]any{{1, "ANN", "ENG", 60000}},
	}

	headers, _, err := Inspect(context.Background(), tree, child.Hdr().ID, fd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(headers) != 4 {
		t.Fatalf("headers = %v, want 4 columns", headers)
	}
}

func TestInspectUnknownNodeID(t *testing.T) {
	tree := buildTree(t, "emp;")
	fd := &fakeDriver{}
	if _, _, err := Inspect(context.Background(), tree, 99999, fd); err != ErrNodeNotFound {
		t.Fatalf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestInspectFallsBackToDriverHeadersOnMismatch(t *testing.T) {
	tree := buildTree(t, "emp;")
	fd := &fakeDriver{
		headers: []driver.Header{{Name: "ID"}},
		rows:    [][]any{{1}},
	}
	headers, _, err := Inspect(context.Background(), tree, tree.Root.Hdr().ID, fd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(headers) != 1 || headers[0].Name != "ID" {
		t.Fatalf("headers = %v", headers)
	}
}
