// Package raql is the public compiler surface (§6.3): compile RA
// source to SQL, or to an inspectable tree, and regenerate results
// for any subtree via the driver.
package raql

import (
	"context"
	"fmt"

	"github.com/raql-dev/raql/internal/analyzer"
	"github.com/raql-dev/raql/internal/ast"
	"github.com/raql-dev/raql/internal/catalog"
	"github.com/raql-dev/raql/internal/driver"
	"github.com/raql-dev/raql/internal/inspector"
	"github.com/raql-dev/raql/internal/namer"
	"github.com/raql-dev/raql/internal/parser"
	"github.com/raql-dev/raql/internal/sqlgen"
)

// Compile lexes, parses, names, analyzes, and generates SQL for
// source against cat, in one shot. It runs the generator's advisory
// syntax check on its own output before returning.
func Compile(source string, cat *catalog.Catalog) (string, error) {
	tree, err := CompileToTree(source, cat)
	if err != nil {
		return "", err
	}
	sql, err := EmitSQL(tree.Root)
	if err != nil {
		return "", err
	}
	return sql, nil
}

// CompileToTree runs the pipeline through the semantic analyzer and
// returns the annotated, TEMP_k-named tree without generating SQL.
// Callers that need the Subtree Inspector should keep this tree
// around rather than re-parsing.
func CompileToTree(source string, cat *catalog.Catalog) (*ast.Tree, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("raql: %w", err)
	}
	if err := analyzer.Analyze(tree.Root, cat); err != nil {
		return nil, fmt.Errorf("raql: %w", err)
	}
	namer.Assign(tree.Root, namer.NewCounter())
	return tree, nil
}

// EmitSQL generates SQL for an already-analyzed, already-named node
// and runs the generator's advisory syntax check on the result.
func EmitSQL(n ast.Node) (string, error) {
	sql, err := sqlgen.Emit(n)
	if err != nil {
		return "", fmt.Errorf("raql: %w", err)
	}
	if err := sqlgen.CheckSyntax(sql); err != nil {
		return "", fmt.Errorf("raql: generated sql failed validation: %w", err)
	}
	return sql, nil
}

// SubtreeResult regenerates SQL for the node identified by nodeID
// within t, executes it via drv, and returns the result (§4.6).
func SubtreeResult(ctx context.Context, t *ast.Tree, nodeID int, drv driver.Driver) ([]inspector.Header, [][]any, error) {
	return inspector.Inspect(ctx, t, nodeID, drv)
}

// HeaderOf returns the column headers a node would report without
// executing anything: one Header per entry in the node's own
// attribute list.
func HeaderOf(n ast.Node) []inspector.Header {
	attrs := n.Hdr().Attributes
	headers := make([]inspector.Header, len(attrs))
	for i, a := range attrs {
		headers[i] = inspector.Header{Name: a}
	}
	return headers
}
