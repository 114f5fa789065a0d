// Package inspector implements the Subtree Inspector (§4.6): given a
// serialized tree and a node identifier, it rebuilds the node graph,
// regenerates SQL for that node, executes it against a driver, and
// returns column headers paired with rows.
package inspector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raql-dev/raql/internal/ast"
	"github.com/raql-dev/raql/internal/driver"
	"github.com/raql-dev/raql/internal/sqlgen"
)

// ErrNodeNotFound is returned when the requested node ID does not
// appear in the tree.
var ErrNodeNotFound = fmt.Errorf("inspector: node not found")

// FromJSON decodes a wire-form tree (ast.Tree's JSON encoding).
func FromJSON(data []byte) (*ast.Tree, error) {
	var tree ast.Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("inspector: decode tree: %w", err)
	}
	return &tree, nil
}

// Header is one column of a subtree result: the name shown to the
// caller, preferring the node's own attribute list over whatever the
// driver reports.
type Header struct {
	Name string
}

// Inspect regenerates SQL for the node identified by nodeID within
// tree, executes it via drv, and returns the result. Headers prefer
// the node's user-visible attribute list (so aggregate and rename
// nodes show the user's chosen names) and fall back to the driver's
// reported column names when the node carries none or when their
// count differs from the driver's.
func Inspect(ctx context.Context, tree *ast.Tree, nodeID int, drv driver.Driver) ([]Header, [][]any, error) {
	node := ast.Find(tree.Root, nodeID)
	if node == nil {
		return nil, nil, ErrNodeNotFound
	}

	sql, err := sqlgen.Emit(node)
	if err != nil {
		return nil, nil, fmt.Errorf("inspector: emit sql for node %d: %w", nodeID, err)
	}

	driverHeaders, rows, err := drv.Execute(ctx, sql)
	if err != nil {
		return nil, nil, fmt.Errorf("inspector: execute node %d: %w", nodeID, err)
	}

	headers := headersFor(node, driverHeaders)
	return headers, rows, nil
}

func headersFor(node ast.Node, driverHeaders []driver.Header) []Header {
	attrs := node.Hdr().Attributes
	if len(attrs) == len(driverHeaders) && len(attrs) > 0 {
		out := make([]Header, len(attrs))
		for i, a := range attrs {
			out[i] = Header{Name: a}
		}
		return out
	}
	out := make([]Header, len(driverHeaders))
	for i, h := range driverHeaders {
		out[i] = Header{Name: h.Name}
	}
	return out
}
