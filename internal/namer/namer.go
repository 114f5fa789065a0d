// Package namer assigns TEMP_k relation names to internal tree nodes
// (§4.3). The counter is a value the caller owns and passes in,
// rather than package-level state, so that independent compilations
// running in the same process never share a name space (§5, §9).
package namer

import (
	"fmt"

	"github.com/raql-dev/raql/internal/ast"
)

// Counter is the externalized, caller-owned temp-name generator.
// Its zero value starts numbering at TEMP_0.
type Counter struct {
	next int
}

// NewCounter returns a fresh counter starting at TEMP_0.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the next TEMP_k name and advances the counter.
func (c *Counter) Next() string {
	name := fmt.Sprintf("TEMP_%d", c.next)
	c.next++
	return name
}

// Assign performs the post-order walk of §4.3: every non-leaf node
// gets the next TEMP_k name; leaves keep the relation name the parser
// already gave their Header.TempName.
func Assign(n ast.Node, c *Counter) {
	if n == nil {
		return
	}
	for _, child := range n.Children() {
		Assign(child, c)
	}
	if n.Kind() != ast.RelationKind {
		n.Hdr().TempName = c.Next()
	}
}
