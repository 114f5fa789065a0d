package parser

import (
	"fmt"

	"github.com/raql-dev/raql/internal/lexer"
)

// SyntaxError reports an unexpected token; it aborts parsing (§4.2, §7).
type SyntaxError struct {
	Token   lexer.Token
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SYNTAX ERROR at line %d, column %d: %s (got %q)",
		e.Token.Line, e.Token.Column, e.Message, e.Token.Value)
}
