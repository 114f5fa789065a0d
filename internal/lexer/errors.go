package lexer

import "fmt"

// IllegalCharError reports one skipped, unrecognized input byte.
type IllegalCharError struct {
	Char   byte
	Line   int
	Column int
}

func (e *IllegalCharError) Error() string {
	return fmt.Sprintf("illegal character %q at line %d, column %d", e.Char, e.Line, e.Column)
}
