// Package parser builds a relational-algebra expression tree from a
// token stream, following the BNF grammar and precedence of §4.2.
package parser

import (
	"strconv"

	"github.com/raql-dev/raql/internal/ast"
	"github.com/raql-dev/raql/internal/lexer"
)

// Parser is a recursive-descent parser over a fixed token slice.
type Parser struct {
	toks   []lexer.Token
	pos    int
	nextID int
}

// Parse tokenizes and parses a single `expr ';'` statement (the
// `query` production). Lexical errors from the tokenizer are
// returned as-is (they may be accumulated/recoverable); a syntax
// error aborts and is returned as *SyntaxError.
func Parse(source string) (*ast.Tree, error) {
	toks, lexErr := lexer.New(source).Tokenize()
	if lexErr != nil {
		return nil, lexErr
	}
	p := &Parser{toks: toks}
	root, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return &ast.Tree{Root: root, MaxID: p.nextID - 1}, nil
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, &SyntaxError{Token: p.cur(), Message: "expected " + what}
	}
	return p.advance(), nil
}

func (p *Parser) allocID() int {
	id := p.nextID
	p.nextID++
	return id
}

func (p *Parser) parseQuery() (ast.Node, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI, "';'"); err != nil {
		return nil, err
	}
	return expr, nil
}

// expr is the set-operator tier: {UNION,INTERSECT,MINUS}, right
// associative, binding looser than join/times.
func (p *Parser) parseExpr() (ast.Node, error) {
	left, err := p.parseJoinExpr()
	if err != nil {
		return nil, err
	}
	switch p.cur().Kind {
	case lexer.UNION, lexer.INTERSECT, lexer.MINUS:
		opTok := p.advance()
		id := p.allocID()
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var kind ast.Kind
		switch opTok.Kind {
		case lexer.UNION:
			kind = ast.UnionKind
		case lexer.INTERSECT:
			kind = ast.IntersectKind
		default:
			kind = ast.MinusKind
		}
		return &ast.SetOp{
			Header: ast.Header{ID: id},
			Op:     kind,
			Left:   left,
			Right:  right,
		}, nil
	}
	return left, nil
}

// joinExpr is the {JOIN,TIMES} tier: right-associative, binds tighter
// than the set-operator tier.
func (p *Parser) parseJoinExpr() (ast.Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch p.cur().Kind {
	case lexer.JOIN:
		p.advance()
		id := p.allocID()
		right, err := p.parseJoinExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Join{Header: ast.Header{ID: id}, Left: left, Right: right}, nil
	case lexer.TIMES:
		p.advance()
		id := p.allocID()
		right, err := p.parseJoinExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Times{Header: ast.Header{ID: id}, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	switch p.cur().Kind {
	case lexer.ID:
		tok := p.advance()
		id := p.allocID()
		return &ast.Relation{Header: ast.Header{ID: id, TempName: tok.Value}, Name: tok.Value}, nil
	case lexer.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.PROJECT:
		return p.parseProject()
	case lexer.RENAME:
		return p.parseRename()
	case lexer.SELECT:
		return p.parseSelect()
	case lexer.AGGREGATE:
		return p.parseAggregate()
	default:
		return nil, &SyntaxError{Token: p.cur(), Message: "expected an expression"}
	}
}

func (p *Parser) parseAttrList() ([]string, error) {
	if _, err := p.expect(lexer.LBRACKET, "'['"); err != nil {
		return nil, err
	}
	attrs, err := p.parseBareAttrList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBRACKET, "']'"); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (p *Parser) parseBareAttrList() ([]string, error) {
	var attrs []string
	tok, err := p.expect(lexer.ID, "an attribute name")
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, tok.Value)
	for p.cur().Kind == lexer.COMMA {
		p.advance()
		tok, err := p.expect(lexer.ID, "an attribute name")
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, tok.Value)
	}
	return attrs, nil
}

func (p *Parser) parseSubexpr() (ast.Node, error) {
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return inner, nil
}

func (p *Parser) parseProject() (ast.Node, error) {
	id := p.allocID()
	p.advance() // PROJECT
	if _, err := p.expect(lexer.LBRACKET, "'['"); err != nil {
		return nil, err
	}
	var cols []ast.ProjItem
	item, err := p.parseGenAttr()
	if err != nil {
		return nil, err
	}
	cols = append(cols, item)
	for p.cur().Kind == lexer.COMMA {
		p.advance()
		item, err := p.parseGenAttr()
		if err != nil {
			return nil, err
		}
		cols = append(cols, item)
	}
	if _, err := p.expect(lexer.RBRACKET, "']'"); err != nil {
		return nil, err
	}
	child, err := p.parseSubexpr()
	if err != nil {
		return nil, err
	}
	return &ast.Project{Header: ast.Header{ID: id}, Child: child, Columns: cols}, nil
}

func (p *Parser) parseRename() (ast.Node, error) {
	id := p.allocID()
	p.advance() // RENAME
	names, err := p.parseAttrList()
	if err != nil {
		return nil, err
	}
	child, err := p.parseSubexpr()
	if err != nil {
		return nil, err
	}
	return &ast.Rename{Header: ast.Header{ID: id}, Child: child, NewNames: names}, nil
}

func (p *Parser) parseSelect() (ast.Node, error) {
	id := p.allocID()
	p.advance() // SELECT
	if _, err := p.expect(lexer.LBRACKET, "'['"); err != nil {
		return nil, err
	}
	conds, err := p.parseConditionList(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBRACKET, "']'"); err != nil {
		return nil, err
	}
	child, err := p.parseSubexpr()
	if err != nil {
		return nil, err
	}
	return &ast.Select{Header: ast.Header{ID: id}, Child: child, Conditions: conds}, nil
}

// parseConditionList parses `cond` (allowAgg=false) or `gen_cond`
// (allowAgg=true): a conjunction of simple conditions joined by AND.
func (p *Parser) parseConditionList(allowAgg bool) ([]ast.Condition, error) {
	var conds []ast.Condition
	c, err := p.parseSimpleCondition(allowAgg)
	if err != nil {
		return nil, err
	}
	conds = append(conds, c)
	for p.cur().Kind == lexer.AND {
		p.advance()
		c, err := p.parseSimpleCondition(allowAgg)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func (p *Parser) parseSimpleCondition(allowAgg bool) (ast.Condition, error) {
	left, err := p.parseOperand(allowAgg)
	if err != nil {
		return ast.Condition{}, err
	}
	op, err := p.parseCompareOp()
	if err != nil {
		return ast.Condition{}, err
	}
	right, err := p.parseOperand(allowAgg)
	if err != nil {
		return ast.Condition{}, err
	}
	return ast.Condition{Left: left, Op: op, Right: right}, nil
}

func (p *Parser) parseCompareOp() (ast.CompareOp, error) {
	switch p.cur().Kind {
	case lexer.EQ:
		p.advance()
		return ast.OpEQ, nil
	case lexer.NEQ:
		p.advance()
		return ast.OpNEQ, nil
	case lexer.LT:
		p.advance()
		return ast.OpLT, nil
	case lexer.LTE:
		p.advance()
		return ast.OpLTE, nil
	case lexer.GT:
		p.advance()
		return ast.OpGT, nil
	case lexer.GTE:
		p.advance()
		return ast.OpGTE, nil
	default:
		return "", &SyntaxError{Token: p.cur(), Message: "expected a comparison operator"}
	}
}

// parseOperand parses `operand` (ID|STRING|NUMBER), or, when allowAgg
// is set, also `gen_operand` (AGG_OP '(' ID ')').
func (p *Parser) parseOperand(allowAgg bool) (ast.Operand, error) {
	switch p.cur().Kind {
	case lexer.AGG_OP:
		if !allowAgg {
			return ast.Operand{}, &SyntaxError{Token: p.cur(), Message: "aggregate operand not allowed here"}
		}
		fn := p.advance().Value
		if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
			return ast.Operand{}, err
		}
		attr, err := p.expect(lexer.ID, "a column name")
		if err != nil {
			return ast.Operand{}, err
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return ast.Operand{}, err
		}
		return ast.Operand{Kind: ast.OperandAgg, AggFunc: fn, AggAttr: attr.Value}, nil
	case lexer.ID:
		tok := p.advance()
		return ast.Operand{Kind: ast.OperandCol, Value: tok.Value}, nil
	case lexer.STRING:
		tok := p.advance()
		return ast.Operand{Kind: ast.OperandStr, Value: tok.Value}, nil
	case lexer.NUMBER:
		tok := p.advance()
		if _, err := strconv.ParseFloat(tok.Value, 64); err != nil {
			return ast.Operand{}, &SyntaxError{Token: tok, Message: "invalid numeric literal"}
		}
		return ast.Operand{Kind: ast.OperandNum, Value: tok.Value}, nil
	default:
		return ast.Operand{}, &SyntaxError{Token: p.cur(), Message: "expected an operand"}
	}
}

func (p *Parser) parseGenAttrList() ([]ast.ProjItem, error) {
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var items []ast.ProjItem
	item, err := p.parseGenAttr()
	if err != nil {
		return nil, err
	}
	items = append(items, item)
	for p.cur().Kind == lexer.COMMA {
		p.advance()
		item, err := p.parseGenAttr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return items, nil
}

// parseGenAttr parses `gen_attr := ID | AGG_OP '(' ID ')'`. The star
// form (IsStar) is recognized only when the argument is the TIMES
// keyword token, as in `count(times)`; the lexer has no token for a
// literal '*', so `count(*)` fails with an illegal-character error.
func (p *Parser) parseGenAttr() (ast.ProjItem, error) {
	if p.cur().Kind == lexer.AGG_OP {
		fn := p.advance().Value
		if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
			return ast.ProjItem{}, err
		}
		if p.cur().Kind == lexer.TIMES {
			p.advance()
			if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
				return ast.ProjItem{}, err
			}
			return ast.ProjItem{Kind: ast.ProjItemAgg, Func: ast.AggFunc(fn), IsStar: true}, nil
		}
		attr, err := p.expect(lexer.ID, "a column name or '*'")
		if err != nil {
			return ast.ProjItem{}, err
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return ast.ProjItem{}, err
		}
		return ast.ProjItem{Kind: ast.ProjItemAgg, Func: ast.AggFunc(fn), Attr: attr.Value}, nil
	}
	tok, err := p.expect(lexer.ID, "a column name or aggregate function")
	if err != nil {
		return ast.ProjItem{}, err
	}
	return ast.ProjItem{Kind: ast.ProjItemID, Attr: tok.Value}, nil
}

// parseAggregate parses the AGGREGATE production, whose payload grows
// in three optional stages (rename list and items are mandatory;
// group-by and having are each gated on a following comma).
func (p *Parser) parseAggregate() (ast.Node, error) {
	id := p.allocID()
	p.advance() // AGGREGATE
	if _, err := p.expect(lexer.LBRACKET, "'['"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
		return nil, err
	}
	renameList, err := p.parseBareAttrList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COMMA, "','"); err != nil {
		return nil, err
	}
	items, err := p.parseGenAttrList()
	if err != nil {
		return nil, err
	}

	var groupBy []string
	var having []ast.Condition

	if p.cur().Kind == lexer.COMMA {
		p.advance()
		if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
			return nil, err
		}
		groupBy, err = p.parseBareAttrList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
			return nil, err
		}
		if p.cur().Kind == lexer.COMMA {
			p.advance()
			if _, err := p.expect(lexer.LPAREN, "'('"); err != nil {
				return nil, err
			}
			having, err = p.parseConditionList(true)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RPAREN, "')'"); err != nil {
				return nil, err
			}
		}
	}

	if _, err := p.expect(lexer.RBRACKET, "']'"); err != nil {
		return nil, err
	}
	child, err := p.parseSubexpr()
	if err != nil {
		return nil, err
	}
	return &ast.Aggregate{
		Header:     ast.Header{ID: id},
		Child:      child,
		Items:      items,
		RenameList: renameList,
		GroupBy:    groupBy,
		Having:     having,
	}, nil
}
