// Package parser implements a Pratt (operator-precedence) parser that
// builds an arena-allocated AST from expression source. A single function,
// parseExpr, parameterized by a minimum binding power, replaces the usual
// scattering of one recursive-descent function per grammar level; each
// operator contributes only a (left, right) binding-power pair and, for
// prefix/postfix forms, a small dispatch in parsePrefix.
//
// Nothing parsed here is ever cloned: every node and every interned name is
// allocated directly into the caller-supplied arena, and temporary argument
// lists are accumulated via arena.NodeListBuilder and frozen in place.
package parser

import (
	"github.com/rtexpr/rtexpr/internal/arena"
	"github.com/rtexpr/rtexpr/internal/ast"
	"github.com/rtexpr/rtexpr/internal/errors"
	"github.com/rtexpr/rtexpr/internal/lexer"
)

// Binding powers, lowest to highest. Gaps of 10 leave room to insert a level
// later without renumbering everything else.
const (
	lowest     = 0
	ternaryBP  = 10 // ?: (right-associative)
	orBP       = 20 // ||
	andBP      = 30 // &&
	compareBP  = 40 // == != < <= > >=
	additiveBP = 50 // + -
	multBP     = 60 // * / %
	powerBP    = 70 // ^ ** (right-associative)
	unaryBP    = 80 // prefix +, -, !
)

// Parser holds the state of one parse. A Parser is single-use: construct a
// new one per call to Parse.
type Parser struct {
	lex    *lexer.Lexer
	arena  *arena.Arena
	source string

	cur  lexer.Token
	peek lexer.Token
}

// Parse parses source into a into a, returning the root expression node.
func Parse(source string, a *arena.Arena) (*ast.Node, error) {
	p := &Parser{lex: lexer.New(source), arena: a, source: source}
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}

	root, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.EOF {
		return nil, p.err("TrailingTokens", "unexpected token %q after expression", p.cur.Literal)
	}
	return root, nil
}

func (p *Parser) next() error {
	p.cur = p.peek
	tok, err := p.lex.NextToken()
	if err != nil {
		if pe, ok := err.(*errors.Error); ok {
			pe.WithSource(p.source, pe.Pos)
		}
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) err(context, format string, args ...any) error {
	return errors.Syntax(context, p.cur.Pos, format, args...).WithSource(p.source, p.cur.Pos)
}

// parseExpr is the Pratt core: parse one prefix form, then keep absorbing
// infix/ternary continuations as long as their binding power is at least
// minBP.
func (p *Parser) parseExpr(minBP int) (*ast.Node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		if p.cur.Type == lexer.QUESTION && ternaryBP >= minBP {
			node, err := p.parseTernary(left)
			if err != nil {
				return nil, err
			}
			left = node
			continue
		}

		op, lbp, rbp, isLogical, ok := binaryInfo(p.cur.Type)
		if !ok || lbp < minBP {
			break
		}
		opTok := p.cur
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseExpr(rbp)
		if err != nil {
			return nil, err
		}
		kind := ast.BinaryOp
		if isLogical {
			kind = ast.LogicalOp
		}
		left, err = p.alloc(ast.Node{Kind: kind, Op: op, Left: left, Right: right, Pos: opTok.Pos})
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseTernary(cond *ast.Node) (*ast.Node, error) {
	pos := p.cur.Pos
	if err := p.next(); err != nil { // consume '?'
		return nil, err
	}
	then, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.COLON {
		return nil, p.err("ExpectedColon", "expected ':' in ternary expression, got %q", p.cur.Literal)
	}
	if err := p.next(); err != nil { // consume ':'
		return nil, err
	}
	// Right-associative: reuse ternaryBP (not ternaryBP+1) so a ternary in
	// the else-branch nests as a ? b : (c ? d : e).
	els, err := p.parseExpr(ternaryBP)
	if err != nil {
		return nil, err
	}
	return p.alloc(ast.Node{Kind: ast.Conditional, Cond: cond, Then: then, Else: els, Pos: pos})
}

// binaryInfo reports the operator, its binding powers, and whether it is a
// short-circuit logical operator, for a token that can appear as an infix
// operator. rbp equals lbp for right-associative operators (^, **) and
// lbp+1 otherwise.
func binaryInfo(tt lexer.TokenType) (op ast.Op, lbp, rbp int, isLogical bool, ok bool) {
	switch tt {
	case lexer.OROR:
		return ast.OpOr, orBP, orBP + 1, true, true
	case lexer.ANDAND:
		return ast.OpAnd, andBP, andBP + 1, true, true
	case lexer.EQ:
		return ast.OpEq, compareBP, compareBP + 1, false, true
	case lexer.NE:
		return ast.OpNe, compareBP, compareBP + 1, false, true
	case lexer.LT:
		return ast.OpLt, compareBP, compareBP + 1, false, true
	case lexer.LE:
		return ast.OpLe, compareBP, compareBP + 1, false, true
	case lexer.GT:
		return ast.OpGt, compareBP, compareBP + 1, false, true
	case lexer.GE:
		return ast.OpGe, compareBP, compareBP + 1, false, true
	case lexer.PLUS:
		return ast.OpAdd, additiveBP, additiveBP + 1, false, true
	case lexer.MINUS:
		return ast.OpSub, additiveBP, additiveBP + 1, false, true
	case lexer.STAR:
		return ast.OpMul, multBP, multBP + 1, false, true
	case lexer.SLASH:
		return ast.OpDiv, multBP, multBP + 1, false, true
	case lexer.PERCENT:
		return ast.OpMod, multBP, multBP + 1, false, true
	case lexer.CARET:
		return ast.OpPow, powerBP, powerBP, false, true
	case lexer.STARSTAR:
		return ast.OpPow, powerBP, powerBP, false, true
	default:
		return 0, 0, 0, false, false
	}
}

// parsePrefix parses a primary expression: a literal, a name reference (in
// its bare, call, index or attribute forms), a parenthesized expression, or
// a prefix unary operator applied to a primary.
func (p *Parser) parsePrefix() (*ast.Node, error) {
	switch p.cur.Type {
	case lexer.NUMBER:
		n, err := p.alloc(ast.Node{Kind: ast.Constant, Num: p.cur.Num, Pos: p.cur.Pos})
		if err != nil {
			return nil, err
		}
		return n, p.next()
	case lexer.IDENT:
		return p.parseIdentLed()
	case lexer.LPAREN:
		pos := p.cur.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.RPAREN {
			return nil, errors.Syntax("UnclosedParen", pos, "unclosed '(' starting here").WithSource(p.source, pos)
		}
		return inner, p.next()
	case lexer.MINUS:
		return p.parseUnary(ast.OpNeg)
	case lexer.PLUS:
		return p.parseUnary(ast.OpPos)
	case lexer.BANG:
		return p.parseUnary(ast.OpNot)
	default:
		return nil, p.err("ExpectedPrimary", "expected an expression, got %q", p.cur.Literal)
	}
}

func (p *Parser) parseUnary(op ast.Op) (*ast.Node, error) {
	pos := p.cur.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr(unaryBP)
	if err != nil {
		return nil, err
	}
	return p.alloc(ast.Node{Kind: ast.UnaryOp, Op: op, Left: operand, Pos: pos})
}

// parseIdentLed resolves the postfix form that follows a bare identifier:
// name(args...), name[index], name.attr, or a plain variable reference.
func (p *Parser) parseIdentLed() (*ast.Node, error) {
	pos := p.cur.Pos
	name, err := p.internIdent(p.cur.Literal)
	if err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}

	switch p.cur.Type {
	case lexer.LPAREN:
		return p.parseCall(name, pos)
	case lexer.LBRACKET:
		return p.parseArrayAccess(name, pos)
	case lexer.DOT:
		return p.parseAttribute(name, pos)
	default:
		return p.alloc(ast.Node{Kind: ast.Variable, Name: name, Pos: pos})
	}
}

func (p *Parser) parseCall(name []byte, pos ast.Position) (*ast.Node, error) {
	if err := p.next(); err != nil { // consume '('
		return nil, err
	}
	builder := p.arena.NewNodeList()
	if p.cur.Type != lexer.RPAREN {
		for {
			if p.cur.Type == lexer.COMMA {
				return nil, p.err("UnexpectedComma", "unexpected ',' in argument list")
			}
			arg, err := p.parseExpr(lowest)
			if err != nil {
				return nil, err
			}
			if err := builder.Append(arg); err != nil {
				return nil, err
			}
			if p.cur.Type != lexer.COMMA {
				break
			}
			if err := p.next(); err != nil { // consume ','
				return nil, err
			}
		}
	}
	if p.cur.Type != lexer.RPAREN {
		return nil, errors.Syntax("UnclosedParen", pos, "unclosed argument list for %q", name).WithSource(p.source, pos)
	}
	if err := p.next(); err != nil { // consume ')'
		return nil, err
	}
	return p.alloc(ast.Node{Kind: ast.Function, Name: name, Args: builder.Freeze(), Pos: pos})
}

func (p *Parser) parseArrayAccess(name []byte, pos ast.Position) (*ast.Node, error) {
	if err := p.next(); err != nil { // consume '['
		return nil, err
	}
	index, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.RBRACKET {
		return nil, errors.Syntax("UnclosedBracket", pos, "unclosed '[' for array %q", name).WithSource(p.source, pos)
	}
	if err := p.next(); err != nil { // consume ']'
		return nil, err
	}
	return p.alloc(ast.Node{Kind: ast.Array, Name: name, Index: index, Pos: pos})
}

func (p *Parser) parseAttribute(base []byte, pos ast.Position) (*ast.Node, error) {
	if err := p.next(); err != nil { // consume '.'
		return nil, err
	}
	if p.cur.Type != lexer.IDENT {
		return nil, p.err("ExpectedPrimary", "expected an attribute name after '.', got %q", p.cur.Literal)
	}
	attr, err := p.internIdent(p.cur.Literal)
	if err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p.alloc(ast.Node{Kind: ast.Attribute, Name: base, Attr: attr, Pos: pos})
}

func (p *Parser) internIdent(s string) ([]byte, error) {
	return p.arena.AllocStr([]byte(s))
}

func (p *Parser) alloc(n ast.Node) (*ast.Node, error) {
	return p.arena.AllocNode(n)
}
