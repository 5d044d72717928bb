// Package printer renders an arena AST back to canonical expression source.
// It exists for the parse/print/re-parse round-trip property: printing a
// parsed AST and re-parsing the result must yield a structurally identical
// tree. Parentheses are emitted only where the child's precedence is lower
// than what the parent position requires — matching the input exactly is
// not a goal, only preserving grouping.
package printer

import (
	"strconv"
	"strings"

	"github.com/rtexpr/rtexpr/internal/ast"
)

// Print renders n as canonical infix source.
func Print(n *ast.Node) string {
	var sb strings.Builder
	write(&sb, n, 0)
	return sb.String()
}

// Precedence levels mirror the parser's binding powers, used only to decide
// where parentheses are required.
const (
	precLowest = iota
	precTernary
	precOr
	precAnd
	precCompare
	precAdditive
	precMult
	precPower
	precUnary
	precPostfix
)

func opPrec(op ast.Op) int {
	switch op {
	case ast.OpOr:
		return precOr
	case ast.OpAnd:
		return precAnd
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return precCompare
	case ast.OpAdd, ast.OpSub:
		return precAdditive
	case ast.OpMul, ast.OpDiv, ast.OpMod:
		return precMult
	case ast.OpPow:
		return precPower
	case ast.OpNeg, ast.OpPos, ast.OpNot:
		return precUnary
	default:
		return precLowest
	}
}

func nodePrec(n *ast.Node) int {
	switch n.Kind {
	case ast.BinaryOp, ast.LogicalOp, ast.UnaryOp:
		return opPrec(n.Op)
	case ast.Conditional:
		return precTernary
	case ast.Constant, ast.Variable, ast.Function, ast.Array, ast.Attribute:
		return precPostfix
	default:
		return precPostfix
	}
}

func write(sb *strings.Builder, n *ast.Node, minPrec int) {
	if n == nil {
		return
	}
	prec := nodePrec(n)
	needParens := prec < minPrec
	if needParens {
		sb.WriteByte('(')
	}

	switch n.Kind {
	case ast.Constant:
		sb.WriteString(strconv.FormatFloat(n.Num, 'g', -1, 64))
	case ast.Variable:
		sb.Write(n.Name)
	case ast.Function:
		sb.Write(n.Name)
		sb.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			write(sb, arg, precLowest)
		}
		sb.WriteByte(')')
	case ast.Array:
		sb.Write(n.Name)
		sb.WriteByte('[')
		write(sb, n.Index, precLowest)
		sb.WriteByte(']')
	case ast.Attribute:
		sb.Write(n.Name)
		sb.WriteByte('.')
		sb.Write(n.Attr)
	case ast.UnaryOp:
		sb.WriteString(n.Op.String())
		write(sb, n.Left, precUnary)
	case ast.BinaryOp:
		leftMin, rightMin := prec, prec+1
		if n.Op == ast.OpPow {
			// Right-associative: the right operand may itself be '^' at
			// the same precedence without needing parens.
			leftMin, rightMin = prec+1, prec
		}
		write(sb, n.Left, leftMin)
		sb.WriteByte(' ')
		sb.WriteString(n.Op.String())
		sb.WriteByte(' ')
		write(sb, n.Right, rightMin)
	case ast.LogicalOp:
		write(sb, n.Left, prec)
		sb.WriteByte(' ')
		sb.WriteString(n.Op.String())
		sb.WriteByte(' ')
		write(sb, n.Right, prec+1)
	case ast.Conditional:
		write(sb, n.Cond, precTernary+1)
		sb.WriteString(" ? ")
		write(sb, n.Then, precLowest)
		sb.WriteString(" : ")
		write(sb, n.Else, precTernary)
	}

	if needParens {
		sb.WriteByte(')')
	}
}
