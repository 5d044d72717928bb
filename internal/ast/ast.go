// Package ast defines the expression engine's abstract syntax tree: a single
// tagged Node type standing in for what other languages would model as a
// sum-of-interfaces. Every non-scalar field of a Node is either a pointer
// into the owning arena or an arena-owned byte slice; no Node owns a heap
// allocation of its own. The evaluator switches on Kind; nothing else in
// the engine inspects a Node's shape after parsing.
package ast

import (
	"fmt"
	"strconv"

	"github.com/rtexpr/rtexpr/internal/errors"
)

// Position aliases the shared error-reporting location type so lexer,
// parser and ast agree on a single definition.
type Position = errors.Position

// Kind tags which case of the union a Node represents.
type Kind uint8

const (
	Constant Kind = iota
	Variable
	Function
	Array
	Attribute
	UnaryOp
	BinaryOp
	LogicalOp
	Conditional
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "Constant"
	case Variable:
		return "Variable"
	case Function:
		return "Function"
	case Array:
		return "Array"
	case Attribute:
		return "Attribute"
	case UnaryOp:
		return "UnaryOp"
	case BinaryOp:
		return "BinaryOp"
	case LogicalOp:
		return "LogicalOp"
	case Conditional:
		return "Conditional"
	default:
		return "Unknown"
	}
}

// Op tags the operator carried by UnaryOp, BinaryOp and LogicalOp nodes.
type Op uint8

const (
	OpNone Op = iota

	// Unary
	OpNeg
	OpPos
	OpNot

	// Binary arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow

	// Binary comparison
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe

	// Logical (short-circuit)
	OpAnd
	OpOr
)

// String renders the operator using its source spelling.
func (o Op) String() string {
	switch o {
	case OpNeg:
		return "-"
	case OpPos:
		return "+"
	case OpNot:
		return "!"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "^"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// Node is the tagged union described in the data model. Which fields are
// meaningful depends on Kind:
//
//	Constant    Num
//	Variable    Name
//	Function    Name, Args (source order)
//	Array       Name, Index
//	Attribute   Name (base), Attr (key)
//	UnaryOp     Op, Left (operand)
//	BinaryOp    Op, Left, Right
//	LogicalOp   Op (And/Or), Left, Right
//	Conditional Cond, Then, Else
//
// All pointer and slice fields borrow from the arena that allocated this
// Node; they remain valid only until that arena's next Reset.
type Node struct {
	Kind Kind
	Pos  Position
	Op   Op

	Num float64

	Name []byte
	Attr []byte

	Left  *Node
	Right *Node
	Index *Node

	Cond *Node
	Then *Node
	Else *Node

	Args []*Node
}

// String renders a debug form of the node, not the canonical printed form
// used for the round-trip property (see package printer for that).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case Constant:
		return strconv.FormatFloat(n.Num, 'g', -1, 64)
	case Variable:
		return string(n.Name)
	case Function:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = a.String()
		}
		return fmt.Sprintf("%s(%v)", n.Name, args)
	case Array:
		return fmt.Sprintf("%s[%s]", n.Name, n.Index.String())
	case Attribute:
		return fmt.Sprintf("%s.%s", n.Name, n.Attr)
	case UnaryOp:
		return fmt.Sprintf("(%s%s)", n.Op, n.Left.String())
	case BinaryOp, LogicalOp:
		return fmt.Sprintf("(%s %s %s)", n.Left.String(), n.Op, n.Right.String())
	case Conditional:
		return fmt.Sprintf("(%s ? %s : %s)", n.Cond.String(), n.Then.String(), n.Else.String())
	default:
		return "<invalid>"
	}
}
