package ast

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Constant:    "Constant",
		Variable:    "Variable",
		Function:    "Function",
		Array:       "Array",
		Attribute:   "Attribute",
		UnaryOp:     "UnaryOp",
		BinaryOp:    "BinaryOp",
		LogicalOp:   "LogicalOp",
		Conditional: "Conditional",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

func TestOpStringRendersSourceSpelling(t *testing.T) {
	cases := map[Op]string{
		OpAdd: "+",
		OpSub: "-",
		OpMul: "*",
		OpDiv: "/",
		OpMod: "%",
		OpPow: "^",
		OpLt:  "<",
		OpLe:  "<=",
		OpGt:  ">",
		OpGe:  ">=",
		OpEq:  "==",
		OpNe:  "!=",
		OpAnd: "&&",
		OpOr:  "||",
		OpNot: "!",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("Op(%d).String() = %q, want %q", op, got, want)
		}
	}
}

func TestNodeStringConstantAndBinary(t *testing.T) {
	left := &Node{Kind: Constant, Num: 1}
	right := &Node{Kind: Constant, Num: 2}
	n := &Node{Kind: BinaryOp, Op: OpAdd, Left: left, Right: right}
	if got, want := n.String(), "(1 + 2)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNodeStringNilIsSafe(t *testing.T) {
	var n *Node
	if got := n.String(); got != "<nil>" {
		t.Errorf("nil.String() = %q, want <nil>", got)
	}
}
