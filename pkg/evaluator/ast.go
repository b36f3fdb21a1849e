package evaluator

import (
	"strconv"
)

// Node is an arithmetic expression tree.
type Node interface {
	node()
}

// Number is a numeric literal.
type Number struct {
	Value float64
	Pos   int
}

// Unary is a sign applied to an operand: -x or +x.
type Unary struct {
	Op  byte
	X   Node
	Pos int
}

// Binary is an infix operation.
type Binary struct {
	Op   byte
	X, Y Node
	Pos  int
}

// Group is a parenthesized sub-expression.
type Group struct {
	X   Node
	Pos int
}

func (*Number) node() {}
func (*Unary) node()  {}
func (*Binary) node() {}
func (*Group) node()  {}

// Eval computes the value of a tree using IEEE-754 float64 arithmetic.
// Division by zero yields ±Inf or NaN; callers decide what to do with them.
func Eval(n Node) float64 {
	switch n := n.(type) {
	case *Number:
		return n.Value
	case *Group:
		return Eval(n.X)
	case *Unary:
		if n.Op == '-' {
			return -Eval(n.X)
		}
		return Eval(n.X)
	case *Binary:
		x, y := Eval(n.X), Eval(n.Y)
		switch n.Op {
		case '+':
			return x + y
		case '-':
			return x - y
		case '*':
			return x * y
		case '/':
			return x / y
		}
	}
	panic("evaluator: unknown node")
}

// String renders the tree fully parenthesized, mostly for tests and debugging.
func String(n Node) string {
	switch n := n.(type) {
	case *Number:
		return strconv.FormatFloat(n.Value, 'f', -1, 64)
	case *Group:
		return String(n.X)
	case *Unary:
		return "(" + string(n.Op) + String(n.X) + ")"
	case *Binary:
		return "(" + String(n.X) + " " + string(n.Op) + " " + String(n.Y) + ")"
	}
	return "?"
}
