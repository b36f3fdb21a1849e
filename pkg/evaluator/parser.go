package evaluator

import (
	"github.com/aretw0/tally/pkg/domain"
)

// Grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = [ "+" | "-" ] primary
//	primary = number | "(" expr ")"
//
// An operand carries at most one sign, so "--3" is rejected while "-(-3)" is not.
type parser struct {
	toks  []token
	pos   int
	depth int
}

// MaxDepth bounds how deeply groups may nest.
const MaxDepth = 256

// Parse builds the expression tree for src.
// Structural problems (unbalanced parentheses, dangling operators, empty groups)
// are reported as NonFiniteResult.
func Parse(src string) (Node, *domain.EvalError) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.unexpected(t)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) unexpected(t token) *domain.EvalError {
	return &domain.EvalError{Kind: domain.NonFiniteResult, Pos: t.pos, Detail: "unexpected " + t.describe()}
}

func (p *parser) expr() (Node, *domain.EvalError) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '+' && t.op != '-') {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.op, X: left, Y: right, Pos: t.pos}
	}
}

func (p *parser) term() (Node, *domain.EvalError) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '*' && t.op != '/') {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: t.op, X: left, Y: right, Pos: t.pos}
	}
}

func (p *parser) unary() (Node, *domain.EvalError) {
	t := p.peek()
	if t.kind == tokOp && (t.op == '-' || t.op == '+') {
		p.next()
		x, err := p.primary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: t.op, X: x, Pos: t.pos}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, *domain.EvalError) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &Number{Value: t.value, Pos: t.pos}, nil
	case tokLParen:
		if p.depth >= MaxDepth {
			return nil, &domain.EvalError{Kind: domain.NonFiniteResult, Pos: t.pos, Detail: "expression nested too deeply"}
		}
		p.depth++
		x, err := p.expr()
		p.depth--
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &domain.EvalError{Kind: domain.NonFiniteResult, Pos: closing.pos, Detail: "unbalanced parenthesis"}
		}
		return &Group{X: x, Pos: t.pos}, nil
	default:
		return nil, p.unexpected(t)
	}
}
