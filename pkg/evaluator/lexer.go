package evaluator

import (
	"strconv"
	"unicode"

	"github.com/aretw0/tally/pkg/domain"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	op    byte
	value float64
	text  string
	pos   int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number " + t.text
	default:
		return strconv.Quote(t.text)
	}
}

// lex splits validated source into tokens. Positions are rune offsets.
func lex(src string) ([]token, *domain.EvalError) {
	runes := []rune(src)
	var toks []token

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r >= '0' && r <= '9' || r == '.':
			start := i
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &domain.EvalError{Kind: domain.NonFiniteResult, Pos: start, Detail: "malformed number " + text}
			}
			toks = append(toks, token{kind: tokNumber, value: v, text: text, pos: start})
		case r == '+' || r == '-' || r == '*' || r == '/':
			toks = append(toks, token{kind: tokOp, op: byte(r), text: string(r), pos: i})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			return nil, &domain.EvalError{Kind: domain.InvalidCharacter, Pos: i, Detail: "unexpected " + quote(r)}
		}
	}

	return append(toks, token{kind: tokEOF, pos: len(runes)}), nil
}

func quote(r rune) string {
	return strconv.QuoteRune(r)
}
