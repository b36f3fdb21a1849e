/*
Package evaluator turns a finished expression string into a numeric Outcome.

Evaluation runs in fixed stages, each a hard gate:

 1. Normalize display glyphs and trim surrounding whitespace.
 2. Reject characters outside the arithmetic allow-list (InvalidCharacter).
 3. Reject repeated operators, statement separators and letters (ForbiddenSequence).
 4. Parse into an AST with a recursive-descent parser and evaluate it in float64.
 5. Reject infinite or NaN values and malformed input (NonFiniteResult).

No text reaches the parser before stages 2 and 3 accept it. The package holds
no state and is safe for concurrent use.
*/
package evaluator

import (
	"math"
	"strings"
	"unicode"

	"github.com/aretw0/tally/pkg/domain"
)

var glyphs = strings.NewReplacer("×", "*", "÷", "/", "−", "-")

// Normalize maps display-only glyphs to operator characters and trims whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(glyphs.Replace(text))
}

func allowed(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case strings.ContainsRune(".+-*/()", r):
		return true
	default:
		return unicode.IsSpace(r)
	}
}

var forbidden = []string{"**", "//", ";"}

// Validate runs the allow-list and forbidden-sequence stages on normalized text.
// It returns nil when the text may be handed to the parser.
func Validate(src string) *domain.EvalError {
	for i, r := range []rune(src) {
		if !allowed(r) {
			return &domain.EvalError{Kind: domain.InvalidCharacter, Pos: i, Detail: "unexpected " + quote(r)}
		}
	}
	for _, seq := range forbidden {
		if i := strings.Index(src, seq); i >= 0 {
			return &domain.EvalError{Kind: domain.ForbiddenSequence, Pos: i, Detail: "sequence " + seq}
		}
	}
	if i := strings.IndexFunc(src, unicode.IsLetter); i >= 0 {
		return &domain.EvalError{Kind: domain.ForbiddenSequence, Pos: i, Detail: "letters are not arithmetic"}
	}
	return nil
}

// Evaluate computes the value of text.
// Callers are expected to skip empty expressions; an empty text yields NonFiniteResult.
func Evaluate(text string) domain.Outcome {
	src := Normalize(text)

	if err := Validate(src); err != nil {
		return domain.Outcome{Err: err}
	}

	tree, err := Parse(src)
	if err != nil {
		return domain.Outcome{Err: err}
	}

	v := Eval(tree)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return domain.Fail(domain.NonFiniteResult, 0, "value is not finite")
	}
	return domain.Ok(v, Format(v))
}
