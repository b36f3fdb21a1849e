package domain

import "fmt"

// EvalErrorKind classifies evaluation failures.
type EvalErrorKind string

const (
	// InvalidCharacter: the input holds a character outside the arithmetic allow-list.
	InvalidCharacter EvalErrorKind = "invalid_character"
	// ForbiddenSequence: the input holds a repeated operator or non-arithmetic sequence.
	ForbiddenSequence EvalErrorKind = "forbidden_sequence"
	// NonFiniteResult: the value is infinite or NaN, or the expression is malformed.
	NonFiniteResult EvalErrorKind = "non_finite_result"
)

// EvalError describes why an expression could not be evaluated.
type EvalError struct {
	Kind   EvalErrorKind `json:"kind"`
	Pos    int           `json:"pos"`
	Detail string        `json:"detail,omitempty"`
}

func (e *EvalError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s at %d", e.Kind, e.Pos)
	}
	return fmt.Sprintf("%s at %d: %s", e.Kind, e.Pos, e.Detail)
}

// Unwrap returns the sentinel matching Kind.
func (e *EvalError) Unwrap() error {
	switch e.Kind {
	case InvalidCharacter:
		return ErrInvalidCharacter
	case ForbiddenSequence:
		return ErrForbiddenSequence
	default:
		return ErrNonFiniteResult
	}
}

// Outcome is the tagged result of an evaluation: Ok(Value) or Err(Err.Kind).
type Outcome struct {
	Value float64    `json:"value"`
	Text  string     `json:"text,omitempty"`
	Err   *EvalError `json:"error,omitempty"`
}

// Ok builds a successful outcome. text is the canonical rendering of v.
func Ok(v float64, text string) Outcome {
	return Outcome{Value: v, Text: text}
}

// Fail builds a failed outcome.
func Fail(kind EvalErrorKind, pos int, detail string) Outcome {
	return Outcome{Err: &EvalError{Kind: kind, Pos: pos, Detail: detail}}
}

// OK reports whether the evaluation produced a finite value.
func (o Outcome) OK() bool {
	return o.Err == nil
}

func (o Outcome) String() string {
	if o.Err != nil {
		return "Err(" + string(o.Err.Kind) + ")"
	}
	return "Ok(" + o.Text + ")"
}
