package evaluator_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/evaluator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Values(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		text  string
	}{
		{"12+3", 15, "15"},
		{"(2+3)*4", 20, "20"},
		{"2+3*4", 14, "14"},
		{"10-4-3", 3, "3"},
		{"24/4/3", 2, "2"},
		{"15*2", 30, "30"},
		{"-3+5", 2, "2"},
		{"2*-3", -6, "-6"},
		{"-(-3)", 3, "3"},
		{"+4", 4, "4"},
		{"-(2+3)", -5, "-5"},
		{"1/4", 0.25, "0.25"},
		{"5.", 5, "5"},
		{".5*2", 1, "1"},
		{"0.1+0.2", 0.30000000000000004, "0.30000000000000004"},
		{"  7 × 6  ", 42, "42"},
		{"9 ÷ 3", 3, "3"},
		{"9 − 10", -1, "-1"},
		{"((1))", 1, "1"},
		{"-0", 0, "0"},
		{"0*-1", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := evaluator.Evaluate(tt.input)
			require.True(t, out.OK(), "unexpected failure: %v", out.Err)
			assert.Equal(t, tt.want, out.Value)
			assert.Equal(t, tt.text, out.Text)
		})
	}
}

func TestEvaluate_Failures(t *testing.T) {
	tests := []struct {
		input string
		kind  domain.EvalErrorKind
	}{
		{"5/0", domain.NonFiniteResult},
		{"-5/0", domain.NonFiniteResult},
		{"0/0", domain.NonFiniteResult},
		{"3+", domain.NonFiniteResult},
		{"(1+2", domain.NonFiniteResult},
		{"1+2)", domain.NonFiniteResult},
		{"()", domain.NonFiniteResult},
		{"1.2.3", domain.NonFiniteResult},
		{".", domain.NonFiniteResult},
		{"1 2", domain.NonFiniteResult},
		{"2(3)", domain.NonFiniteResult},
		{"", domain.NonFiniteResult},
		{"--3", domain.NonFiniteResult},
		{"+-3", domain.NonFiniteResult},
		{"2*--3", domain.NonFiniteResult},
		{"2**3", domain.ForbiddenSequence},
		{"8//2", domain.ForbiddenSequence},
		{"1;2", domain.InvalidCharacter},
		{"abc", domain.InvalidCharacter},
		{"2^3", domain.InvalidCharacter},
		{"1,5", domain.InvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := evaluator.Evaluate(tt.input)
			require.False(t, out.OK())
			assert.Equal(t, tt.kind, out.Err.Kind, out.Err.Error())
		})
	}
}

func TestEvaluate_ErrorsWrapSentinels(t *testing.T) {
	out := evaluator.Evaluate("5/0")
	require.NotNil(t, out.Err)
	assert.True(t, errors.Is(out.Err, domain.ErrNonFiniteResult))

	out = evaluator.Evaluate("2**2")
	assert.True(t, errors.Is(out.Err, domain.ErrForbiddenSequence))
	assert.Equal(t, 1, out.Err.Pos)

	out = evaluator.Evaluate("1+x")
	assert.True(t, errors.Is(out.Err, domain.ErrInvalidCharacter))
	assert.Equal(t, 2, out.Err.Pos)
}

func TestEvaluate_RoundTripStable(t *testing.T) {
	inputs := []string{"12+3", "1/3", "-7/2", "0.1+0.2", "2/3*-9", "123456789*1000"}
	for _, in := range inputs {
		first := evaluator.Evaluate(in)
		require.True(t, first.OK(), in)

		again := evaluator.Evaluate(first.Text)
		require.True(t, again.OK(), first.Text)
		assert.Equal(t, first.Value, again.Value, in)
		assert.Equal(t, first.Text, again.Text, in)
	}
}

func TestValidate_RunsBeforeParsing(t *testing.T) {
	assert.Nil(t, evaluator.Validate("(1+2"))
	assert.Equal(t, domain.ForbiddenSequence, evaluator.Validate("1**").Kind)
	assert.Equal(t, domain.InvalidCharacter, evaluator.Validate("x").Kind)
}

func TestParse_Precedence(t *testing.T) {
	tests := map[string]string{
		"1+2*3":   "(1 + (2 * 3))",
		"(1+2)*3": "((1 + 2) * 3)",
		"1-2-3":   "((1 - 2) - 3)",
		"-2*3":    "((-2) * 3)",
		"8/2/2":   "((8 / 2) / 2)",
	}
	for in, want := range tests {
		tree, err := evaluator.Parse(in)
		require.Nil(t, err, in)
		assert.Equal(t, want, evaluator.String(tree), in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "15", evaluator.Format(15))
	assert.Equal(t, "0", evaluator.Format(-0.0))
	assert.Equal(t, "-2.5", evaluator.Format(-2.5))
	assert.Equal(t, "100000000000000000000", evaluator.Format(1e20))
	assert.Equal(t, "0.000001", evaluator.Format(1e-6))
}

func TestEvaluate_NestingDepth(t *testing.T) {
	nested := func(n int) string {
		return strings.Repeat("(", n) + "1" + strings.Repeat(")", n)
	}

	out := evaluator.Evaluate(nested(evaluator.MaxDepth))
	require.True(t, out.OK(), "unexpected failure: %v", out.Err)
	assert.Equal(t, "1", out.Text)

	tests := map[string]string{
		"one past the limit": nested(evaluator.MaxDepth + 1),
		"deep parentheses":   nested(100000),
		"unclosed groups":    strings.Repeat("(", 100000) + "1",
		"negated groups":     strings.Repeat("-(", 100000) + "1" + strings.Repeat(")", 100000),
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			out := evaluator.Evaluate(input)
			require.False(t, out.OK())
			assert.Equal(t, domain.NonFiniteResult, out.Err.Kind)
			assert.Equal(t, "expression nested too deeply", out.Err.Detail)
		})
	}
}

func TestEvaluate_LongSignChain(t *testing.T) {
	out := evaluator.Evaluate(strings.Repeat("-", 100000) + "1")
	require.False(t, out.OK())
	assert.Equal(t, domain.NonFiniteResult, out.Err.Kind)
	assert.Equal(t, 1, out.Err.Pos)
}
