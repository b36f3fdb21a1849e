package tally_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeKeys(c *tally.Calculator, keys ...string) string {
	var expr string
	for _, k := range keys {
		expr = c.AppendToken(k)
	}
	return expr
}

func TestCalculator_Scenarios(t *testing.T) {
	t.Run("12+3= gives 15", func(t *testing.T) {
		c := tally.NewCalculator()
		typeKeys(c, "1", "2", "+", "3")
		out := c.Evaluate()
		require.True(t, out.OK())
		assert.Equal(t, "15", out.Text)
		assert.Equal(t, "15", c.Expression())
		assert.Equal(t, "15", c.Display().Text)
	})

	t.Run("5/0= is non-finite and keeps text", func(t *testing.T) {
		c := tally.NewCalculator()
		typeKeys(c, "5", "/", "0")
		out := c.Evaluate()
		require.False(t, out.OK())
		assert.Equal(t, domain.NonFiniteResult, out.Err.Kind)
		assert.Equal(t, "5/0", c.Expression())
		assert.Equal(t, domain.Display{Kind: domain.DisplayError, Text: "Error"}, c.Display())
		assert.Empty(t, c.HistoryEntries())
	})

	t.Run("(2+3)*4= gives 20", func(t *testing.T) {
		c := tally.NewCalculator()
		typeKeys(c, "(", "2", "+", "3", ")", "*", "4")
		assert.Equal(t, 20.0, c.Evaluate().Value)
	})

	t.Run("+ on empty is dropped", func(t *testing.T) {
		c := tally.NewCalculator()
		assert.Equal(t, "", c.AppendToken("+"))
		assert.Equal(t, "-", c.AppendToken("-"))
	})

	t.Run("3++= substitutes then fails", func(t *testing.T) {
		c := tally.NewCalculator()
		assert.Equal(t, "3+", typeKeys(c, "3", "+", "+"))
		out := c.Evaluate()
		assert.Equal(t, domain.NonFiniteResult, out.Err.Kind)
	})

	t.Run("chaining after a result", func(t *testing.T) {
		c := tally.NewCalculator()
		typeKeys(c, "1", "2", "+", "3")
		c.Evaluate()
		assert.Equal(t, "15*2", typeKeys(c, "*", "2"))
		assert.Equal(t, 30.0, c.Evaluate().Value)
	})
}

func TestCalculator_HistoryBound(t *testing.T) {
	c := tally.NewCalculator()
	for i := 1; i <= 11; i++ {
		c.Clear()
		typeKeys(c, fmt.Sprint(i), "+", "0")
		require.True(t, c.Evaluate().OK())
	}

	h := c.HistoryEntries()
	require.Len(t, h, 10)
	assert.Equal(t, "11+0", h[0].Expression)
	assert.NotContains(t, h, domain.HistoryEntry{Expression: "1+0", Result: "1"})

	c.ClearHistory()
	assert.Empty(t, c.HistoryEntries())
}

func TestCalculator_BackspaceAndClear(t *testing.T) {
	c := tally.NewCalculator()
	typeKeys(c, "4", "2")
	assert.Equal(t, "4", c.Backspace())
	assert.Equal(t, "", c.Backspace())
	assert.Equal(t, "", c.Backspace())

	typeKeys(c, "9")
	assert.Equal(t, "", c.Clear())
	assert.Equal(t, domain.InitialDisplay(), c.Display())
}

func TestCalculator_IgnoresForeignTokens(t *testing.T) {
	c := tally.NewCalculator()
	typeKeys(c, "1", "a", ";", "2")
	assert.Equal(t, "12", c.Expression())
}

func TestCalculator_EvaluateEmpty(t *testing.T) {
	c := tally.NewCalculator()
	assert.Nil(t, c.Evaluate())
	assert.Equal(t, domain.InitialDisplay(), c.Display())
	assert.Empty(t, c.HistoryEntries())

	typeKeys(c, "2", "+", "2")
	c.Clear()
	assert.Nil(t, c.Evaluate(), "clearing brings back the no-op")
}

func TestEngine_HooksAndCapacity(t *testing.T) {
	var evaluated []string
	eng := tally.New(
		tally.WithHistoryCapacity(1),
		tally.WithLifecycleHooks(domain.LifecycleHooks{
			OnEvaluate: func(_ context.Context, e *domain.EvaluateEvent) {
				evaluated = append(evaluated, e.Expression)
			},
		}),
	)

	c := tally.NewCalculatorWith(eng, "cap")
	typeKeys(c, "1", "+", "1")
	c.Evaluate()
	typeKeys(c, "*", "3")
	c.Evaluate()

	assert.Equal(t, []string{"1+1", "2*3"}, evaluated)
	assert.Equal(t, []domain.HistoryEntry{{Expression: "2*3", Result: "6"}}, c.HistoryEntries())
	assert.Equal(t, "cap", c.State().SessionID)
}

func TestEvaluate_Standalone(t *testing.T) {
	assert.Equal(t, "7", tally.Evaluate("1+2*3").Text)
	assert.Equal(t, domain.ForbiddenSequence, tally.Evaluate("2**3").Err.Kind)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, tally.Version)
	assert.NotContains(t, tally.Version, "\n")
}
