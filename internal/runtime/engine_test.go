package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tally/internal/runtime"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// press dispatches each command in order and returns the final state and last outcome.
func press(t *testing.T, e *runtime.Engine, s *domain.State, cmds ...domain.Command) (*domain.State, *domain.Outcome) {
	t.Helper()
	var out *domain.Outcome
	for _, c := range cmds {
		var err error
		s, out, err = e.Dispatch(context.Background(), s, c)
		require.NoError(t, err)
	}
	return s, out
}

func keys(s string) []domain.Command {
	var cmds []domain.Command
	for _, r := range s {
		c, ok := domain.CommandFromKey(string(r))
		if ok {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

func TestEngine_Start(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := runtime.NewEngine(runtime.WithClock(func() time.Time { return fixed }))

	s := e.Start("s1")
	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, "", s.Expression)
	assert.Equal(t, domain.InitialDisplay(), s.Display)
	assert.Empty(t, s.History)
	assert.Equal(t, fixed, s.UpdatedAt)
}

func TestEngine_Scenarios(t *testing.T) {
	e := runtime.NewEngine()

	t.Run("simple addition", func(t *testing.T) {
		s, out := press(t, e, e.Start("a"), keys("12+3=")...)
		require.NotNil(t, out)
		assert.True(t, out.OK())
		assert.Equal(t, 15.0, out.Value)
		assert.Equal(t, "15", s.Expression)
		assert.Equal(t, domain.Display{Kind: domain.DisplayValue, Text: "15"}, s.Display)
		assert.Equal(t, []domain.HistoryEntry{{Expression: "12+3", Result: "15"}}, s.History)
	})

	t.Run("division by zero keeps text", func(t *testing.T) {
		s, out := press(t, e, e.Start("b"), keys("5/0=")...)
		require.NotNil(t, out)
		assert.Equal(t, domain.NonFiniteResult, out.Err.Kind)
		assert.Equal(t, "5/0", s.Expression)
		assert.Equal(t, domain.DisplayError, s.Display.Kind)
		assert.Equal(t, domain.ErrorDisplayText, s.Display.Text)
		assert.Empty(t, s.History)
	})

	t.Run("grouping", func(t *testing.T) {
		_, out := press(t, e, e.Start("c"), keys("(2+3)*4=")...)
		require.NotNil(t, out)
		assert.Equal(t, 20.0, out.Value)
	})

	t.Run("leading plus dropped", func(t *testing.T) {
		s, out := press(t, e, e.Start("d"), keys("+")...)
		assert.Nil(t, out)
		assert.Equal(t, "", s.Expression)
	})

	t.Run("doubled operator substituted then trailing", func(t *testing.T) {
		s, out := press(t, e, e.Start("e"), keys("3++=")...)
		require.NotNil(t, out)
		assert.Equal(t, "3+", s.Expression)
		assert.Equal(t, domain.NonFiniteResult, out.Err.Kind)
	})

	t.Run("chaining", func(t *testing.T) {
		s, _ := press(t, e, e.Start("f"), keys("12+3=")...)
		s, out := press(t, e, s, keys("*2")...)
		assert.Nil(t, out)
		assert.Equal(t, "15*2", s.Expression)

		s, out = press(t, e, s, domain.Evaluate())
		require.NotNil(t, out)
		assert.Equal(t, 30.0, out.Value)
		assert.Equal(t, "30", s.Expression)
		require.Len(t, s.History, 2)
		assert.Equal(t, "15*2", s.History[0].Expression)
	})
}

func TestEngine_DispatchDoesNotMutateInput(t *testing.T) {
	e := runtime.NewEngine()
	s0, _ := press(t, e, e.Start("x"), keys("1+1=")...)

	s1, _, err := e.Dispatch(context.Background(), s0, domain.Append("+"))
	require.NoError(t, err)
	s2, _, err := e.Dispatch(context.Background(), s1, domain.ClearHistory())
	require.NoError(t, err)

	assert.Equal(t, "2", s0.Expression)
	assert.Len(t, s0.History, 1)
	assert.Equal(t, "2+", s1.Expression)
	assert.Empty(t, s2.History)
}

func TestEngine_EditingMarksDisplayPending(t *testing.T) {
	e := runtime.NewEngine()
	s, _ := press(t, e, e.Start("p"), keys("2*3=")...)
	s, _ = press(t, e, s, domain.Backspace())

	assert.Equal(t, "", s.Expression)
	assert.Equal(t, domain.Display{Kind: domain.DisplayPending, Text: "6"}, s.Display)

	s, _ = press(t, e, s, domain.Clear())
	assert.Equal(t, domain.InitialDisplay(), s.Display)
	assert.Len(t, s.History, 1, "clear keeps history")
}

func TestEngine_EvaluateEmptyIsNoop(t *testing.T) {
	e := runtime.NewEngine()
	s0 := e.Start("empty")
	s1, out, err := e.Dispatch(context.Background(), s0, domain.Evaluate())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, s0.Display, s1.Display)
	assert.Empty(t, s1.History)
}

func TestEngine_MultiCharacterTokenAndGlyphs(t *testing.T) {
	e := runtime.NewEngine()
	s, _ := press(t, e, e.Start("g"), domain.Append("12×3"), domain.Append("÷"), domain.Append("−"))
	assert.Equal(t, "12*3-", s.Expression)
}

func TestEngine_MultiCharacterTokenFollowsEditRules(t *testing.T) {
	e := runtime.NewEngine()
	whole, _ := press(t, e, e.Start("w"), domain.Append("3++4"))
	byKey, _ := press(t, e, e.Start("k"), keys("3++4")...)

	assert.Equal(t, "3+4", whole.Expression)
	assert.Equal(t, byKey.Expression, whole.Expression)
}

func TestEngine_HistoryBound(t *testing.T) {
	e := runtime.NewEngine(runtime.WithHistoryCapacity(3))
	s := e.Start("h")
	for _, k := range []string{"1=", "+1=", "+1=", "+1="} {
		s, _ = press(t, e, s, keys(k)...)
	}
	require.Len(t, s.History, 3)
	assert.Equal(t, "4", s.History[0].Result)
	assert.Equal(t, "2", s.History[2].Result)
}

func TestEngine_InvalidCommands(t *testing.T) {
	e := runtime.NewEngine()
	s := e.Start("i")

	_, _, err := e.Dispatch(context.Background(), s, domain.Append("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)

	_, _, err = e.Dispatch(context.Background(), s, domain.Command{Kind: "sqrt"})
	assert.ErrorIs(t, err, domain.ErrInvalidCommand)

	_, _, err = e.Dispatch(context.Background(), nil, domain.Clear())
	assert.ErrorIs(t, err, runtime.ErrNilState)
}
