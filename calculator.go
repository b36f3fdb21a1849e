package tally

import (
	"context"

	"github.com/aretw0/tally/pkg/domain"
)

// Calculator is a single in-process session: the synchronous surface a
// presentation layer binds its buttons and keys to. It is not safe for
// concurrent use.
type Calculator struct {
	engine *Engine
	state  *domain.State
}

// NewCalculator creates a calculator with its own engine.
func NewCalculator(opts ...Option) *Calculator {
	return NewCalculatorWith(New(opts...), "local")
}

// NewCalculatorWith binds a calculator to an existing engine and session ID.
func NewCalculatorWith(engine *Engine, sessionID string) *Calculator {
	return &Calculator{engine: engine, state: engine.Start(sessionID)}
}

func (c *Calculator) apply(cmd domain.Command) *domain.Outcome {
	next, out, err := c.engine.Dispatch(context.Background(), c.state, cmd)
	if err != nil {
		// Malformed tokens are ignored, the same way a keypad ignores unknown keys.
		return nil
	}
	c.state = next
	return out
}

// AppendToken adds a token and returns the new expression.
func (c *Calculator) AppendToken(token string) string {
	c.apply(domain.Append(token))
	return c.state.Expression
}

// Backspace removes the last character and returns the new expression.
func (c *Calculator) Backspace() string {
	c.apply(domain.Backspace())
	return c.state.Expression
}

// Clear empties the expression, resets the display and returns "".
func (c *Calculator) Clear() string {
	c.apply(domain.Clear())
	return c.state.Expression
}

// Evaluate computes the current expression. On success the result becomes the
// new expression and is recorded in history; on failure the expression is kept
// and the display shows an error. Evaluating an empty expression is a no-op
// and returns nil.
func (c *Calculator) Evaluate() *domain.Outcome {
	return c.apply(domain.Evaluate())
}

// HistoryEntries returns past evaluations, newest first.
func (c *Calculator) HistoryEntries() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(c.state.History))
	copy(out, c.state.History)
	return out
}

// ClearHistory forgets every past evaluation.
func (c *Calculator) ClearHistory() {
	c.apply(domain.ClearHistory())
}

// Expression returns the text being edited.
func (c *Calculator) Expression() string { return c.state.Expression }

// Display returns what the result area shows.
func (c *Calculator) Display() domain.Display { return c.state.Display }

// State returns a snapshot of the underlying session state.
func (c *Calculator) State() *domain.State { return c.state.Snapshot() }
