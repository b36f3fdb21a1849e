// Package runtime holds the command dispatcher that drives a calculator session.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tally/internal/logging"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/editor"
	"github.com/aretw0/tally/pkg/evaluator"
	"github.com/aretw0/tally/pkg/history"
)

// ErrNilState is returned when Dispatch receives no state to work on.
var ErrNilState = errors.New("nil state")

// Engine applies commands to session state. It holds no session data itself,
// so a single Engine can serve any number of sessions.
type Engine struct {
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	historyCapacity int
	now             func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger used for debug traces.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHistoryCapacity bounds the number of history entries kept per session.
func WithHistoryCapacity(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.historyCapacity = n
		}
	}
}

// WithClock overrides the time source used for UpdatedAt and event timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a dispatcher.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:          logging.NewNop(),
		historyCapacity: history.DefaultCapacity,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start returns the initial state for a session.
func (e *Engine) Start(sessionID string) *domain.State {
	s := domain.NewState(sessionID)
	s.UpdatedAt = e.now()
	return s
}

// Dispatch applies cmd to state and returns the resulting state.
// The input state is never modified. The outcome is non-nil only when an
// evaluation actually ran; evaluating an empty expression is a no-op.
// An error is returned only for malformed commands.
func (e *Engine) Dispatch(ctx context.Context, state *domain.State, cmd domain.Command) (*domain.State, *domain.Outcome, error) {
	if state == nil {
		return nil, nil, ErrNilState
	}

	cmd.Token = editor.CanonicalToken(cmd.Token)
	if err := cmd.Validate(); err != nil {
		return nil, nil, err
	}

	next := state.Snapshot()
	var outcome *domain.Outcome

	switch cmd.Kind {
	case domain.CommandAppend:
		next.Expression = editor.Type(next.Expression, cmd.Token)
		next.Display.Kind = domain.DisplayPending
	case domain.CommandBackspace:
		next.Expression = editor.Backspace(next.Expression)
		next.Display.Kind = domain.DisplayPending
	case domain.CommandClear:
		next.Expression = editor.Clear()
		next.Display = domain.InitialDisplay()
	case domain.CommandClearHistory:
		next.History = []domain.HistoryEntry{}
	case domain.CommandEvaluate:
		if next.Expression == "" {
			break
		}
		out := e.evaluate(ctx, next)
		outcome = &out
	default:
		return nil, nil, fmt.Errorf("%w: unhandled kind %q", domain.ErrInvalidCommand, cmd.Kind)
	}

	next.UpdatedAt = e.now()
	e.emitCommand(ctx, next, cmd)
	return next, outcome, nil
}

// evaluate runs the evaluator on s.Expression and folds the outcome into s.
func (e *Engine) evaluate(ctx context.Context, s *domain.State) domain.Outcome {
	expr := s.Expression
	start := e.now()
	out := evaluator.Evaluate(expr)
	elapsed := e.now().Sub(start)

	if out.OK() {
		log := history.FromEntries(s.History, history.WithCapacity(e.historyCapacity))
		log.Record(domain.HistoryEntry{Expression: expr, Result: out.Text})
		s.History = log.Entries()
		s.Expression = editor.Chain(out.Text)
		s.Display = domain.Display{Kind: domain.DisplayValue, Text: out.Text}
		e.logger.DebugContext(ctx, "evaluated", "session", s.SessionID, "expression", expr, "result", out.Text)
	} else {
		s.Display = domain.Display{Kind: domain.DisplayError, Text: domain.ErrorDisplayText}
		e.logger.DebugContext(ctx, "evaluation failed", "session", s.SessionID, "expression", expr, "error", out.Err)
	}

	e.emitEvaluate(ctx, s.SessionID, expr, out, elapsed)
	return out
}

func (e *Engine) emitCommand(ctx context.Context, s *domain.State, cmd domain.Command) {
	if e.hooks.OnCommand == nil {
		return
	}
	e.hooks.OnCommand(ctx, &domain.CommandEvent{
		EventBase: domain.EventBase{
			Timestamp: e.now(),
			Type:      domain.EventCommand,
			SessionID: s.SessionID,
		},
		Command:    cmd,
		Expression: s.Expression,
	})
}

func (e *Engine) emitEvaluate(ctx context.Context, sessionID, expr string, out domain.Outcome, elapsed time.Duration) {
	if e.hooks.OnEvaluate == nil {
		return
	}
	e.hooks.OnEvaluate(ctx, &domain.EvaluateEvent{
		EventBase: domain.EventBase{
			Timestamp: e.now(),
			Type:      domain.EventEvaluate,
			SessionID: sessionID,
		},
		Expression: expr,
		Outcome:    out,
		Duration:   elapsed,
	})
}
