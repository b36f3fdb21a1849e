package tally

import (
	"context"
	"log/slog"

	"github.com/aretw0/tally/internal/logging"
	"github.com/aretw0/tally/internal/runtime"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/evaluator"
)

// Engine is the high-level entry point for the library.
// It wraps the internal dispatcher and is safe for concurrent use across
// sessions; serializing commands within one session is the caller's job
// (see pkg/session).
type Engine struct {
	runtime         *runtime.Engine
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	historyCapacity int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHistoryCapacity changes how many evaluations each session remembers (default 10).
func WithHistoryCapacity(n int) Option {
	return func(e *Engine) {
		e.historyCapacity = n
	}
}

// New initializes an Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	eng.runtime = runtime.NewEngine(
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithHistoryCapacity(eng.historyCapacity),
	)
	return eng
}

// Start creates the initial state for a session.
func (e *Engine) Start(sessionID string) *domain.State {
	return e.runtime.Start(sessionID)
}

// Dispatch applies a command to state and returns the next state.
// outcome is set only when an evaluation ran.
func (e *Engine) Dispatch(ctx context.Context, state *domain.State, cmd domain.Command) (next *domain.State, outcome *domain.Outcome, err error) {
	return e.runtime.Dispatch(ctx, state, cmd)
}

// Evaluate computes a standalone expression without touching any session.
func Evaluate(expression string) domain.Outcome {
	return evaluator.Evaluate(expression)
}
