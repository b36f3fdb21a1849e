package runner

import (
	"log/slog"

	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures the StateStore for persistence.
// Sessions are ephemeral when no store is set.
func WithStore(store ports.StateStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID sets the session ID used for state and persistence.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithEngine configures the engine commands are dispatched to. Required.
func WithEngine(engine ports.Engine) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

// WithInitialState resumes from a given state instead of loading or starting one.
func WithInitialState(state *domain.State) Option {
	return func(r *Runner) {
		r.initialState = state
	}
}

// WithSignals makes Ctrl+C and SIGTERM end the loop gracefully.
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.handleSignals = enabled
	}
}
