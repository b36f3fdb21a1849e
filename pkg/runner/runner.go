package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/tally/internal/logging"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/editor"
	"github.com/aretw0/tally/pkg/ports"
)

// ErrNoEngine is returned by Run when no engine was configured.
var ErrNoEngine = errors.New("runner: engine is required")

// Runner handles the read-dispatch-print loop of a calculator session.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Store persists the session after every request. Optional.
	Store ports.StateStore

	// SessionID identifies the session in the store.
	SessionID string

	engine        ports.Engine
	initialState  *domain.State
	handleSignals bool
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:    logging.NewNop(),
		SessionID: "local",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the loop until input ends or ctx is cancelled, and returns the final state.
func (r *Runner) Run(ctx context.Context) (*domain.State, error) {
	if r.engine == nil {
		return nil, ErrNoEngine
	}
	handler := r.resolveHandler()

	if r.handleSignals {
		signals := NewSignalManager(ctx)
		defer signals.Stop()
		ctx = signals.Context()
	}

	state, err := r.resolveInitialState(ctx)
	if err != nil {
		return nil, err
	}

	for {
		req, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return state, nil
			}
			return state, fmt.Errorf("input error: %w", err)
		}

		if req.Ignored != "" {
			if err := handler.SystemOutput(ctx, fmt.Sprintf("ignored %q", req.Ignored)); err != nil {
				return state, fmt.Errorf("output error: %w", err)
			}
		}

		if len(req.Commands) > 0 {
			next, outcome, err := Apply(ctx, r.engine, state, req.Commands)
			if err != nil {
				if werr := handler.SystemOutput(ctx, err.Error()); werr != nil {
					return state, fmt.Errorf("output error: %w", werr)
				}
				continue
			}
			state = next

			if err := r.saveState(ctx, state); err != nil {
				return state, fmt.Errorf("critical persistence error: %w", err)
			}
			if err := handler.Output(ctx, state, outcome); err != nil {
				return state, fmt.Errorf("output error: %w", err)
			}
		}

		if req.History {
			if err := handler.History(ctx, state.History); err != nil {
				return state, fmt.Errorf("output error: %w", err)
			}
		}
	}
}

// Apply dispatches cmds in order and returns the final state and the outcome
// of the last command if it evaluated. The whole batch is rejected if any
// command is malformed, leaving state untouched.
func Apply(ctx context.Context, engine ports.Engine, state *domain.State, cmds []domain.Command) (*domain.State, *domain.Outcome, error) {
	for _, cmd := range cmds {
		cmd.Token = editor.CanonicalToken(cmd.Token)
		if err := cmd.Validate(); err != nil {
			return nil, nil, err
		}
	}

	var outcome *domain.Outcome
	for _, cmd := range cmds {
		next, out, err := engine.Dispatch(ctx, state, cmd)
		if err != nil {
			return nil, nil, err
		}
		state, outcome = next, out
	}
	return state, outcome, nil
}

func (r *Runner) saveState(ctx context.Context, state *domain.State) error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.Save(ctx, r.SessionID, state); err != nil {
		return err
	}
	r.Logger.Debug("state saved", "session_id", r.SessionID, "expression", state.Expression)
	return nil
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r.Handler
}

func (r *Runner) resolveInitialState(ctx context.Context) (*domain.State, error) {
	if r.initialState != nil {
		return r.initialState, nil
	}
	if r.Store != nil {
		state, err := r.Store.Load(ctx, r.SessionID)
		if err == nil {
			r.Logger.Debug("session resumed", "session_id", r.SessionID)
			return state, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to load session %s: %w", r.SessionID, err)
		}
	}
	return r.engine.Start(r.SessionID), nil
}
