package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/internal/presentation/tui"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/runner"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultSessionID names the session of a plain `tally run`.
const DefaultSessionID = "local"

// RunOptions selects the interaction mode of a session.
type RunOptions struct {
	SessionID string
	JSON      bool
	TUI       bool
	// In and Out default to the process stdin and stdout.
	In  io.Reader
	Out io.Writer
}

// RunSession runs one interactive session until input ends or a signal
// arrives, and returns the final state.
func RunSession(ctx context.Context, svc *Services, opts RunOptions) (*domain.State, error) {
	if opts.SessionID == "" {
		opts.SessionID = DefaultSessionID
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.TUI {
		return runKeypad(ctx, svc, opts)
	}

	interactive := !opts.JSON && isTerminal(opts.In) && isTerminal(opts.Out)
	if interactive {
		tui.PrintBanner(opts.Out, tally.Version)
	}

	r := runner.NewRunner(
		runner.WithEngine(svc.Engine),
		runner.WithStore(svc.Store),
		runner.WithSessionID(opts.SessionID),
		runner.WithLogger(svc.Logger),
		runner.WithInputHandler(newHandler(opts, interactive)),
		runner.WithSignals(true),
	)
	state, err := r.Run(ctx)
	if err != nil {
		return state, err
	}
	logSessionEnd(svc, state)
	return state, nil
}

func newHandler(opts RunOptions, interactive bool) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(opts.In, opts.Out)
	}
	if !interactive {
		return runner.NewTextHandler(opts.In, opts.Out, runner.WithPrompt(""))
	}

	handlerOpts := []runner.TextHandlerOption{
		runner.WithTextHandlerStyle(tui.NewStyler(termenv.NewOutput(opts.Out).Profile)),
	}
	if render, err := tui.NewRenderer(); err == nil {
		handlerOpts = append(handlerOpts, runner.WithTextHandlerRenderer(render))
	}
	return runner.NewTextHandler(opts.In, opts.Out, handlerOpts...)
}

func runKeypad(ctx context.Context, svc *Services, opts RunOptions) (*domain.State, error) {
	state, err := svc.Manager.LoadOrStart(ctx, opts.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to init session: %w", err)
	}
	final, err := tui.RunKeypad(ctx, svc.Engine, state)
	if final != nil {
		if serr := svc.Manager.Save(ctx, opts.SessionID, final); serr != nil && err == nil {
			err = fmt.Errorf("failed to save session: %w", serr)
		}
	}
	if err == nil {
		logSessionEnd(svc, final)
	}
	return final, err
}

func logSessionEnd(svc *Services, state *domain.State) {
	if state == nil {
		return
	}
	svc.Logger.Debug("session ended",
		"session_id", state.SessionID,
		"expression", state.Expression,
		"history", len(state.History),
		"shared", svc.Shared(),
	)
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
