package runner

import (
	"context"

	"github.com/aretw0/tally/pkg/domain"
)

// Request is one unit of input: the commands typed on a line plus any
// presentation-only directives.
type Request struct {
	Commands []domain.Command
	// History asks the handler to show the history log.
	History bool
	// Exit ends the session.
	Exit bool
	// Ignored holds characters that map to no key.
	Ignored string
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next request. io.EOF ends the loop.
	Input(ctx context.Context) (Request, error)

	// Output presents the state after a request. outcome is non-nil when the
	// last command evaluated the expression.
	Output(ctx context.Context, state *domain.State, outcome *domain.Outcome) error

	// History presents the history log, newest first.
	History(ctx context.Context, entries []domain.HistoryEntry) error

	// SystemOutput presents a meta-message (rejected input, warnings).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms Markdown before it is written, e.g. to ANSI.
// This keeps terminal rendering out of the core package.
type ContentRenderer func(string) (string, error)
