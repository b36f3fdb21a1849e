package ports

import (
	"context"

	"github.com/aretw0/tally/pkg/domain"
)

// Engine is the stateless core used by adapters (HTTP, MCP, CLI) that keep
// session state externally.
type Engine interface {
	// Start returns the initial state for a session.
	Start(sessionID string) *domain.State

	// Dispatch applies a command and returns the next state. The outcome is
	// non-nil only when an evaluation ran.
	Dispatch(ctx context.Context, state *domain.State, cmd domain.Command) (*domain.State, *domain.Outcome, error)
}
