package tui

import (
	"github.com/aretw0/tally/pkg/runner"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a ContentRenderer that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() (runner.ContentRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}
