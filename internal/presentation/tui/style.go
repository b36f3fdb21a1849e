package tui

import (
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/runner"
	"github.com/muesli/termenv"
)

// NewStyler colors result lines by display kind for the given profile.
// termenv.Ascii leaves text untouched.
func NewStyler(profile termenv.Profile) runner.Styler {
	return func(kind domain.DisplayKind, text string) string {
		s := profile.String(text)
		switch kind {
		case domain.DisplayValue:
			s = s.Foreground(profile.Color("#34d399")).Bold()
		case domain.DisplayError:
			s = s.Foreground(profile.Color("#f87171")).Bold()
		default:
			s = s.Faint()
		}
		return s.String()
	}
}
