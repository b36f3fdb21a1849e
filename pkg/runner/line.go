package runner

import (
	"strings"
	"unicode"

	"github.com/aretw0/tally/pkg/domain"
)

// Words understood by ParseLine when they make up the whole line.
var lineWords = map[string]Request{
	"clear":         {Commands: []domain.Command{domain.Clear()}},
	"ac":            {Commands: []domain.Command{domain.Clear()}},
	"back":          {Commands: []domain.Command{domain.Backspace()}},
	"history":       {History: true},
	"clear-history": {Commands: []domain.Command{domain.ClearHistory()}},
	"exit":          {Exit: true},
	"quit":          {Exit: true},
}

// ParseLine turns a typed line into a Request.
//
// A line made of a single command word (clear, ac, back, history,
// clear-history, exit, quit) maps to that command. Otherwise every character
// is a key press; whitespace is skipped and unknown characters are collected
// in Ignored. Pressing Enter finishes the line, so a line that appended
// anything and does not already end in "=" is evaluated.
func ParseLine(line string) Request {
	line = strings.TrimSpace(line)
	if req, ok := lineWords[strings.ToLower(line)]; ok {
		return req
	}

	var req Request
	var ignored strings.Builder
	appended := false

	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		cmd, ok := domain.CommandFromKey(string(r))
		if !ok {
			ignored.WriteRune(r)
			continue
		}
		req.Commands = append(req.Commands, cmd)
		appended = appended || cmd.Kind == domain.CommandAppend
	}
	req.Ignored = ignored.String()

	if appended && !strings.HasSuffix(line, "=") {
		req.Commands = append(req.Commands, domain.Evaluate())
	}
	return req
}
