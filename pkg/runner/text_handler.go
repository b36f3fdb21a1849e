package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/tally/pkg/domain"
)

// Styler decorates the result line, e.g. with terminal colors.
type Styler func(kind domain.DisplayKind, text string) string

// TextHandler implements the line-oriented REPL interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Style    Styler
	Prompt   string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the Markdown renderer used for history.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerStyle configures how result lines are decorated.
func WithTextHandlerStyle(style Styler) TextHandlerOption {
	return func(h *TextHandler) {
		h.Style = style
	}
}

// WithPrompt replaces the default "> " prompt. An empty prompt disables it.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honor context cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Input reads and parses one line.
func (h *TextHandler) Input(ctx context.Context) (Request, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return Request{}, ctx.Err()
		default:
			fmt.Fprint(h.Writer, h.Prompt)
		}

		select {
		case <-ctx.Done():
			return Request{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Request{}, io.EOF
			}
			if res.err != nil {
				return Request{}, res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			req := ParseLine(clean)
			if req.Exit {
				return Request{}, io.EOF
			}
			return req, nil
		}
	}
}

// Output prints the result of an evaluation, or the expression being edited.
func (h *TextHandler) Output(ctx context.Context, state *domain.State, outcome *domain.Outcome) error {
	var line string
	switch {
	case outcome == nil:
		line = state.Expression
		if line == "" {
			line = state.Display.Text
		}
	case outcome.OK():
		line = "= " + outcome.Text
	default:
		line = fmt.Sprintf("%s (%s)", domain.ErrorDisplayText, outcome.Err.Kind)
	}

	if h.Style != nil {
		kind := domain.DisplayPending
		if outcome != nil {
			kind = state.Display.Kind
		}
		line = h.Style(kind, line)
	}
	_, err := fmt.Fprintln(h.Writer, line)
	return err
}

// History prints the log as a Markdown table, rendered if a renderer is set.
func (h *TextHandler) History(ctx context.Context, entries []domain.HistoryEntry) error {
	out := HistoryMarkdown(entries)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(out); err == nil {
			out = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(out, "\n"))
	return err
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}

// HistoryMarkdown formats entries as a Markdown table, newest first.
func HistoryMarkdown(entries []domain.HistoryEntry) string {
	if len(entries) == 0 {
		return "_No calculations yet._\n"
	}
	var b strings.Builder
	b.WriteString("| # | Expression | Result |\n|---|---|---|\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "| %d | `%s` | **%s** |\n", i+1, e.Expression, e.Result)
	}
	return b.String()
}
