package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/tally/pkg/domain"
)

// JSONHandler implements the IOHandler interface for JSON Lines.
//
// Each input line is one of:
//   - a command object: {"kind":"append","token":"7"}
//   - a key object: {"key":"Enter"}
//   - an array of command or key objects
//   - a JSON string, parsed like a typed line: "12+3"
//
// Each output line is {"state":...,"outcome":...}, {"history":[...]} or {"system":"..."}.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

// jsonInput is the wire form of a single command or key.
type jsonInput struct {
	Kind  domain.CommandKind `json:"kind"`
	Token string             `json:"token,omitempty"`
	Key   string             `json:"key,omitempty"`
}

func (in jsonInput) command() (domain.Command, error) {
	if in.Key != "" {
		cmd, ok := domain.CommandFromKey(in.Key)
		if !ok {
			return domain.Command{}, fmt.Errorf("%w: unknown key %q", domain.ErrInvalidCommand, in.Key)
		}
		return cmd, nil
	}
	return domain.Command{Kind: in.Kind, Token: in.Token}, nil
}

// Input reads one JSON line. Blank lines are skipped.
func (h *JSONHandler) Input(ctx context.Context) (Request, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Request{}, err
		}
		text, err := h.Reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text == "" {
			if err != nil {
				return Request{}, err
			}
			continue
		}

		req, perr := parseJSONLine(text)
		if perr != nil {
			if werr := h.SystemOutput(ctx, perr.Error()); werr != nil {
				return Request{}, werr
			}
			if err != nil {
				return Request{}, err
			}
			continue
		}
		if req.Exit {
			return Request{}, io.EOF
		}
		return req, nil
	}
}

func parseJSONLine(text string) (Request, error) {
	clean, err := SanitizeInput(text)
	if err != nil {
		return Request{}, err
	}

	var inputs []jsonInput
	switch clean[0] {
	case '"':
		var line string
		if err := json.Unmarshal([]byte(clean), &line); err != nil {
			return Request{}, fmt.Errorf("invalid json line: %w", err)
		}
		return ParseLine(line), nil
	case '[':
		if err := json.Unmarshal([]byte(clean), &inputs); err != nil {
			return Request{}, fmt.Errorf("invalid json line: %w", err)
		}
	default:
		var in jsonInput
		if err := json.Unmarshal([]byte(clean), &in); err != nil {
			return Request{}, fmt.Errorf("invalid json line: %w", err)
		}
		inputs = []jsonInput{in}
	}

	var req Request
	for _, in := range inputs {
		cmd, err := in.command()
		if err != nil {
			return Request{}, err
		}
		req.Commands = append(req.Commands, cmd)
	}
	return req, nil
}

type jsonOutput struct {
	State   *domain.State         `json:"state,omitempty"`
	Outcome *domain.Outcome       `json:"outcome,omitempty"`
	System  string                `json:"system,omitempty"`
}

func (h *JSONHandler) Output(ctx context.Context, state *domain.State, outcome *domain.Outcome) error {
	return h.Encoder.Encode(jsonOutput{State: state, Outcome: outcome})
}

func (h *JSONHandler) History(ctx context.Context, entries []domain.HistoryEntry) error {
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return h.Encoder.Encode(map[string]any{"history": entries})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonOutput{System: msg})
}
