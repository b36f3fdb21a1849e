package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/runner"
)

// ErrEvaluation signals that at least one expression did not evaluate.
var ErrEvaluation = errors.New("evaluation failed")

type evalResult struct {
	Expression string         `json:"expression"`
	Outcome    domain.Outcome `json:"outcome"`
}

// Eval evaluates each expression on its own and writes one line per result:
// the canonical value, or "Error (kind)". Failures are reported through ErrEvaluation
// after every expression has been written.
func Eval(w io.Writer, exprs []string, jsonOut bool) error {
	enc := json.NewEncoder(w)
	failed := 0
	for _, expr := range exprs {
		clean, err := runner.SanitizeInput(strings.TrimSpace(expr))
		if err != nil {
			return err
		}
		out := tally.Evaluate(clean)
		if !out.OK() {
			failed++
		}

		if jsonOut {
			if err := enc.Encode(evalResult{Expression: clean, Outcome: out}); err != nil {
				return err
			}
			continue
		}
		if out.OK() {
			fmt.Fprintln(w, out.Text)
		} else {
			fmt.Fprintf(w, "Error (%s)\n", out.Err.Kind)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrEvaluation, failed, len(exprs))
	}
	return nil
}
