/*
Package tally is an interactive arithmetic calculator engine.

It accepts keystrokes one at a time, keeps the expression being edited,
evaluates it on demand and remembers the last ten successful evaluations.
The evaluator never executes code: expressions pass an allow-list, a
forbidden-sequence check and a recursive-descent parser before any
arithmetic runs.

# Concept

A calculator session is a plain value (domain.State). Every input is a
domain.Command dispatched through a single entry point that returns the next
state, so the same core serves a single in-process Calculator, the CLI REPL,
the HTTP API and the MCP server. Adapters for session stores (memory, Redis)
and front ends live under pkg/adapters.

# Usage

	calc := tally.NewCalculator()
	for _, key := range []string{"1", "2", "+", "3"} {
		calc.AppendToken(key)
	}
	out := calc.Evaluate()
	fmt.Println(out.Text)           // 15
	fmt.Println(calc.Expression())  // 15 (chained for the next edit)

For multi-session hosts, use Engine directly:

	eng := tally.New()
	state := eng.Start("session-123")
	state, outcome, err := eng.Dispatch(ctx, state, domain.Append("7"))
*/
package tally
