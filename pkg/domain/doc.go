/*
Package domain contains the core domain models of the Tally calculator engine.

It defines the session snapshot, the command vocabulary accepted by the engine,
and the tagged outcome produced by the evaluator. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - State: Captures the runtime snapshot of a session (Expression, Display, History).
  - Command: A single input event (append a token, backspace, clear, evaluate).
  - Outcome: The result of an evaluation, either a finite value or an EvalError.
  - HistoryEntry: An immutable (expression, result) pair recorded on success.
*/
package domain
