package domain

import (
	"fmt"
	"strings"
)

// CommandKind enumerates the input events the engine accepts.
type CommandKind string

const (
	CommandAppend       CommandKind = "append"
	CommandBackspace    CommandKind = "backspace"
	CommandClear        CommandKind = "clear"
	CommandEvaluate     CommandKind = "evaluate"
	CommandClearHistory CommandKind = "clear_history"
)

// Command is a single input event dispatched into the engine.
// Token is only meaningful for CommandAppend. A multi-character token is
// typed key by key, each key going through the edit rules, so Append("3++4")
// leaves "3+4" rather than the literal text.
type Command struct {
	Kind  CommandKind `json:"kind" mapstructure:"kind"`
	Token string      `json:"token,omitempty" mapstructure:"token"`
}

// Append builds an append command for token. See Command for how tokens
// longer than one key are applied.
func Append(token string) Command { return Command{Kind: CommandAppend, Token: token} }

// Backspace builds a backspace command.
func Backspace() Command { return Command{Kind: CommandBackspace} }

// Clear builds a clear command.
func Clear() Command { return Command{Kind: CommandClear} }

// Evaluate builds an evaluate command.
func Evaluate() Command { return Command{Kind: CommandEvaluate} }

// ClearHistory builds a history reset command.
func ClearHistory() Command { return Command{Kind: CommandClearHistory} }

// TokenAlphabet lists every character an expression may contain.
const TokenAlphabet = "0123456789.+-*/()"

// Validate checks that the command is well-formed.
// Append tokens must be non-empty and drawn from TokenAlphabet.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandAppend:
		if c.Token == "" {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, ErrEmptyToken)
		}
		for _, r := range c.Token {
			if !strings.ContainsRune(TokenAlphabet, r) {
				return fmt.Errorf("%w: token %q contains %q", ErrInvalidCommand, c.Token, r)
			}
		}
		return nil
	case CommandBackspace, CommandClear, CommandEvaluate, CommandClearHistory:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, c.Kind)
	}
}

// Key names understood by CommandFromKey besides single characters.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
)

// CommandFromKey maps a keyboard key to a command.
// Enter and "=" evaluate, Backspace deletes, Escape clears, and characters from
// TokenAlphabet (including the display glyphs × ÷ −) append. Other keys are ignored.
func CommandFromKey(key string) (Command, bool) {
	switch key {
	case KeyEnter, "=":
		return Evaluate(), true
	case KeyBackspace:
		return Backspace(), true
	case KeyEscape:
		return Clear(), true
	}
	switch key {
	case "×":
		key = "*"
	case "÷":
		key = "/"
	case "−":
		key = "-"
	}
	if len(key) == 1 && strings.Contains(TokenAlphabet, key) {
		return Append(key), true
	}
	return Command{}, false
}
