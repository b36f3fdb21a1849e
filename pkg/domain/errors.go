package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidCommand is returned when a command kind is unknown or its token is malformed.
var ErrInvalidCommand = errors.New("invalid command")

// ErrEmptyToken is returned when an append command carries no token.
var ErrEmptyToken = errors.New("empty token")

// Evaluation failures. EvalError unwraps to one of these so callers can use errors.Is.
var (
	ErrInvalidCharacter  = errors.New("invalid character")
	ErrForbiddenSequence = errors.New("forbidden sequence")
	ErrNonFiniteResult   = errors.New("non-finite result")
)
