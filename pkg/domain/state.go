package domain

import "time"

// DisplayKind describes what the result area of a calculator currently shows.
type DisplayKind string

const (
	DisplayPending DisplayKind = "pending" // No evaluation since the last edit
	DisplayValue   DisplayKind = "value"   // Last evaluation succeeded
	DisplayError   DisplayKind = "error"   // Last evaluation failed
)

// InitialDisplayText is shown before the first evaluation and after Clear.
const InitialDisplayText = "0"

// ErrorDisplayText is the generic indicator shown after a failed evaluation.
const ErrorDisplayText = "Error"

// Display is the value the presentation layer shows in the result area.
// Text keeps the last shown value while the display is pending.
type Display struct {
	Kind DisplayKind `json:"kind"`
	Text string      `json:"text"`
}

// InitialDisplay returns the zero value of the result area.
func InitialDisplay() Display {
	return Display{Kind: DisplayPending, Text: InitialDisplayText}
}

// HistoryEntry is an immutable record of a successful evaluation.
type HistoryEntry struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// State represents the current snapshot of a calculator session.
type State struct {
	// SessionID identifies the owner of this snapshot.
	SessionID string `json:"session_id"`

	// Expression is the text being edited.
	Expression string `json:"expression"`

	// Display is what the result area shows.
	Display Display `json:"display"`

	// History holds past successful evaluations, newest first.
	History []HistoryEntry `json:"history"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// Sealed carries the encrypted snapshot when a store encrypts at rest.
	// The other fields are empty then.
	Sealed string `json:"sealed,omitempty"`
}

// NewState creates a clean state for the given session.
func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Display:   InitialDisplay(),
		History:   []HistoryEntry{},
	}
}

// Snapshot returns a deep copy of the state, safe to mutate independently.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.History = make([]HistoryEntry, len(s.History))
	copy(cp.History, s.History)
	return &cp
}
