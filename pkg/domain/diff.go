package domain

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Expression *string  `json:"expression,omitempty"`
	Display    *Display `json:"display,omitempty"`

	// History carries new entries to put in front of the client's list.
	History *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents changes to the history list.
// Clients prepend Prepended and keep the first Size entries.
// When Reset is set, Prepended holds the whole list.
type HistoryDelta struct {
	Prepended []HistoryEntry `json:"prepended"`
	Size      int            `json:"size"`
	Reset     bool           `json:"reset,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.Expression != newState.Expression {
		diff.Expression = &newState.Expression
	}
	if oldState == nil || oldState.Display != newState.Display {
		diff.Display = &newState.Display
	}
	diff.History = diffHistory(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffHistory assumes the newest-first, bounded layout of State.History.
func diffHistory(old, new *State) *HistoryDelta {
	if old == nil {
		if len(new.History) == 0 {
			return nil
		}
		return &HistoryDelta{Prepended: new.History, Size: len(new.History)}
	}

	if entriesEqual(old.History, new.History) {
		return nil
	}

	// Find the smallest k such that new[k:] is what survived of old.
	for k := 1; k <= len(new.History); k++ {
		rest := new.History[k:]
		if len(rest) > len(old.History) {
			continue
		}
		if entriesEqual(rest, old.History[:len(rest)]) {
			return &HistoryDelta{Prepended: new.History[:k], Size: len(new.History)}
		}
	}

	return &HistoryDelta{Prepended: new.History, Size: len(new.History), Reset: true}
}

func entriesEqual(a, b []HistoryEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Expression == nil &&
		d.Display == nil &&
		d.History == nil
}
