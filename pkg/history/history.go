// Package history keeps a bounded, newest-first log of successful evaluations.
package history

import (
	"slices"

	"github.com/aretw0/tally/pkg/domain"
)

// DefaultCapacity is the number of entries kept when no capacity is configured.
const DefaultCapacity = 10

// Log is a bounded list of history entries, newest first.
// The zero value is not usable; create one with New or FromEntries.
type Log struct {
	entries  []domain.HistoryEntry
	capacity int
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity sets the maximum number of entries. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(l)
	}
	l.entries = make([]domain.HistoryEntry, 0, l.capacity)
	return l
}

// FromEntries rebuilds a log from a stored slice, newest first.
// Entries beyond the capacity are dropped.
func FromEntries(entries []domain.HistoryEntry, opts ...Option) *Log {
	l := New(opts...)
	l.entries = append(l.entries, entries[:min(len(entries), l.capacity)]...)
	return l
}

// Record prepends an entry and evicts the oldest one once capacity is exceeded.
func (l *Log) Record(e domain.HistoryEntry) {
	l.entries = slices.Insert(l.entries, 0, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.entries = l.entries[:0]
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
