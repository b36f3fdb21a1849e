package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCommand  EventType = "command"
	EventEvaluate EventType = "evaluate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// CommandEvent is emitted after every dispatched command.
type CommandEvent struct {
	EventBase
	Command    Command `json:"command"`
	Expression string  `json:"expression"`
}

// EvaluateEvent is emitted after every evaluation attempt.
type EvaluateEvent struct {
	EventBase
	Expression string        `json:"expression"`
	Outcome    Outcome       `json:"outcome"`
	Duration   time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnCommand  func(context.Context, *CommandEvent)
	OnEvaluate func(context.Context, *EvaluateEvent)
}
