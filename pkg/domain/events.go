package domain

import (
	"context"
	"time"
)

// EventType defines the category of a session event.
type EventType string

const (
	EventSessionStart     EventType = "session_start"
	EventDecision         EventType = "decision"
	EventAdvance          EventType = "advance"
	EventExternalEffects  EventType = "external_effects"
	EventSessionReset     EventType = "session_reset"
	EventPersistenceError EventType = "persistence_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         EventType `json:"type"`
	SimulationID string    `json:"simulation_id"`
}

// SessionEvent describes a change to a session.
type SessionEvent struct {
	EventBase
	Step       int    `json:"step"`
	StepID     string `json:"step_id,omitempty"`
	DecisionID string `json:"decision_id,omitempty"`
	Resumed    bool   `json:"resumed,omitempty"`
}

// PersistenceEvent describes a storage failure that was absorbed.
type PersistenceEvent struct {
	EventBase
	Operation string `json:"operation"`
	Err       error  `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
type LifecycleHooks struct {
	OnSessionStart     func(context.Context, *SessionEvent)
	OnDecision         func(context.Context, *SessionEvent)
	OnAdvance          func(context.Context, *SessionEvent)
	OnExternalEffects  func(context.Context, *SessionEvent)
	OnSessionReset     func(context.Context, *SessionEvent)
	OnPersistenceError func(context.Context, *PersistenceEvent)
}

// NewSessionEvent stamps a session event.
func NewSessionEvent(t EventType, simulationID string) *SessionEvent {
	return &SessionEvent{EventBase: EventBase{Timestamp: Now(), Type: t, SimulationID: simulationID}}
}
