package events

import "time"

const (
	// ExplorationStateChanged fires on every persisted session transition.
	ExplorationStateChanged = "EXPLORATION_STATE_CHANGED"
	// ExplorationMemoryWritten fires when a memory note is stored.
	ExplorationMemoryWritten = "EXPLORATION_MEMORY_WRITTEN"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "EXPLORATION_STATE_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete event carried on both buses.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func NewStateChanged(projectID string, sessionID uint, from, to string) BaseEvent {
	return BaseEvent{
		Type: ExplorationStateChanged,
		Data: map[string]interface{}{
			"project_id": projectID,
			"session_id": sessionID,
			"from":       from,
			"state":      to,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func NewMemoryWritten(projectID string, sessionID uint, noteID uint, kind string, confidence float64) BaseEvent {
	return BaseEvent{
		Type: ExplorationMemoryWritten,
		Data: map[string]interface{}{
			"project_id": projectID,
			"session_id": sessionID,
			"note_id":    noteID,
			"kind":       kind,
			"confidence": confidence,
		},
		OccurredAt: time.Now().UTC(),
	}
}
