package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used when reconstructing events
// from the wire.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
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

// Event type codes published by the journaling core. Downstream analytics
// (topic/mood extraction) consume these; this service never does.
const (
	TypeSessionCompleted = "session.completed"
	TypeSessionDeleted   = "session.deleted"
	TypeTurnArchived     = "turn.archived"
)

func NewSessionCompletedEvent(sessionId, userId string, speakingTime float64) Event {
	return BaseEvent{
		Type: TypeSessionCompleted,
		Data: map[string]interface{}{
			"session_id":    sessionId,
			"user_id":       userId,
			"speaking_time": speakingTime,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionDeletedEvent(sessionId, userId string, completed bool) Event {
	return BaseEvent{
		Type: TypeSessionDeleted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"completed":  completed,
		},
		OccurredAt: time.Now(),
	}
}

func NewTurnArchivedEvent(sessionId, turnId, audioURL string) Event {
	return BaseEvent{
		Type: TypeTurnArchived,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"turn_id":    turnId,
			"audio_url":  audioURL,
		},
		OccurredAt: time.Now(),
	}
}
