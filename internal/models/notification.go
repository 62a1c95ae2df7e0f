package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Session event types handed to the notification collaborator.
const (
	EventSessionRequested = "session.requested"
	EventSessionConfirmed = "session.confirmed"
	EventSessionCompleted = "session.completed"
	EventSessionCancelled = "session.cancelled"
)

// SessionEvent describes a session transition and who must hear about it.
type SessionEvent struct {
	Type       string        `json:"type"`
	SessionID  string        `json:"session_id"`
	MentorID   string        `json:"mentor_id"`
	StudentID  string        `json:"student_id"`
	ActorID    string        `json:"actor_id"`
	Status     SessionStatus `json:"status"`
	Recipients []string      `json:"recipients"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Notification is one outbox row consumed by the external notification fan-out.
type Notification struct {
	ID          string         `db:"id" json:"id"`
	RecipientID string         `db:"recipient_id" json:"recipient_id"`
	EventType   string         `db:"event_type" json:"event_type"`
	SessionID   string         `db:"session_id" json:"session_id"`
	Payload     types.JSONText `db:"payload" json:"payload"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
