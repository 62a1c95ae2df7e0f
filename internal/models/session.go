package models

import "time"

// SessionStatus enumerates the lifecycle states of a session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCancelled SessionStatus = "cancelled"
	SessionCompleted SessionStatus = "completed"
)

// Bounds of a session length in minutes, shared by slot queries and bookings.
const (
	MinSessionMinutes = 5
	MaxSessionMinutes = 480
)

// ActiveSessionStatuses are the statuses that occupy the mentor's calendar.
var ActiveSessionStatuses = []SessionStatus{SessionPending, SessionConfirmed}

// IsActive reports whether the status blocks the mentor's calendar.
func (s SessionStatus) IsActive() bool {
	return s == SessionPending || s == SessionConfirmed
}

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCancelled || s == SessionCompleted
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

// Session is a single scheduled mentoring engagement.
type Session struct {
	ID              string        `db:"id" json:"id"`
	MentorID        string        `db:"mentor_id" json:"mentor_id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	SkillID         string        `db:"skill_id" json:"skill_id"`
	Status          SessionStatus `db:"status" json:"status"`
	ScheduledAt     time.Time     `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	EndsAt          time.Time     `db:"ends_at" json:"ends_at"`
	Location        *string       `db:"location" json:"location,omitempty"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	CancelReason    *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy     *string       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	ConfirmedAt     *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Duration returns the session length.
func (s Session) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// SessionFilter captures filtering criteria for listing sessions.
type SessionFilter struct {
	ParticipantID string
	MentorID      string
	StudentID     string
	Status        *SessionStatus
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
	SortOrder     string
}
