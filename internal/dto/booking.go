package dto

import (
	"time"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// SlotQuery asks for bookable starts of a mentor.
type SlotQuery struct {
	From            time.Time
	To              time.Time
	DurationMinutes int
	// StepMinutes is optional; zero falls back to the configured step or the duration.
	StepMinutes int
}

// Slot is one bookable window.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotsResponse echoes the effective window alongside the slots.
type SlotsResponse struct {
	MentorID        string    `json:"mentor_id"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	DurationMinutes int       `json:"duration_minutes"`
	StepMinutes     int       `json:"step_minutes"`
	Slots           []Slot    `json:"slots"`
}

// CreateSessionRequest requests a booking. StudentID defaults to the caller.
type CreateSessionRequest struct {
	MentorID        string    `json:"mentor_id" validate:"required,max=64"`
	StudentID       *string   `json:"student_id" validate:"omitempty,max=64"`
	SkillID         string    `json:"skill_id" validate:"required,max=64"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,session_minutes"`
	Location        *string   `json:"location" validate:"omitempty,max=255"`
	Notes           *string   `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateSessionRequest edits the mutable details of a session. The party and skill fields are only accepted
// so that attempts to change them can be reported.
type UpdateSessionRequest struct {
	MentorID  *string `json:"mentor_id"`
	StudentID *string `json:"student_id"`
	SkillID   *string `json:"skill_id"`
	Location  *string `json:"location" validate:"omitempty,max=255"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

// TransitionSessionRequest carries the optional reason of a transition.
type TransitionSessionRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// SessionListQuery filters the caller's sessions.
type SessionListQuery struct {
	Status string     `form:"status"`
	From   *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page   int        `form:"page" validate:"omitempty,min=1"`
	Limit  int        `form:"limit" validate:"omitempty,min=1,max=100"`
	Sort   string     `form:"sort" validate:"omitempty,oneof=asc desc"`
}

// SessionList is a page of sessions.
type SessionList struct {
	Sessions   []models.Session
	Pagination models.Pagination
}

// AgendaExportQuery selects the sessions of a mentor agenda export.
type AgendaExportQuery struct {
	Format string
	From   time.Time
	To     time.Time
}

// AgendaExport is a rendered agenda document.
type AgendaExport struct {
	Filename    string
	ContentType string
	Content     []byte
}
