package models

import "time"

// RuleKind enumerates the shapes of an availability rule.
type RuleKind string

const (
	RuleKindWeekly    RuleKind = "weekly"
	RuleKindOneShot   RuleKind = "one_shot"
	RuleKindExclusion RuleKind = "exclusion"
)

// AvailabilityRule declares when a mentor is (or, for exclusions, is not) bookable. Weekly-shaped rules use
// DayOfWeek/StartTime/EndTime interpreted in Timezone; one-shot-shaped rules use StartsAt/EndsAt in UTC.
type AvailabilityRule struct {
	ID        string     `db:"id" json:"id"`
	MentorID  string     `db:"mentor_id" json:"mentor_id"`
	Kind      RuleKind   `db:"kind" json:"kind"`
	DayOfWeek *int       `db:"day_of_week" json:"day_of_week,omitempty"`
	StartTime *string    `db:"start_time" json:"start_time,omitempty"`
	EndTime   *string    `db:"end_time" json:"end_time,omitempty"`
	StartsAt  *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt    *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	Timezone  string     `db:"timezone" json:"timezone"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// IsWeeklyShape reports whether the rule is expressed as a day-of-week window.
func (r AvailabilityRule) IsWeeklyShape() bool {
	return r.DayOfWeek != nil || r.StartTime != nil || r.EndTime != nil
}

// ExceptionKind enumerates dated exception kinds.
type ExceptionKind string

const (
	ExceptionUnavailable ExceptionKind = "unavailable"
	ExceptionOverride    ExceptionKind = "override"
)

// AvailabilityException pins an unavailable or override window to one local calendar date.
type AvailabilityException struct {
	ID        string        `db:"id" json:"id"`
	MentorID  string        `db:"mentor_id" json:"mentor_id"`
	Date      string        `db:"exception_date" json:"date"`
	StartTime *string       `db:"start_time" json:"start_time,omitempty"`
	EndTime   *string       `db:"end_time" json:"end_time,omitempty"`
	Kind      ExceptionKind `db:"kind" json:"kind"`
	Timezone  *string       `db:"timezone" json:"timezone,omitempty"`
	Reason    *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// LegacyAvailability is the older weekly-only availability record, implicitly in the mentor's timezone.
type LegacyAvailability struct {
	ID        string    `db:"id" json:"id"`
	MentorID  string    `db:"mentor_id" json:"mentor_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MentorProfile is the slice of the mentor profile this service reads.
type MentorProfile struct {
	UserID   string  `db:"user_id" json:"user_id"`
	Timezone *string `db:"timezone" json:"timezone,omitempty"`
}
