package dto

import "time"

// AvailabilityRuleRequest creates or replaces an availability rule. Weekly-shaped rules carry
// day_of_week/start_time/end_time; one-shot rules carry starts_at/ends_at.
type AvailabilityRuleRequest struct {
	Kind      string     `json:"kind" validate:"required,oneof=weekly one_shot exclusion"`
	DayOfWeek *int       `json:"day_of_week" validate:"omitempty,min=1,max=7"`
	StartTime *string    `json:"start_time" validate:"omitempty,max=8"`
	EndTime   *string    `json:"end_time" validate:"omitempty,max=8"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	Timezone  string     `json:"timezone" validate:"omitempty,max=64"`
	Active    *bool      `json:"active"`
}

// AvailabilityExceptionRequest creates or replaces a dated exception.
type AvailabilityExceptionRequest struct {
	Date      string  `json:"date" validate:"required,max=10"`
	Kind      string  `json:"kind" validate:"required,oneof=unavailable override"`
	StartTime *string `json:"start_time" validate:"omitempty,max=8"`
	EndTime   *string `json:"end_time" validate:"omitempty,max=8"`
	Timezone  *string `json:"timezone" validate:"omitempty,max=64"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
}

// LegacyAvailabilityRequest creates a legacy weekly availability row.
type LegacyAvailabilityRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime string `json:"start_time" validate:"required,max=8"`
	EndTime   string `json:"end_time" validate:"required,max=8"`
}

// ExceptionListQuery narrows exceptions to a date range (inclusive, YYYY-MM-DD).
type ExceptionListQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}
