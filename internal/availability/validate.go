// Package availability validates the mentor availability model and adapts its representations into
// interval sources the slot resolver consumes.
package availability

import (
	"time"

	"github.com/noah-isme/mentor-booking-api/internal/interval"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

// DateLayout is the calendar date format used by exceptions.
const DateLayout = "2006-01-02"

// FieldErrors maps a payload field to the reason it was rejected.
type FieldErrors map[string]string

// Add records the first message for field.
func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

// Err converts the collected messages into a validation error, nil when there are none.
func (f FieldErrors) Err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return appErrors.Validation(message, f)
}

// ValidateRule checks an availability rule before it is stored.
func ValidateRule(rule models.AvailabilityRule) FieldErrors {
	errs := FieldErrors{}
	if rule.MentorID == "" {
		errs.Add("mentor_id", "is required")
	}
	validateTimezone(errs, "timezone", rule.Timezone)

	switch rule.Kind {
	case models.RuleKindWeekly:
		validateWeeklyShape(errs, rule)
	case models.RuleKindOneShot:
		validateOneShotShape(errs, rule)
	case models.RuleKindExclusion:
		hasWeekly := rule.IsWeeklyShape()
		hasOneShot := rule.StartsAt != nil || rule.EndsAt != nil
		switch {
		case hasWeekly && hasOneShot:
			errs.Add("kind", "exclusion must be either weekly or one-shot shaped, not both")
		case hasWeekly:
			validateWeeklyShape(errs, rule)
		case hasOneShot:
			validateOneShotShape(errs, rule)
		default:
			errs.Add("kind", "exclusion requires a weekly or one-shot window")
		}
	default:
		errs.Add("kind", "must be one of weekly, one_shot, exclusion")
	}
	return errs
}

func validateWeeklyShape(errs FieldErrors, rule models.AvailabilityRule) {
	if rule.DayOfWeek == nil {
		errs.Add("day_of_week", "is required")
	} else if _, ok := interval.ISOWeekday(*rule.DayOfWeek); !ok {
		errs.Add("day_of_week", "must be between 1 (Monday) and 7 (Sunday)")
	}
	if rule.StartsAt != nil || rule.EndsAt != nil {
		errs.Add("starts_at", "must be empty for weekly windows")
	}
	validateTimeWindow(errs, rule.StartTime, rule.EndTime, true)
}

func validateOneShotShape(errs FieldErrors, rule models.AvailabilityRule) {
	if rule.IsWeeklyShape() {
		errs.Add("day_of_week", "must be empty for one-shot windows")
	}
	if rule.StartsAt == nil {
		errs.Add("starts_at", "is required")
	}
	if rule.EndsAt == nil {
		errs.Add("ends_at", "is required")
	}
	if rule.StartsAt != nil && rule.EndsAt != nil && !rule.EndsAt.After(*rule.StartsAt) {
		errs.Add("ends_at", "must be after starts_at")
	}
}

// validateTimeWindow checks a same-day time-of-day window. When required is false both ends may be absent.
func validateTimeWindow(errs FieldErrors, start, end *string, required bool) {
	if start == nil && end == nil {
		if required {
			errs.Add("start_time", "is required")
			errs.Add("end_time", "is required")
		}
		return
	}
	if start == nil {
		errs.Add("start_time", "is required when end_time is set")
		return
	}
	if end == nil {
		errs.Add("end_time", "is required when start_time is set")
		return
	}
	from, err := interval.ParseTimeOfDay(*start)
	if err != nil || from == interval.EndOfDay {
		errs.Add("start_time", "must be a time of day between 00:00 and 23:59")
	}
	to, errEnd := interval.ParseTimeOfDay(*end)
	if errEnd != nil {
		errs.Add("end_time", "must be a time of day between 00:00 and 24:00")
	}
	if err == nil && errEnd == nil && to <= from {
		errs.Add("end_time", "must be after start_time on the same day")
	}
}

func validateTimezone(errs FieldErrors, field, name string) {
	if name == "" {
		errs.Add(field, "is required")
		return
	}
	if _, err := time.LoadLocation(name); err != nil {
		errs.Add(field, "must be a valid IANA timezone")
	}
}

// ValidateException checks a dated exception before it is stored.
func ValidateException(exc models.AvailabilityException) FieldErrors {
	errs := FieldErrors{}
	if exc.MentorID == "" {
		errs.Add("mentor_id", "is required")
	}
	if _, err := time.Parse(DateLayout, exc.Date); err != nil {
		errs.Add("date", "must be a date formatted YYYY-MM-DD")
	}
	switch exc.Kind {
	case models.ExceptionUnavailable:
		validateTimeWindow(errs, exc.StartTime, exc.EndTime, false)
	case models.ExceptionOverride:
		validateTimeWindow(errs, exc.StartTime, exc.EndTime, true)
	default:
		errs.Add("kind", "must be one of unavailable, override")
	}
	if exc.Timezone != nil {
		validateTimezone(errs, "timezone", *exc.Timezone)
	}
	return errs
}

// ValidateLegacy checks a legacy weekly availability row.
func ValidateLegacy(row models.LegacyAvailability) FieldErrors {
	errs := FieldErrors{}
	if row.MentorID == "" {
		errs.Add("mentor_id", "is required")
	}
	if _, ok := interval.ISOWeekday(row.DayOfWeek); !ok {
		errs.Add("day_of_week", "must be between 1 (Monday) and 7 (Sunday)")
	}
	start, end := row.StartTime, row.EndTime
	validateTimeWindow(errs, &start, &end, true)
	return errs
}
