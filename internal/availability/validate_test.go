package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func weekly(day int, start, end string) models.AvailabilityRule {
	return models.AvailabilityRule{
		MentorID:  "mentor-1",
		Kind:      models.RuleKindWeekly,
		DayOfWeek: intPtr(day),
		StartTime: strPtr(start),
		EndTime:   strPtr(end),
		Timezone:  "Europe/Paris",
		Active:    true,
	}
}

func TestValidateRuleAcceptsWeekly(t *testing.T) {
	assert.Empty(t, ValidateRule(weekly(1, "09:00", "12:00")))
	assert.Empty(t, ValidateRule(weekly(7, "18:00", "24:00")))
}

func TestValidateRuleReportsEveryField(t *testing.T) {
	rule := weekly(8, "12:00", "09:00")
	rule.Timezone = "Mars/Olympus"
	rule.MentorID = ""

	errs := ValidateRule(rule)
	assert.Contains(t, errs, "day_of_week")
	assert.Contains(t, errs, "end_time")
	assert.Contains(t, errs, "timezone")
	assert.Contains(t, errs, "mentor_id")
}

func TestValidateRuleRejectsOvernightWrap(t *testing.T) {
	errs := ValidateRule(weekly(5, "22:00", "02:00"))
	assert.Equal(t, "must be after start_time on the same day", errs["end_time"])
}

func TestValidateRuleOneShot(t *testing.T) {
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	rule := models.AvailabilityRule{MentorID: "m", Kind: models.RuleKindOneShot, StartsAt: &start, EndsAt: &end, Timezone: "UTC"}
	assert.Empty(t, ValidateRule(rule))

	rule.EndsAt = &start
	assert.Contains(t, ValidateRule(rule), "ends_at")

	rule.EndsAt = &end
	rule.DayOfWeek = intPtr(1)
	assert.Contains(t, ValidateRule(rule), "day_of_week")
}

func TestValidateRuleExclusionShapes(t *testing.T) {
	recurring := weekly(3, "12:00", "13:00")
	recurring.Kind = models.RuleKindExclusion
	assert.Empty(t, ValidateRule(recurring))

	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	oneShot := models.AvailabilityRule{MentorID: "m", Kind: models.RuleKindExclusion, StartsAt: &start, EndsAt: &end, Timezone: "UTC"}
	assert.Empty(t, ValidateRule(oneShot))

	both := recurring
	both.StartsAt, both.EndsAt = &start, &end
	assert.Contains(t, ValidateRule(both), "kind")

	neither := models.AvailabilityRule{MentorID: "m", Kind: models.RuleKindExclusion, Timezone: "UTC"}
	assert.Contains(t, ValidateRule(neither), "kind")
}

func TestValidateRuleUnknownKind(t *testing.T) {
	rule := weekly(1, "09:00", "10:00")
	rule.Kind = "monthly"
	assert.Contains(t, ValidateRule(rule), "kind")
}

func TestValidateException(t *testing.T) {
	valid := models.AvailabilityException{MentorID: "m", Date: "2024-01-15", Kind: models.ExceptionUnavailable}
	assert.Empty(t, ValidateException(valid))

	override := models.AvailabilityException{MentorID: "m", Date: "2024-01-15", Kind: models.ExceptionOverride}
	errs := ValidateException(override)
	assert.Contains(t, errs, "start_time")
	assert.Contains(t, errs, "end_time")

	override.StartTime, override.EndTime = strPtr("14:00"), strPtr("16:00")
	assert.Empty(t, ValidateException(override))

	bad := models.AvailabilityException{MentorID: "m", Date: "15/01/2024", Kind: "closed", Timezone: strPtr("Nowhere/City"), StartTime: strPtr("10:00")}
	errs = ValidateException(bad)
	assert.Contains(t, errs, "date")
	assert.Contains(t, errs, "kind")
	assert.Contains(t, errs, "timezone")
}

func TestValidateLegacy(t *testing.T) {
	assert.Empty(t, ValidateLegacy(models.LegacyAvailability{MentorID: "m", DayOfWeek: 2, StartTime: "08:00", EndTime: "10:00"}))

	errs := ValidateLegacy(models.LegacyAvailability{MentorID: "m", DayOfWeek: 0, StartTime: "10:00", EndTime: "10:00"})
	assert.Contains(t, errs, "day_of_week")
	assert.Contains(t, errs, "end_time")
}

func TestFieldErrorsErr(t *testing.T) {
	assert.NoError(t, FieldErrors{}.Err("invalid"))

	err := FieldErrors{"date": "bad"}.Err("invalid exception")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "bad", appErr.Fields["date"])
}
