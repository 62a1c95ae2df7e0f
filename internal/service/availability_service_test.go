package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

type availabilityFixture struct {
	svc        *AvailabilityService
	rules      *fakeRuleRepo
	exceptions *fakeExceptionRepo
	legacy     *fakeLegacyRepo
}

func newAvailabilityFixture() availabilityFixture {
	mentors := newFakeMentors()
	mentors.add("mentor-1", "Europe/Paris", "go")
	mentors.add("mentor-2", "")
	f := availabilityFixture{rules: &fakeRuleRepo{}, exceptions: &fakeExceptionRepo{}, legacy: &fakeLegacyRepo{}}
	f.svc = NewAvailabilityService(f.rules, f.exceptions, f.legacy, mentors.directory(), "America/New_York", nil, nil)
	return f
}

var (
	mentorActor  = policy.Actor{ID: "mentor-1", Role: models.RoleMentor}
	studentActor = policy.Actor{ID: "student-1", Role: models.RoleStudent}
	adminActor   = policy.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func appErr(t *testing.T, err error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed), "expected typed error, got %v", err)
	return typed
}

func TestAvailabilityServiceCreateRuleDefaultsTimezone(t *testing.T) {
	f := newAvailabilityFixture()

	rule, err := f.svc.CreateRule(context.Background(), mentorActor, "mentor-1", dto.AvailabilityRuleRequest{
		Kind:      "weekly",
		DayOfWeek: intPtr(1),
		StartTime: strPtr("09:00"),
		EndTime:   strPtr("12:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", rule.Timezone)
	assert.True(t, rule.Active)
	assert.NotEmpty(t, rule.ID)

	rule, err = f.svc.CreateRule(context.Background(), adminActor, "mentor-2", dto.AvailabilityRuleRequest{
		Kind:      "weekly",
		DayOfWeek: intPtr(2),
		StartTime: strPtr("10:00"),
		EndTime:   strPtr("11:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", rule.Timezone)
}

func TestAvailabilityServiceCreateRuleReportsFields(t *testing.T) {
	f := newAvailabilityFixture()

	_, err := f.svc.CreateRule(context.Background(), mentorActor, "mentor-1", dto.AvailabilityRuleRequest{
		Kind:      "weekly",
		DayOfWeek: intPtr(1),
		StartTime: strPtr("12:00"),
		EndTime:   strPtr("09:00"),
		Timezone:  "Mars/Olympus",
	})
	typed := appErr(t, err)
	assert.Equal(t, http.StatusBadRequest, typed.Status)
	assert.Contains(t, typed.Fields, "end_time")
	assert.Contains(t, typed.Fields, "timezone")

	_, err = f.svc.CreateRule(context.Background(), mentorActor, "mentor-1", dto.AvailabilityRuleRequest{Kind: "monthly"})
	typed = appErr(t, err)
	assert.Equal(t, "must be one of weekly, one_shot, exclusion", typed.Fields["kind"])
	assert.Empty(t, f.rules.rules)
}

func TestAvailabilityServiceAuthorization(t *testing.T) {
	f := newAvailabilityFixture()
	req := dto.AvailabilityRuleRequest{Kind: "weekly", DayOfWeek: intPtr(1), StartTime: strPtr("09:00"), EndTime: strPtr("10:00")}

	_, err := f.svc.CreateRule(context.Background(), studentActor, "mentor-1", req)
	assert.Equal(t, http.StatusForbidden, appErr(t, err).Status)

	other := policy.Actor{ID: "mentor-2", Role: models.RoleMentor}
	_, err = f.svc.CreateRule(context.Background(), other, "mentor-1", req)
	assert.Equal(t, http.StatusForbidden, appErr(t, err).Status)

	_, err = f.svc.CreateRule(context.Background(), adminActor, "ghost", req)
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)
}

func TestAvailabilityServiceUpdateAndDeleteRule(t *testing.T) {
	f := newAvailabilityFixture()
	ctx := context.Background()
	rule, err := f.svc.CreateRule(ctx, mentorActor, "mentor-1", dto.AvailabilityRuleRequest{
		Kind: "weekly", DayOfWeek: intPtr(1), StartTime: strPtr("09:00"), EndTime: strPtr("12:00"),
	})
	require.NoError(t, err)

	inactive := false
	updated, err := f.svc.UpdateRule(ctx, mentorActor, "mentor-1", rule.ID, dto.AvailabilityRuleRequest{
		Kind: "weekly", DayOfWeek: intPtr(3), StartTime: strPtr("14:00"), EndTime: strPtr("16:00"), Timezone: "UTC", Active: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, *updated.DayOfWeek)
	assert.False(t, updated.Active)
	assert.Equal(t, "UTC", f.rules.rules[0].Timezone)

	_, err = f.svc.UpdateRule(ctx, mentorActor, "mentor-1", "missing", dto.AvailabilityRuleRequest{
		Kind: "weekly", DayOfWeek: intPtr(3), StartTime: strPtr("14:00"), EndTime: strPtr("16:00"),
	})
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)

	require.NoError(t, f.svc.DeleteRule(ctx, mentorActor, "mentor-1", rule.ID))
	err = f.svc.DeleteRule(ctx, mentorActor, "mentor-1", rule.ID)
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)
}

func TestAvailabilityServiceExceptions(t *testing.T) {
	f := newAvailabilityFixture()
	ctx := context.Background()

	exc, err := f.svc.CreateException(ctx, mentorActor, "mentor-1", dto.AvailabilityExceptionRequest{
		Date: "2024-03-11", Kind: "unavailable", Reason: strPtr("conference"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExceptionUnavailable, exc.Kind)

	_, err = f.svc.CreateException(ctx, mentorActor, "mentor-1", dto.AvailabilityExceptionRequest{
		Date: "2024-03-12", Kind: "override",
	})
	typed := appErr(t, err)
	assert.Equal(t, "is required", typed.Fields["start_time"])

	listed, err := f.svc.ListExceptions(ctx, mentorActor, "mentor-1", dto.ExceptionListQuery{From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = f.svc.ListExceptions(ctx, mentorActor, "mentor-1", dto.ExceptionListQuery{From: "March"})
	assert.Contains(t, appErr(t, err).Fields, "from")

	updated, err := f.svc.UpdateException(ctx, mentorActor, "mentor-1", exc.ID, dto.AvailabilityExceptionRequest{
		Date: "2024-03-11", Kind: "override", StartTime: strPtr("13:00"), EndTime: strPtr("15:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExceptionOverride, updated.Kind)

	require.NoError(t, f.svc.DeleteException(ctx, mentorActor, "mentor-1", exc.ID))
	assert.Empty(t, f.exceptions.exceptions)
}

func TestAvailabilityServiceLegacy(t *testing.T) {
	f := newAvailabilityFixture()
	ctx := context.Background()

	row, err := f.svc.CreateLegacy(ctx, mentorActor, "mentor-1", dto.LegacyAvailabilityRequest{DayOfWeek: 5, StartTime: "08:00", EndTime: "10:00"})
	require.NoError(t, err)

	_, err = f.svc.CreateLegacy(ctx, mentorActor, "mentor-1", dto.LegacyAvailabilityRequest{DayOfWeek: 8, StartTime: "08:00", EndTime: "10:00"})
	assert.Contains(t, appErr(t, err).Fields, "day_of_week")

	rows, err := f.svc.ListLegacy(ctx, adminActor, "mentor-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, f.svc.DeleteLegacy(ctx, mentorActor, "mentor-1", row.ID))
	err = f.svc.DeleteLegacy(ctx, mentorActor, "mentor-1", row.ID)
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)
}
