package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

var (
	mentor   = Actor{ID: "mentor-1", Role: models.RoleMentor}
	student  = Actor{ID: "student-1", Role: models.RoleStudent}
	admin    = Actor{ID: "admin-1", Role: models.RoleAdmin}
	outsider = Actor{ID: "mentor-2", Role: models.RoleMentor}
	session  = Resource{MentorID: "mentor-1", StudentID: "student-1"}
)

func TestAuthorizeAvailability(t *testing.T) {
	res := MentorResource("mentor-1")
	assert.NoError(t, Authorize(mentor, res, ActionManageAvailability))
	assert.NoError(t, Authorize(admin, res, ActionManageAvailability))
	assert.NoError(t, Authorize(Actor{ID: "root", Role: models.RoleSuperAdmin}, res, ActionExportAgenda))
	assert.ErrorIs(t, Authorize(outsider, res, ActionManageAvailability), appErrors.ErrForbidden)
	assert.ErrorIs(t, Authorize(Actor{ID: "mentor-1", Role: models.RoleStudent}, res, ActionManageAvailability), appErrors.ErrForbidden)
	assert.NoError(t, Authorize(student, res, ActionViewSlots))
}

func TestAuthorizeRequiresAuthenticatedActor(t *testing.T) {
	assert.ErrorIs(t, Authorize(Actor{}, session, ActionViewSlots), appErrors.ErrUnauthorized)
}

func TestAuthorizeCreateSession(t *testing.T) {
	assert.NoError(t, Authorize(student, session, ActionCreateSession))
	assert.NoError(t, Authorize(admin, session, ActionCreateSession))
	assert.ErrorIs(t, Authorize(outsider, session, ActionCreateSession), appErrors.ErrForbidden)
}

func TestAuthorizeSessionTransitions(t *testing.T) {
	cases := []struct {
		actor  Actor
		action Action
		want   *appErrors.Error
	}{
		{mentor, ActionConfirmSession, nil},
		{mentor, ActionCompleteSession, nil},
		{mentor, ActionCancelSession, nil},
		{student, ActionConfirmSession, appErrors.ErrForbidden},
		{student, ActionCompleteSession, appErrors.ErrForbidden},
		{student, ActionCancelSession, nil},
		{student, ActionViewSession, nil},
		{admin, ActionConfirmSession, nil},
		{admin, ActionCancelSession, nil},
		{outsider, ActionViewSession, appErrors.ErrNotFound},
		{outsider, ActionCancelSession, appErrors.ErrNotFound},
		{outsider, ActionConfirmSession, appErrors.ErrNotFound},
	}
	for _, tc := range cases {
		err := Authorize(tc.actor, session, tc.action)
		if tc.want == nil {
			assert.NoError(t, err, "%s %s", tc.actor.ID, tc.action)
			continue
		}
		assert.ErrorIs(t, err, tc.want, "%s %s", tc.actor.ID, tc.action)
	}
}
