// Package policy holds every role and ownership rule of the booking engine behind one capability check.
package policy

import (
	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role models.UserRole
}

// IsAdministrator reports whether the actor may act on any mentor.
func (a Actor) IsAdministrator() bool {
	return a.Role.IsAdministrator()
}

// Action names a capability.
type Action string

const (
	ActionViewSlots          Action = "slots.view"
	ActionViewAvailability   Action = "availability.view"
	ActionManageAvailability Action = "availability.manage"
	ActionExportAgenda       Action = "agenda.export"
	ActionCreateSession      Action = "session.create"
	ActionViewSession        Action = "session.view"
	ActionUpdateSession      Action = "session.update"
	ActionConfirmSession     Action = "session.confirm"
	ActionCompleteSession    Action = "session.complete"
	ActionCancelSession      Action = "session.cancel"
)

// Resource identifies what an action targets. Availability and agenda actions only set MentorID.
type Resource struct {
	MentorID  string
	StudentID string
}

// SessionResource describes a session for authorization.
func SessionResource(s models.Session) Resource {
	return Resource{MentorID: s.MentorID, StudentID: s.StudentID}
}

// MentorResource describes resources owned by a mentor.
func MentorResource(mentorID string) Resource {
	return Resource{MentorID: mentorID}
}

// Authorize returns nil when actor may perform action on resource. Actors outside a session receive a
// not-found error so the session's existence is not revealed.
func Authorize(actor Actor, resource Resource, action Action) error {
	if actor.ID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}

	switch action {
	case ActionViewSlots:
		return nil
	case ActionViewAvailability, ActionManageAvailability, ActionExportAgenda:
		if actor.IsAdministrator() || (actor.Role == models.RoleMentor && actor.ID == resource.MentorID) {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the mentor or an administrator may access this availability")
	case ActionCreateSession:
		if actor.IsAdministrator() {
			return nil
		}
		if actor.ID != resource.StudentID {
			return appErrors.Clone(appErrors.ErrForbidden, "sessions can only be requested for yourself")
		}
		return nil
	}

	isMentor := actor.ID == resource.MentorID
	isStudent := actor.ID == resource.StudentID
	if !actor.IsAdministrator() && !isMentor && !isStudent {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	switch action {
	case ActionViewSession, ActionUpdateSession, ActionCancelSession:
		return nil
	case ActionConfirmSession, ActionCompleteSession:
		if actor.IsAdministrator() || isMentor {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the mentor may "+verb(action)+" this session")
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "action not permitted")
	}
}

func verb(action Action) string {
	if action == ActionCompleteSession {
		return "complete"
	}
	return "confirm"
}
