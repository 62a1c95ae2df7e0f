// Package session implements the booking lifecycle: which transitions exist, who may fire them, and who
// hears about them.
package session

import (
	"time"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

// Action is a session transition.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// ParseAction validates a transition name.
func ParseAction(raw string) (Action, bool) {
	action := Action(raw)
	_, ok := capabilities[action]
	return action, ok
}

var capabilities = map[Action]policy.Action{
	ActionConfirm:  policy.ActionConfirmSession,
	ActionComplete: policy.ActionCompleteSession,
	ActionCancel:   policy.ActionCancelSession,
}

// transitions lists, per state, the actions it accepts and where they lead.
var transitions = map[models.SessionStatus]map[Action]models.SessionStatus{
	models.SessionPending: {
		ActionConfirm: models.SessionConfirmed,
		ActionCancel:  models.SessionCancelled,
	},
	models.SessionConfirmed: {
		ActionComplete: models.SessionCompleted,
		ActionCancel:   models.SessionCancelled,
	},
	models.SessionCancelled: {},
	models.SessionCompleted: {},
}

// Next returns the status action leads to from current, or a conflict error when the guard rejects it.
func Next(current models.SessionStatus, action Action) (models.SessionStatus, error) {
	allowed, ok := transitions[current]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrConflict, "session is in an unknown state")
	}
	next, ok := allowed[action]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrConflict, guardMessage(current, action))
	}
	return next, nil
}

func guardMessage(current models.SessionStatus, action Action) string {
	switch {
	case current.IsTerminal():
		return "session is " + string(current) + " and can no longer change"
	case action == ActionComplete:
		return "only confirmed sessions can be completed"
	case action == ActionConfirm:
		return "only pending sessions can be confirmed"
	default:
		return "cannot " + string(action) + " a " + string(current) + " session"
	}
}

// Outcome is the result of a successful transition.
type Outcome struct {
	Session  models.Session
	Previous models.SessionStatus
	Event    models.SessionEvent
}

// Transition authorizes actor, applies the guard and returns the updated session without persisting it.
// The input session is never modified.
func Transition(s models.Session, action Action, actor policy.Actor, reason *string, at time.Time) (Outcome, error) {
	capability, ok := capabilities[action]
	if !ok {
		return Outcome{}, appErrors.Validation("invalid transition", map[string]string{"action": "must be one of confirm, complete, cancel"})
	}
	if err := policy.Authorize(actor, policy.SessionResource(s), capability); err != nil {
		return Outcome{}, err
	}
	next, err := Next(s.Status, action)
	if err != nil {
		return Outcome{}, err
	}

	at = at.UTC()
	updated := s
	updated.Status = next
	updated.UpdatedAt = at
	switch action {
	case ActionConfirm:
		updated.ConfirmedAt = &at
	case ActionComplete:
		updated.CompletedAt = &at
	case ActionCancel:
		actorID := actor.ID
		updated.CancelledAt = &at
		updated.CancelledBy = &actorID
		updated.CancelReason = reason
	}

	return Outcome{
		Session:  updated,
		Previous: s.Status,
		Event:    NewEvent(updated, EventType(action), actor, Recipients(s, action, actor), at),
	}, nil
}

// EventType names the event emitted for action.
func EventType(action Action) string {
	switch action {
	case ActionConfirm:
		return models.EventSessionConfirmed
	case ActionComplete:
		return models.EventSessionCompleted
	default:
		return models.EventSessionCancelled
	}
}

// Recipients returns who is notified: both parties on cancellation or when an administrator acts,
// otherwise the counter-party of the actor.
func Recipients(s models.Session, action Action, actor policy.Actor) []string {
	both := []string{s.MentorID, s.StudentID}
	if action == ActionCancel {
		return both
	}
	switch actor.ID {
	case s.MentorID:
		return []string{s.StudentID}
	case s.StudentID:
		return []string{s.MentorID}
	default:
		return both
	}
}

// NewEvent builds the domain event for a session change.
func NewEvent(s models.Session, eventType string, actor policy.Actor, recipients []string, at time.Time) models.SessionEvent {
	return models.SessionEvent{
		Type:       eventType,
		SessionID:  s.ID,
		MentorID:   s.MentorID,
		StudentID:  s.StudentID,
		ActorID:    actor.ID,
		Status:     s.Status,
		Recipients: recipients,
		OccurredAt: at.UTC(),
	}
}

// RequestedEvent is emitted when a session is created; only the mentor is notified.
func RequestedEvent(s models.Session, actor policy.Actor, at time.Time) models.SessionEvent {
	return NewEvent(s, models.EventSessionRequested, actor, []string{s.MentorID}, at)
}

// ImmutableFieldErrors reports attempts to change the parties or the skill of an existing session.
func ImmutableFieldErrors(s models.Session, mentorID, studentID, skillID *string) map[string]string {
	fields := map[string]string{}
	if mentorID != nil && *mentorID != s.MentorID {
		fields["mentor_id"] = "cannot be changed after creation"
	}
	if studentID != nil && *studentID != s.StudentID {
		fields["student_id"] = "cannot be changed after creation"
	}
	if skillID != nil && *skillID != s.SkillID {
		fields["skill_id"] = "cannot be changed after creation"
	}
	return fields
}
