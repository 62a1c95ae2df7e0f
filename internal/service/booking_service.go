package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/interval"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	"github.com/noah-isme/mentor-booking-api/internal/repository"
	"github.com/noah-isme/mentor-booking-api/internal/session"
	"github.com/noah-isme/mentor-booking-api/internal/slots"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

type sessionRepository interface {
	CreateExclusive(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	UpdateStatus(ctx context.Context, session *models.Session, expected models.SessionStatus) error
	UpdateDetails(ctx context.Context, session *models.Session) error
}

type skillDirectory interface {
	HasSkill(ctx context.Context, mentorID, skillID string) (bool, error)
}

type freeTimeReader interface {
	FreeWithin(ctx context.Context, mentorID string, window interval.Interval) ([]interval.Interval, error)
}

type sessionEventPublisher interface {
	Publish(ctx context.Context, event models.SessionEvent) error
}

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// BookingService creates sessions and drives them through their lifecycle.
type BookingService struct {
	sessions  sessionRepository
	skills    skillDirectory
	free      freeTimeReader
	events    sessionEventPublisher
	audit     auditRepository
	metrics   *MetricsService
	validator *validator.Validate
	clock     func() time.Time
	logger    *zap.Logger
}

// NewBookingService constructs the service. events and audit may be nil.
func NewBookingService(
	sessions sessionRepository,
	skills skillDirectory,
	free freeTimeReader,
	events sessionEventPublisher,
	audit auditRepository,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		sessions:  sessions,
		skills:    skills,
		free:      free,
		events:    events,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		clock:     time.Now,
		logger:    logger,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *BookingService) WithClock(clock func() time.Time) *BookingService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Create books a pending session after checking the parties, the skill and the mentor's free time.
func (s *BookingService) Create(ctx context.Context, actor policy.Actor, req dto.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordBookingOutcome(BookingOutcomeRejected)
		return nil, validationFailure(err, "invalid session request")
	}

	studentID := actor.ID
	if req.StudentID != nil && *req.StudentID != "" {
		studentID = *req.StudentID
	}
	if req.MentorID == studentID {
		s.metrics.RecordBookingOutcome(BookingOutcomeRejected)
		return nil, appErrors.Validation("invalid session request", map[string]string{"mentor_id": "must differ from the student"})
	}
	if err := policy.Authorize(actor, policy.Resource{MentorID: req.MentorID, StudentID: studentID}, policy.ActionCreateSession); err != nil {
		s.metrics.RecordBookingOutcome(BookingOutcomeRejected)
		return nil, err
	}

	teaches, err := s.skills.HasSkill(ctx, req.MentorID, req.SkillID)
	if err != nil {
		return nil, err
	}
	if !teaches {
		s.metrics.RecordBookingOutcome(BookingOutcomeRejected)
		return nil, appErrors.Validation("invalid session request", map[string]string{"skill_id": "is not offered by this mentor"})
	}

	now := s.clock().UTC()
	scheduledAt := req.ScheduledAt.UTC()
	if scheduledAt.Before(now) {
		s.metrics.RecordBookingOutcome(BookingOutcomeRejected)
		return nil, appErrors.Validation("invalid session request", map[string]string{"scheduled_at": "must not be in the past"})
	}

	candidate := interval.New(scheduledAt, scheduledAt.Add(time.Duration(req.DurationMinutes)*time.Minute))
	free, err := s.free.FreeWithin(ctx, req.MentorID, candidate)
	if err != nil {
		return nil, err
	}
	if !slots.Covers(free, candidate) {
		s.metrics.RecordBookingOutcome(BookingOutcomeConflict)
		return nil, appErrors.Clone(appErrors.ErrConflict, "requested time is not available; resolve slots again and pick another")
	}

	created := &models.Session{
		MentorID:        req.MentorID,
		StudentID:       studentID,
		SkillID:         req.SkillID,
		Status:          models.SessionPending,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		EndsAt:          candidate.End,
		Location:        req.Location,
		Notes:           req.Notes,
	}
	if err := s.sessions.CreateExclusive(ctx, created); err != nil {
		if errors.Is(err, repository.ErrSessionOverlap) {
			s.metrics.RecordBookingOutcome(BookingOutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrConflict, "requested time was just booked; resolve slots again and pick another")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.metrics.RecordBookingOutcome(BookingOutcomeCreated)
	s.logger.Info("session requested",
		zap.String("session_id", created.ID),
		zap.String("mentor_id", created.MentorID),
		zap.String("student_id", created.StudentID),
		zap.Time("scheduled_at", created.ScheduledAt),
	)

	s.recordAudit(ctx, actor, models.AuditActionSessionCreate, created.ID, nil, created)
	s.publish(ctx, session.RequestedEvent(*created, actor, now))
	return created, nil
}

// Transition applies confirm, complete or cancel to a session.
func (s *BookingService) Transition(ctx context.Context, actor policy.Actor, sessionID, rawAction string, req dto.TransitionSessionRequest) (*models.Session, error) {
	action, ok := session.ParseAction(rawAction)
	if !ok {
		return nil, appErrors.Validation("invalid transition", map[string]string{"action": "must be one of confirm, complete, cancel"})
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid transition")
	}

	current, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	outcome, err := session.Transition(*current, action, actor, req.Reason, s.clock())
	if err != nil {
		return nil, err
	}

	updated := outcome.Session
	if err := s.sessions.UpdateStatus(ctx, &updated, outcome.Previous); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) || errors.Is(err, repository.ErrSessionOverlap) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session changed while the request was processed; reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.metrics.RecordTransition(string(action))
	s.logger.Info("session transitioned",
		zap.String("session_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("from", string(outcome.Previous)),
		zap.String("to", string(updated.Status)),
	)

	s.recordAudit(ctx, actor, transitionAuditAction(action), updated.ID,
		map[string]interface{}{"status": outcome.Previous},
		map[string]interface{}{"status": updated.Status, "reason": req.Reason},
	)
	s.publish(ctx, outcome.Event)
	return &updated, nil
}

// Get returns a session visible to the actor.
func (s *BookingService) Get(ctx context.Context, actor policy.Actor, sessionID string) (*models.Session, error) {
	found, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.SessionResource(*found), policy.ActionViewSession); err != nil {
		return nil, err
	}
	return found, nil
}

// List returns the actor's sessions; administrators see every session.
func (s *BookingService) List(ctx context.Context, actor policy.Actor, query dto.SessionListQuery) (*dto.SessionList, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationFailure(err, "invalid session filter")
	}
	if actor.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if query.From != nil && query.To != nil && !query.To.After(*query.From) {
		return nil, appErrors.Validation("invalid session filter", map[string]string{"to": "must be after from"})
	}

	filter := models.SessionFilter{
		From:      query.From,
		To:        query.To,
		Page:      query.Page,
		PageSize:  query.Limit,
		SortOrder: query.Sort,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if !actor.IsAdministrator() {
		filter.ParticipantID = actor.ID
	}
	if query.Status != "" {
		status := models.SessionStatus(query.Status)
		if !status.Valid() {
			return nil, appErrors.Validation("invalid session filter", map[string]string{"status": "must be one of pending, confirmed, cancelled, completed"})
		}
		filter.Status = &status
	}

	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return &dto.SessionList{
		Sessions:   sessions,
		Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total},
	}, nil
}

// Update edits location and notes of a non-terminal session. The parties and the skill never change.
func (s *BookingService) Update(ctx context.Context, actor policy.Actor, sessionID string, req dto.UpdateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid session update")
	}
	current, err := s.find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.SessionResource(*current), policy.ActionUpdateSession); err != nil {
		return nil, err
	}
	if err := appErrors.Validation("invalid session update", session.ImmutableFieldErrors(*current, req.MentorID, req.StudentID, req.SkillID)); err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session is "+string(current.Status)+" and can no longer change")
	}

	updated := *current
	if req.Location != nil {
		updated.Location = req.Location
	}
	if req.Notes != nil {
		updated.Notes = req.Notes
	}
	if err := s.sessions.UpdateDetails(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session can no longer change")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.recordAudit(ctx, actor, models.AuditActionSessionUpdate, updated.ID,
		map[string]interface{}{"location": current.Location, "notes": current.Notes},
		map[string]interface{}{"location": updated.Location, "notes": updated.Notes},
	)
	return &updated, nil
}

func (s *BookingService) find(ctx context.Context, sessionID string) (*models.Session, error) {
	found, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return found, nil
}

// publish runs after the commit point; failures are logged and never undo the change.
func (s *BookingService) publish(ctx context.Context, event models.SessionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("publish session event failed",
			zap.String("event", event.Type),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}

func (s *BookingService) recordAudit(ctx context.Context, actor policy.Actor, action, sessionID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		Resource:   "session",
		ResourceID: &sessionID,
	}
	if oldValues != nil {
		if raw, err := json.Marshal(oldValues); err == nil {
			entry.OldValues = raw
		}
	}
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("session audit failed", zap.String("session_id", sessionID), zap.String("action", action), zap.Error(err))
	}
}

func transitionAuditAction(action session.Action) string {
	switch action {
	case session.ActionConfirm:
		return models.AuditActionSessionConfirm
	case session.ActionComplete:
		return models.AuditActionSessionComplete
	default:
		return models.AuditActionSessionCancel
	}
}
