package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/availability"
	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

type availabilityRuleRepository interface {
	ListByMentor(ctx context.Context, mentorID string, activeOnly bool) ([]models.AvailabilityRule, error)
	FindByID(ctx context.Context, mentorID, id string) (*models.AvailabilityRule, error)
	Create(ctx context.Context, rule *models.AvailabilityRule) error
	Update(ctx context.Context, rule *models.AvailabilityRule) error
	Delete(ctx context.Context, mentorID, id string) error
}

type availabilityExceptionRepository interface {
	ListByMentor(ctx context.Context, mentorID, fromDate, toDate string) ([]models.AvailabilityException, error)
	FindByID(ctx context.Context, mentorID, id string) (*models.AvailabilityException, error)
	Create(ctx context.Context, exc *models.AvailabilityException) error
	Update(ctx context.Context, exc *models.AvailabilityException) error
	Delete(ctx context.Context, mentorID, id string) error
}

type legacyAvailabilityRepository interface {
	ListByMentor(ctx context.Context, mentorID string) ([]models.LegacyAvailability, error)
	Create(ctx context.Context, row *models.LegacyAvailability) error
	Delete(ctx context.Context, mentorID, id string) error
}

type mentorProfiles interface {
	Profile(ctx context.Context, mentorID string) (*models.MentorProfile, error)
}

// AvailabilityService manages the availability model of mentors.
type AvailabilityService struct {
	rules           availabilityRuleRepository
	exceptions      availabilityExceptionRepository
	legacy          legacyAvailabilityRepository
	mentors         mentorProfiles
	defaultTimezone string
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(
	rules availabilityRuleRepository,
	exceptions availabilityExceptionRepository,
	legacy legacyAvailabilityRepository,
	mentors mentorProfiles,
	defaultTimezone string,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &AvailabilityService{
		rules:           rules,
		exceptions:      exceptions,
		legacy:          legacy,
		mentors:         mentors,
		defaultTimezone: defaultTimezone,
		validator:       validate,
		logger:          logger,
	}
}

// ListRules returns every rule of the mentor.
func (s *AvailabilityService) ListRules(ctx context.Context, actor policy.Actor, mentorID string) ([]models.AvailabilityRule, error) {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionViewAvailability); err != nil {
		return nil, err
	}
	rules, err := s.rules.ListByMentor(ctx, mentorID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	return rules, nil
}

// CreateRule validates and stores a new rule. A missing timezone defaults to the mentor's.
func (s *AvailabilityService) CreateRule(ctx context.Context, actor policy.Actor, mentorID string, req dto.AvailabilityRuleRequest) (*models.AvailabilityRule, error) {
	profile, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid availability rule")
	}

	rule := &models.AvailabilityRule{MentorID: mentorID, Active: true}
	s.applyRule(rule, req, profile)
	if err := availability.ValidateRule(*rule).Err("invalid availability rule"); err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability rule")
	}
	s.logger.Info("availability rule created", zap.String("mentor_id", mentorID), zap.String("rule_id", rule.ID), zap.String("kind", string(rule.Kind)))
	return rule, nil
}

// UpdateRule replaces the window of an existing rule.
func (s *AvailabilityService) UpdateRule(ctx context.Context, actor policy.Actor, mentorID, ruleID string, req dto.AvailabilityRuleRequest) (*models.AvailabilityRule, error) {
	profile, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid availability rule")
	}

	rule, err := s.rules.FindByID(ctx, mentorID, ruleID)
	if err != nil {
		return nil, notFoundOrInternal(err, "availability rule not found", "failed to load availability rule")
	}
	s.applyRule(rule, req, profile)
	if err := availability.ValidateRule(*rule).Err("invalid availability rule"); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, notFoundOrInternal(err, "availability rule not found", "failed to update availability rule")
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (s *AvailabilityService) DeleteRule(ctx context.Context, actor policy.Actor, mentorID, ruleID string) error {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, mentorID, ruleID); err != nil {
		return notFoundOrInternal(err, "availability rule not found", "failed to delete availability rule")
	}
	return nil
}

func (s *AvailabilityService) applyRule(rule *models.AvailabilityRule, req dto.AvailabilityRuleRequest, profile *models.MentorProfile) {
	rule.Kind = models.RuleKind(req.Kind)
	rule.DayOfWeek = req.DayOfWeek
	rule.StartTime = req.StartTime
	rule.EndTime = req.EndTime
	rule.StartsAt = utcPtr(req.StartsAt)
	rule.EndsAt = utcPtr(req.EndsAt)
	rule.Timezone = req.Timezone
	if rule.Timezone == "" {
		rule.Timezone = s.mentorTimezone(profile)
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
}

// ListExceptions returns exceptions dated inside [from, to]; empty bounds are open.
func (s *AvailabilityService) ListExceptions(ctx context.Context, actor policy.Actor, mentorID string, query dto.ExceptionListQuery) ([]models.AvailabilityException, error) {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionViewAvailability); err != nil {
		return nil, err
	}
	fields := availability.FieldErrors{}
	for field, value := range map[string]string{"from": query.From, "to": query.To} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(availability.DateLayout, value); err != nil {
			fields.Add(field, "must be a date formatted YYYY-MM-DD")
		}
	}
	if err := fields.Err("invalid exception range"); err != nil {
		return nil, err
	}
	exceptions, err := s.exceptions.ListByMentor(ctx, mentorID, query.From, query.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability exceptions")
	}
	return exceptions, nil
}

// CreateException validates and stores a dated exception.
func (s *AvailabilityService) CreateException(ctx context.Context, actor policy.Actor, mentorID string, req dto.AvailabilityExceptionRequest) (*models.AvailabilityException, error) {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid availability exception")
	}

	exc := &models.AvailabilityException{MentorID: mentorID}
	applyException(exc, req)
	if err := availability.ValidateException(*exc).Err("invalid availability exception"); err != nil {
		return nil, err
	}
	if err := s.exceptions.Create(ctx, exc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability exception")
	}
	s.logger.Info("availability exception created", zap.String("mentor_id", mentorID), zap.String("date", exc.Date), zap.String("kind", string(exc.Kind)))
	return exc, nil
}

// UpdateException replaces an existing exception.
func (s *AvailabilityService) UpdateException(ctx context.Context, actor policy.Actor, mentorID, exceptionID string, req dto.AvailabilityExceptionRequest) (*models.AvailabilityException, error) {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid availability exception")
	}

	exc, err := s.exceptions.FindByID(ctx, mentorID, exceptionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "availability exception not found", "failed to load availability exception")
	}
	applyException(exc, req)
	if err := availability.ValidateException(*exc).Err("invalid availability exception"); err != nil {
		return nil, err
	}
	if err := s.exceptions.Update(ctx, exc); err != nil {
		return nil, notFoundOrInternal(err, "availability exception not found", "failed to update availability exception")
	}
	return exc, nil
}

// DeleteException removes an exception.
func (s *AvailabilityService) DeleteException(ctx context.Context, actor policy.Actor, mentorID, exceptionID string) error {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability); err != nil {
		return err
	}
	if err := s.exceptions.Delete(ctx, mentorID, exceptionID); err != nil {
		return notFoundOrInternal(err, "availability exception not found", "failed to delete availability exception")
	}
	return nil
}

func applyException(exc *models.AvailabilityException, req dto.AvailabilityExceptionRequest) {
	exc.Date = req.Date
	exc.Kind = models.ExceptionKind(req.Kind)
	exc.StartTime = req.StartTime
	exc.EndTime = req.EndTime
	exc.Timezone = req.Timezone
	exc.Reason = req.Reason
}

// ListLegacy returns the mentor's legacy weekly rows.
func (s *AvailabilityService) ListLegacy(ctx context.Context, actor policy.Actor, mentorID string) ([]models.LegacyAvailability, error) {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionViewAvailability); err != nil {
		return nil, err
	}
	rows, err := s.legacy.ListByMentor(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list legacy availability")
	}
	return rows, nil
}

// CreateLegacy stores a legacy weekly row.
func (s *AvailabilityService) CreateLegacy(ctx context.Context, actor policy.Actor, mentorID string, req dto.LegacyAvailabilityRequest) (*models.LegacyAvailability, error) {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid legacy availability")
	}
	row := &models.LegacyAvailability{
		MentorID:  mentorID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := availability.ValidateLegacy(*row).Err("invalid legacy availability"); err != nil {
		return nil, err
	}
	if err := s.legacy.Create(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create legacy availability")
	}
	return row, nil
}

// DeleteLegacy removes a legacy row.
func (s *AvailabilityService) DeleteLegacy(ctx context.Context, actor policy.Actor, mentorID, legacyID string) error {
	if _, err := s.authorize(ctx, actor, mentorID, policy.ActionManageAvailability); err != nil {
		return err
	}
	if err := s.legacy.Delete(ctx, mentorID, legacyID); err != nil {
		return notFoundOrInternal(err, "legacy availability not found", "failed to delete legacy availability")
	}
	return nil
}

// authorize checks the capability and that mentorID names a mentor.
func (s *AvailabilityService) authorize(ctx context.Context, actor policy.Actor, mentorID string, action policy.Action) (*models.MentorProfile, error) {
	if err := policy.Authorize(actor, policy.MentorResource(mentorID), action); err != nil {
		return nil, err
	}
	return s.mentors.Profile(ctx, mentorID)
}

func (s *AvailabilityService) mentorTimezone(profile *models.MentorProfile) string {
	if profile != nil && profile.Timezone != nil && *profile.Timezone != "" {
		return *profile.Timezone
	}
	return s.defaultTimezone
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
