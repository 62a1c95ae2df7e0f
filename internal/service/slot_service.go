package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/availability"
	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/interval"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	"github.com/noah-isme/mentor-booking-api/internal/slots"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

// Bounds of a per-request slot step.
const (
	minStepMinutes = 5
	maxStepMinutes = 240
)

type activeSessionReader interface {
	ListActiveOverlapping(ctx context.Context, mentorID string, from, to time.Time) ([]models.Session, error)
}

type mentorCalendar interface {
	Profile(ctx context.Context, mentorID string) (*models.MentorProfile, error)
	Location(profile models.MentorProfile) *time.Location
}

// SlotConfig tunes slot resolution.
type SlotConfig struct {
	// Step between candidate starts. Zero steps by the requested duration.
	Step      time.Duration
	MaxWindow time.Duration
}

// SlotService resolves bookable slots from freshly loaded availability and sessions.
type SlotService struct {
	rules      availabilityRuleRepository
	exceptions availabilityExceptionRepository
	legacy     legacyAvailabilityRepository
	sessions   activeSessionReader
	mentors    mentorCalendar
	metrics    *MetricsService
	config     SlotConfig
	clock      func() time.Time
	logger     *zap.Logger
}

// NewSlotService constructs the service.
func NewSlotService(
	rules availabilityRuleRepository,
	exceptions availabilityExceptionRepository,
	legacy legacyAvailabilityRepository,
	sessions activeSessionReader,
	mentors mentorCalendar,
	metrics *MetricsService,
	config SlotConfig,
	logger *zap.Logger,
) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		rules:      rules,
		exceptions: exceptions,
		legacy:     legacy,
		sessions:   sessions,
		mentors:    mentors,
		metrics:    metrics,
		config:     config,
		clock:      time.Now,
		logger:     logger,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *SlotService) WithClock(clock func() time.Time) *SlotService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Slots lists bookable starts of a mentor. An empty or inverted window yields no slots.
func (s *SlotService) Slots(ctx context.Context, actor policy.Actor, mentorID string, query dto.SlotQuery) (*dto.SlotsResponse, error) {
	if err := policy.Authorize(actor, policy.MentorResource(mentorID), policy.ActionViewSlots); err != nil {
		return nil, err
	}

	fields := availability.FieldErrors{}
	if query.DurationMinutes < models.MinSessionMinutes || query.DurationMinutes > models.MaxSessionMinutes {
		fields.Add("duration", sessionMinutesMessage())
	}
	if query.StepMinutes != 0 && (query.StepMinutes < minStepMinutes || query.StepMinutes > maxStepMinutes) {
		fields.Add("step", "must be between 5 and 240 minutes")
	}
	if err := fields.Err("invalid slot query"); err != nil {
		return nil, err
	}

	duration := time.Duration(query.DurationMinutes) * time.Minute
	step := s.config.Step
	if query.StepMinutes > 0 {
		step = time.Duration(query.StepMinutes) * time.Minute
	}
	if step <= 0 {
		step = duration
	}

	resp := &dto.SlotsResponse{
		MentorID:        mentorID,
		From:            query.From.UTC(),
		To:              query.To.UTC(),
		DurationMinutes: query.DurationMinutes,
		StepMinutes:     int(step / time.Minute),
		Slots:           []dto.Slot{},
	}

	profile, err := s.mentors.Profile(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	if !query.To.After(query.From) {
		return resp, nil
	}

	started := time.Now()
	in := slots.Input{
		From:     query.From,
		To:       query.To,
		Duration: duration,
		Step:     step,
		Now:      s.clock(),
		MaxSpan:  s.config.MaxWindow,
		Location: s.mentors.Location(*profile),
	}
	if err := s.load(ctx, mentorID, loadWindow(in), &in); err != nil {
		return nil, err
	}

	result, err := slots.Resolve(in)
	if err != nil {
		if errors.Is(err, slots.ErrInvalidDuration) {
			return nil, appErrors.Validation("invalid slot query", map[string]string{"duration": err.Error()})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve slots")
	}

	resp.From, resp.To = result.Window.Start, result.Window.End
	if result.Window.Empty() {
		resp.To = resp.From
	}
	for _, slot := range result.Slots {
		resp.Slots = append(resp.Slots, dto.Slot{Start: slot.Start, End: slot.End})
	}
	s.metrics.ObserveSlotResolution(time.Since(started), len(resp.Slots))
	s.logger.Debug("slots resolved",
		zap.String("mentor_id", mentorID),
		zap.Time("from", resp.From),
		zap.Time("to", resp.To),
		zap.Int("slots", len(resp.Slots)),
	)
	return resp, nil
}

// FreeWithin returns the mentor's free intervals clipped to window, using the same precedence as slot
// resolution.
func (s *SlotService) FreeWithin(ctx context.Context, mentorID string, window interval.Interval) ([]interval.Interval, error) {
	profile, err := s.mentors.Profile(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	var in slots.Input
	if err := s.load(ctx, mentorID, window, &in); err != nil {
		return nil, err
	}
	return slots.FreeIntervals(in.Rules, in.Legacy, in.Exceptions, in.Sessions, window, s.mentors.Location(*profile)), nil
}

// loadWindow covers what resolution reads: the expansion window that keeps free intervals whole.
func loadWindow(in slots.Input) interval.Interval {
	expansion, _ := slots.Windows(in)
	return expansion
}

// load reads the availability model and active sessions relevant to window into in.
func (s *SlotService) load(ctx context.Context, mentorID string, window interval.Interval, in *slots.Input) error {
	rules, err := s.rules.ListByMentor(ctx, mentorID, true)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}
	legacy, err := s.legacy.ListByMentor(ctx, mentorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load legacy availability")
	}
	// Exception dates are local; pad by a day on each side to cover every timezone.
	fromDate := window.Start.UTC().AddDate(0, 0, -1).Format(availability.DateLayout)
	toDate := window.End.UTC().AddDate(0, 0, 1).Format(availability.DateLayout)
	exceptions, err := s.exceptions.ListByMentor(ctx, mentorID, fromDate, toDate)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability exceptions")
	}
	sessions, err := s.sessions.ListActiveOverlapping(ctx, mentorID, window.Start, window.End)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	in.Rules, in.Legacy, in.Exceptions, in.Sessions = rules, legacy, exceptions, sessions
	return nil
}
