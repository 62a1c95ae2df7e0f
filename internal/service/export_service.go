package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
	"github.com/noah-isme/mentor-booking-api/pkg/export"
)

const (
	exportPageSize   = 500
	maxExportWindow  = 366 * 24 * time.Hour
	agendaTimeLayout = "2006-01-02 15:04"
)

type sessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
}

type agendaRenderer func(format export.Format, data export.Dataset) ([]byte, error)

// ExportService renders a mentor's agenda as CSV or PDF.
type ExportService struct {
	sessions sessionLister
	mentors  mentorCalendar
	render   agendaRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(sessions sessionLister, mentors mentorCalendar, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{sessions: sessions, mentors: mentors, render: export.Render, logger: logger}
}

// MentorAgenda renders every session of the mentor overlapping [From, To), times in the mentor's timezone.
func (s *ExportService) MentorAgenda(ctx context.Context, actor policy.Actor, mentorID string, query dto.AgendaExportQuery) (*dto.AgendaExport, error) {
	if err := policy.Authorize(actor, policy.MentorResource(mentorID), policy.ActionExportAgenda); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Validation("invalid export request", map[string]string{"format": "must be csv or pdf"})
	}
	switch {
	case !query.To.After(query.From):
		return nil, appErrors.Validation("invalid export request", map[string]string{"to": "must be after from"})
	case query.To.Sub(query.From) > maxExportWindow:
		return nil, appErrors.Validation("invalid export request", map[string]string{"to": "window must not exceed 366 days"})
	}

	profile, err := s.mentors.Profile(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	loc := s.mentors.Location(*profile)

	sessions, err := s.collect(ctx, mentorID, query.From.UTC(), query.To.UTC())
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title: fmt.Sprintf("Agenda %s (%s to %s, %s)", mentorID,
			query.From.In(loc).Format("2006-01-02"), query.To.In(loc).Format("2006-01-02"), loc.String()),
		Headers: []string{"Start", "End", "Duration", "Status", "Student", "Skill", "Location", "Notes"},
		Rows:    make([]map[string]string, 0, len(sessions)),
	}
	for _, session := range sessions {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Start":    session.ScheduledAt.In(loc).Format(agendaTimeLayout),
			"End":      session.EndsAt.In(loc).Format(agendaTimeLayout),
			"Duration": strconv.Itoa(session.DurationMinutes),
			"Status":   string(session.Status),
			"Student":  session.StudentID,
			"Skill":    session.SkillID,
			"Location": deref(session.Location),
			"Notes":    deref(session.Notes),
		})
	}

	content, err := s.render(format, dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render agenda")
	}
	s.logger.Info("agenda exported",
		zap.String("mentor_id", mentorID),
		zap.String("format", string(format)),
		zap.Int("sessions", len(sessions)),
	)
	return &dto.AgendaExport{
		Filename:    fmt.Sprintf("agenda-%s-%s.%s", mentorID, query.From.In(loc).Format("20060102"), format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}

func (s *ExportService) collect(ctx context.Context, mentorID string, from, to time.Time) ([]models.Session, error) {
	var all []models.Session
	for page := 1; ; page++ {
		batch, total, err := s.sessions.List(ctx, models.SessionFilter{
			MentorID:  mentorID,
			From:      &from,
			To:        &to,
			Page:      page,
			PageSize:  exportPageSize,
			SortOrder: "asc",
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agenda")
		}
		all = append(all, batch...)
		if len(batch) < exportPageSize || len(all) >= total {
			return all, nil
		}
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
