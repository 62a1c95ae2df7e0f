package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/repository"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func mustTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeMentors struct {
	profiles map[string]models.MentorProfile
	skills   map[string][]string
}

func newFakeMentors() *fakeMentors {
	return &fakeMentors{profiles: map[string]models.MentorProfile{}, skills: map[string][]string{}}
}

func (f *fakeMentors) add(id, timezone string, skills ...string) {
	profile := models.MentorProfile{UserID: id}
	if timezone != "" {
		profile.Timezone = strPtr(timezone)
	}
	f.profiles[id] = profile
	f.skills[id] = skills
}

func (f *fakeMentors) FindProfile(ctx context.Context, mentorID string) (*models.MentorProfile, error) {
	profile, ok := f.profiles[mentorID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

func (f *fakeMentors) ListSkillIDs(ctx context.Context, mentorID string) ([]string, error) {
	return f.skills[mentorID], nil
}

// directory wires the fake through the real MentorDirectory without a cache.
func (f *fakeMentors) directory() *MentorDirectory {
	return NewMentorDirectory(f, nil, 0, "UTC", nil)
}

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules []models.AvailabilityRule
}

func (r *fakeRuleRepo) ListByMentor(ctx context.Context, mentorID string, activeOnly bool) ([]models.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AvailabilityRule
	for _, rule := range r.rules {
		if rule.MentorID == mentorID && (!activeOnly || rule.Active) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) FindByID(ctx context.Context, mentorID, id string) (*models.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id && rule.MentorID == mentorID {
			copied := rule
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeRuleRepo) Create(ctx context.Context, rule *models.AvailabilityRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *fakeRuleRepo) Update(ctx context.Context, rule *models.AvailabilityRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].ID == rule.ID && r.rules[i].MentorID == rule.MentorID {
			r.rules[i] = *rule
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *fakeRuleRepo) Delete(ctx context.Context, mentorID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].ID == id && r.rules[i].MentorID == mentorID {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeExceptionRepo struct {
	mu         sync.Mutex
	exceptions []models.AvailabilityException
	lastFrom   string
	lastTo     string
}

func (r *fakeExceptionRepo) ListByMentor(ctx context.Context, mentorID, fromDate, toDate string) ([]models.AvailabilityException, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFrom, r.lastTo = fromDate, toDate
	var out []models.AvailabilityException
	for _, exc := range r.exceptions {
		if exc.MentorID != mentorID {
			continue
		}
		if (fromDate != "" && exc.Date < fromDate) || (toDate != "" && exc.Date > toDate) {
			continue
		}
		out = append(out, exc)
	}
	return out, nil
}

func (r *fakeExceptionRepo) FindByID(ctx context.Context, mentorID, id string) (*models.AvailabilityException, error) {
	for _, exc := range r.exceptions {
		if exc.ID == id && exc.MentorID == mentorID {
			copied := exc
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeExceptionRepo) Create(ctx context.Context, exc *models.AvailabilityException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	r.exceptions = append(r.exceptions, *exc)
	return nil
}

func (r *fakeExceptionRepo) Update(ctx context.Context, exc *models.AvailabilityException) error {
	for i := range r.exceptions {
		if r.exceptions[i].ID == exc.ID {
			r.exceptions[i] = *exc
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *fakeExceptionRepo) Delete(ctx context.Context, mentorID, id string) error {
	for i := range r.exceptions {
		if r.exceptions[i].ID == id && r.exceptions[i].MentorID == mentorID {
			r.exceptions = append(r.exceptions[:i], r.exceptions[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeLegacyRepo struct {
	rows []models.LegacyAvailability
}

func (r *fakeLegacyRepo) ListByMentor(ctx context.Context, mentorID string) ([]models.LegacyAvailability, error) {
	var out []models.LegacyAvailability
	for _, row := range r.rows {
		if row.MentorID == mentorID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeLegacyRepo) Create(ctx context.Context, row *models.LegacyAvailability) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	r.rows = append(r.rows, *row)
	return nil
}

func (r *fakeLegacyRepo) Delete(ctx context.Context, mentorID, id string) error {
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].MentorID == mentorID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// fakeSessionStore keeps the overlap check and the insert atomic under one lock, like the advisory-locked
// transaction it stands in for.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	// beforeUpdate, when set, runs inside UpdateStatus before the status comparison.
	beforeUpdate func(s *models.Session)
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]models.Session{}}
}

func (f *fakeSessionStore) put(s models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.EndsAt.IsZero() {
		s.EndsAt = s.ScheduledAt.Add(s.Duration())
	}
	f.sessions[s.ID] = s
}

func (f *fakeSessionStore) CreateExclusive(ctx context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.EndsAt = session.ScheduledAt.Add(session.Duration())
	for _, existing := range f.sessions {
		if existing.MentorID != session.MentorID || !existing.Status.IsActive() {
			continue
		}
		if existing.ScheduledAt.Before(session.EndsAt) && session.ScheduledAt.Before(existing.EndsAt) {
			return repository.ErrSessionOverlap
		}
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeSessionStore) ListActiveOverlapping(ctx context.Context, mentorID string, from, to time.Time) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.MentorID == mentorID && s.Status.IsActive() && s.ScheduledAt.Before(to) && from.Before(s.EndsAt) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (f *fakeSessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if filter.ParticipantID != "" && s.MentorID != filter.ParticipantID && s.StudentID != filter.ParticipantID {
			continue
		}
		if filter.MentorID != "" && s.MentorID != filter.MentorID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.From != nil && !s.EndsAt.After(*filter.From) {
			continue
		}
		if filter.To != nil && !s.ScheduledAt.Before(*filter.To) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	total := len(out)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (f *fakeSessionStore) UpdateStatus(ctx context.Context, session *models.Session, expected models.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[session.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if f.beforeUpdate != nil {
		f.beforeUpdate(&stored)
	}
	if stored.Status != expected {
		return repository.ErrStaleStatus
	}
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeSessionStore) UpdateDetails(ctx context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[session.ID]
	if !ok || stored.Status.IsTerminal() {
		return repository.ErrStaleStatus
	}
	stored.Location, stored.Notes = session.Location, session.Notes
	f.sessions[session.ID] = stored
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) last() models.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (a *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, *log)
	return nil
}

// mondayRule is a weekly Monday 09:00-12:00 rule in tz.
func mondayRule(mentorID, tz string) models.AvailabilityRule {
	return models.AvailabilityRule{
		ID:        uuid.NewString(),
		MentorID:  mentorID,
		Kind:      models.RuleKindWeekly,
		DayOfWeek: intPtr(1),
		StartTime: strPtr("09:00"),
		EndTime:   strPtr("12:00"),
		Timezone:  tz,
		Active:    true,
	}
}
