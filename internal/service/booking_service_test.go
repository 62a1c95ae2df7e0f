package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
)

type bookingFixture struct {
	svc       *BookingService
	slots     *SlotService
	sessions  *fakeSessionStore
	rules     *fakeRuleRepo
	publisher *recordingPublisher
	audit     *recordingAudit
	metrics   *MetricsService
}

func newBookingFixture() bookingFixture {
	now := mustTime("2024-03-01T00:00:00Z")
	slotsFixture := newSlotFixture(now)
	slotsFixture.rules.rules = append(slotsFixture.rules.rules, mondayRule("mentor-1", "Europe/Paris"))

	f := bookingFixture{
		slots:     slotsFixture.svc,
		sessions:  slotsFixture.sessions,
		rules:     slotsFixture.rules,
		publisher: &recordingPublisher{},
		audit:     &recordingAudit{},
		metrics:   slotsFixture.metrics,
	}
	f.svc = NewBookingService(f.sessions, slotsFixture.mentors.directory(), slotsFixture.svc, f.publisher, f.audit, f.metrics, nil, nil).
		WithClock(func() time.Time { return now })
	return f
}

func bookingRequest(start string) dto.CreateSessionRequest {
	return dto.CreateSessionRequest{
		MentorID:        "mentor-1",
		SkillID:         "go",
		ScheduledAt:     mustTime(start),
		DurationMinutes: 60,
	}
}

func (f bookingFixture) book(t *testing.T, start string) *models.Session {
	t.Helper()
	created, err := f.svc.Create(context.Background(), studentActor, bookingRequest(start))
	require.NoError(t, err)
	return created
}

func TestBookingServiceCreate(t *testing.T) {
	f := newBookingFixture()

	created := f.book(t, "2024-03-04T09:00:00Z")
	assert.Equal(t, models.SessionPending, created.Status)
	assert.Equal(t, "student-1", created.StudentID)
	assert.Equal(t, mustTime("2024-03-04T10:00:00Z"), created.EndsAt)

	event := f.publisher.last()
	assert.Equal(t, models.EventSessionRequested, event.Type)
	assert.Equal(t, []string{"mentor-1"}, event.Recipients)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionSessionCreate, f.audit.logs[0].Action)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().BookingsCreated)
}

func TestBookingServiceCreateRejections(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	self := bookingRequest("2024-03-04T09:00:00Z")
	_, err := f.svc.Create(ctx, policy.Actor{ID: "mentor-1", Role: models.RoleMentor}, self)
	assert.Contains(t, appErr(t, err).Fields, "mentor_id")

	skill := bookingRequest("2024-03-04T09:00:00Z")
	skill.SkillID = "rust"
	_, err = f.svc.Create(ctx, studentActor, skill)
	assert.Equal(t, "is not offered by this mentor", appErr(t, err).Fields["skill_id"])

	past := bookingRequest("2024-02-26T09:00:00Z")
	_, err = f.svc.Create(ctx, studentActor, past)
	assert.Contains(t, appErr(t, err).Fields, "scheduled_at")

	other := bookingRequest("2024-03-04T09:00:00Z")
	other.StudentID = strPtr("student-2")
	_, err = f.svc.Create(ctx, studentActor, other)
	assert.Equal(t, http.StatusForbidden, appErr(t, err).Status)

	invalid := bookingRequest("2024-03-04T09:00:00Z")
	invalid.DurationMinutes = 0
	_, err = f.svc.Create(ctx, studentActor, invalid)
	assert.Equal(t, "is required", appErr(t, err).Fields["duration_minutes"])

	outside := bookingRequest("2024-03-04T11:30:00Z")
	_, err = f.svc.Create(ctx, studentActor, outside)
	assert.Equal(t, http.StatusConflict, appErr(t, err).Status)

	assert.Empty(t, f.sessions.sessions)
	assert.Empty(t, f.publisher.events)
}

func TestBookingServiceBooksFirstSlotAtDurationBounds(t *testing.T) {
	ctx := context.Background()
	for _, minutes := range []int{models.MinSessionMinutes, models.MaxSessionMinutes} {
		f := newBookingFixture()
		tuesday := mondayRule("mentor-1", "Europe/Paris")
		tuesday.DayOfWeek = intPtr(2)
		tuesday.StartTime, tuesday.EndTime = strPtr("08:00"), strPtr("18:00")
		f.rules.rules = append(f.rules.rules, tuesday)

		resp, err := f.slots.Slots(ctx, studentActor, "mentor-1", dto.SlotQuery{
			From:            mustTime("2024-03-04T00:00:00Z"),
			To:              mustTime("2024-03-06T00:00:00Z"),
			DurationMinutes: minutes,
		})
		require.NoError(t, err, "%d minutes", minutes)
		require.NotEmpty(t, resp.Slots, "%d minutes", minutes)

		first := resp.Slots[0]
		req := bookingRequest(first.Start.Format(time.RFC3339))
		req.DurationMinutes = minutes
		created, err := f.svc.Create(ctx, studentActor, req)
		require.NoError(t, err, "%d minutes", minutes)
		assert.Equal(t, first.End, created.EndsAt)
	}

	f := newBookingFixture()
	req := bookingRequest("2024-03-04T09:00:00Z")
	req.DurationMinutes = models.MaxSessionMinutes + 1
	_, err := f.svc.Create(ctx, studentActor, req)
	assert.Equal(t, "must be between 5 and 480 minutes", appErr(t, err).Fields["duration_minutes"])
}

func TestBookingServiceAdministratorBooksForStudent(t *testing.T) {
	f := newBookingFixture()
	req := bookingRequest("2024-03-04T08:00:00Z")
	req.StudentID = strPtr("student-7")

	created, err := f.svc.Create(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, "student-7", created.StudentID)
}

func TestBookingServiceRejectsOverlap(t *testing.T) {
	f := newBookingFixture()
	f.book(t, "2024-03-04T09:00:00Z")

	_, err := f.svc.Create(context.Background(), policy.Actor{ID: "student-2", Role: models.RoleStudent}, bookingRequest("2024-03-04T09:30:00Z"))
	assert.Equal(t, http.StatusConflict, appErr(t, err).Status)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().BookingConflicts)
}

func TestBookingServiceConcurrentCreateBooksOnce(t *testing.T) {
	f := newBookingFixture()
	const requests = 8

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := policy.Actor{ID: "student-" + string(rune('a'+i)), Role: models.RoleStudent}
			<-start
			_, err := f.svc.Create(context.Background(), actor, bookingRequest("2024-03-04T09:00:00Z"))
			results <- err
		}(i)
	}
	close(start)
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, http.StatusConflict, appErr(t, err).Status)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.sessions.sessions, 1)
}

func TestBookingServiceConfirmAndComplete(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	created := f.book(t, "2024-03-04T09:00:00Z")

	_, err := f.svc.Transition(ctx, studentActor, created.ID, "confirm", dto.TransitionSessionRequest{})
	assert.Equal(t, http.StatusForbidden, appErr(t, err).Status)

	_, err = f.svc.Transition(ctx, mentorActor, created.ID, "complete", dto.TransitionSessionRequest{})
	assert.Equal(t, http.StatusConflict, appErr(t, err).Status)

	confirmed, err := f.svc.Transition(ctx, mentorActor, created.ID, "confirm", dto.TransitionSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.SessionConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, []string{"student-1"}, f.publisher.last().Recipients)

	completed, err := f.svc.Transition(ctx, mentorActor, created.ID, "complete", dto.TransitionSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, completed.Status)
	assert.Equal(t, models.EventSessionCompleted, f.publisher.last().Type)

	_, err = f.svc.Transition(ctx, mentorActor, created.ID, "cancel", dto.TransitionSessionRequest{})
	assert.Equal(t, http.StatusConflict, appErr(t, err).Status)

	stored, err := f.sessions.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	assert.Equal(t, models.AuditActionSessionComplete, f.audit.logs[len(f.audit.logs)-1].Action)
}

func TestBookingServiceCancelNotifiesBothAndFreesSlot(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	created := f.book(t, "2024-03-04T09:00:00Z")

	cancelled, err := f.svc.Transition(ctx, studentActor, created.ID, "cancel", dto.TransitionSessionRequest{Reason: strPtr("sick")})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cancelled.Status)
	assert.Equal(t, "sick", *cancelled.CancelReason)
	assert.Equal(t, "student-1", *cancelled.CancelledBy)
	assert.ElementsMatch(t, []string{"mentor-1", "student-1"}, f.publisher.last().Recipients)

	_, err = f.svc.Create(ctx, policy.Actor{ID: "student-2", Role: models.RoleStudent}, bookingRequest("2024-03-04T09:00:00Z"))
	require.NoError(t, err)
}

func TestBookingServiceTransitionVisibility(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	created := f.book(t, "2024-03-04T09:00:00Z")

	outsider := policy.Actor{ID: "student-9", Role: models.RoleStudent}
	_, err := f.svc.Transition(ctx, outsider, created.ID, "cancel", dto.TransitionSessionRequest{})
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)

	_, err = f.svc.Get(ctx, outsider, created.ID)
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)

	_, err = f.svc.Transition(ctx, mentorActor, "missing", "confirm", dto.TransitionSessionRequest{})
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)

	_, err = f.svc.Transition(ctx, mentorActor, created.ID, "archive", dto.TransitionSessionRequest{})
	assert.Contains(t, appErr(t, err).Fields, "action")

	got, err := f.svc.Get(ctx, adminActor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestBookingServiceTransitionLosesRace(t *testing.T) {
	f := newBookingFixture()
	created := f.book(t, "2024-03-04T09:00:00Z")
	f.sessions.beforeUpdate = func(s *models.Session) { s.Status = models.SessionCancelled }

	_, err := f.svc.Transition(context.Background(), mentorActor, created.ID, "confirm", dto.TransitionSessionRequest{})
	assert.Equal(t, http.StatusConflict, appErr(t, err).Status)
}

func TestBookingServiceUpdate(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	created := f.book(t, "2024-03-04T09:00:00Z")

	updated, err := f.svc.Update(ctx, studentActor, created.ID, dto.UpdateSessionRequest{Location: strPtr("Room 4"), MentorID: strPtr("mentor-1")})
	require.NoError(t, err)
	assert.Equal(t, "Room 4", *updated.Location)

	_, err = f.svc.Update(ctx, studentActor, created.ID, dto.UpdateSessionRequest{SkillID: strPtr("rust"), StudentID: strPtr("student-2")})
	typed := appErr(t, err)
	assert.Equal(t, "cannot be changed after creation", typed.Fields["skill_id"])
	assert.Contains(t, typed.Fields, "student_id")

	_, err = f.svc.Transition(ctx, mentorActor, created.ID, "cancel", dto.TransitionSessionRequest{})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, studentActor, created.ID, dto.UpdateSessionRequest{Notes: strPtr("late")})
	assert.Equal(t, http.StatusConflict, appErr(t, err).Status)
}

func TestBookingServiceList(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.book(t, "2024-03-04T08:00:00Z")
	_, err := f.svc.Create(ctx, policy.Actor{ID: "student-2", Role: models.RoleStudent}, bookingRequest("2024-03-04T10:00:00Z"))
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, studentActor, dto.SessionListQuery{})
	require.NoError(t, err)
	assert.Len(t, mine.Sessions, 1)
	assert.Equal(t, 1, mine.Pagination.TotalCount)

	all, err := f.svc.List(ctx, adminActor, dto.SessionListQuery{Status: "pending", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all.Sessions, 1)
	assert.Equal(t, 2, all.Pagination.TotalCount)

	_, err = f.svc.List(ctx, studentActor, dto.SessionListQuery{Status: "archived"})
	typed := appErr(t, err)
	assert.Equal(t, http.StatusBadRequest, typed.Status)
	assert.Contains(t, typed.Fields, "status")

	for _, status := range []models.SessionStatus{models.SessionPending, models.SessionConfirmed, models.SessionCancelled, models.SessionCompleted} {
		_, err = f.svc.List(ctx, adminActor, dto.SessionListQuery{Status: string(status)})
		assert.NoError(t, err, string(status))
	}
}
