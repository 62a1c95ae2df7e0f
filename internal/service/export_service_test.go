package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/models"
)

func newExportFixture() (*ExportService, *fakeSessionStore) {
	mentors := newFakeMentors()
	mentors.add("mentor-1", "Europe/Paris", "go")
	store := newFakeSessionStore()
	store.put(models.Session{
		ID: "s-1", MentorID: "mentor-1", StudentID: "student-1", SkillID: "go", Status: models.SessionConfirmed,
		ScheduledAt: mustTime("2024-03-04T08:00:00Z"), DurationMinutes: 60, Location: strPtr("Room 4"),
	})
	store.put(models.Session{
		ID: "s-2", MentorID: "mentor-1", StudentID: "student-2", SkillID: "go", Status: models.SessionPending,
		ScheduledAt: mustTime("2024-03-11T09:00:00Z"), DurationMinutes: 30, Notes: strPtr("intro, basics"),
	})
	store.put(models.Session{
		ID: "s-3", MentorID: "mentor-2", StudentID: "student-1", SkillID: "go", Status: models.SessionPending,
		ScheduledAt: mustTime("2024-03-05T09:00:00Z"), DurationMinutes: 30,
	})
	return NewExportService(store, mentors.directory(), nil), store
}

func TestExportServiceMentorAgendaCSV(t *testing.T) {
	svc, _ := newExportFixture()

	doc, err := svc.MentorAgenda(context.Background(), mentorActor, "mentor-1", dto.AgendaExportQuery{
		Format: "csv",
		From:   mustTime("2024-03-01T00:00:00Z"),
		To:     mustTime("2024-04-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", doc.ContentType)
	assert.Equal(t, "agenda-mentor-1-20240301.csv", doc.Filename)

	lines := strings.Split(strings.TrimSpace(string(doc.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Start,End,Duration,Status,Student,Skill,Location,Notes", lines[0])
	assert.Equal(t, "2024-03-04 09:00,2024-03-04 10:00,60,confirmed,student-1,go,Room 4,", lines[1])
	assert.Equal(t, `2024-03-11 10:00,2024-03-11 10:30,30,pending,student-2,go,,"intro, basics"`, lines[2])
}

func TestExportServiceMentorAgendaPDF(t *testing.T) {
	svc, _ := newExportFixture()

	doc, err := svc.MentorAgenda(context.Background(), adminActor, "mentor-1", dto.AgendaExportQuery{
		Format: "pdf",
		From:   mustTime("2024-03-01T00:00:00Z"),
		To:     mustTime("2024-04-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Content), "%PDF"))
}

func TestExportServiceMentorAgendaRejections(t *testing.T) {
	svc, _ := newExportFixture()
	ctx := context.Background()
	window := dto.AgendaExportQuery{From: mustTime("2024-03-01T00:00:00Z"), To: mustTime("2024-04-01T00:00:00Z")}

	_, err := svc.MentorAgenda(ctx, studentActor, "mentor-1", window)
	assert.Equal(t, http.StatusForbidden, appErr(t, err).Status)

	badFormat := window
	badFormat.Format = "xlsx"
	_, err = svc.MentorAgenda(ctx, mentorActor, "mentor-1", badFormat)
	assert.Contains(t, appErr(t, err).Fields, "format")

	inverted := dto.AgendaExportQuery{From: window.To, To: window.From}
	_, err = svc.MentorAgenda(ctx, mentorActor, "mentor-1", inverted)
	assert.Contains(t, appErr(t, err).Fields, "to")
}
