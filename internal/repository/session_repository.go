package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

const sessionColumns = `id, mentor_id, student_id, skill_id, status, scheduled_at, duration_minutes, ends_at, location, notes, cancel_reason, cancelled_by, cancelled_at, confirmed_at, completed_at, created_at, updated_at`

// activeStatusCondition restricts a query to sessions that occupy the mentor's calendar.
var activeStatusCondition = func() string {
	quoted := make([]string, 0, len(models.ActiveSessionStatuses))
	for _, status := range models.ActiveSessionStatuses {
		quoted = append(quoted, "'"+string(status)+"'")
	}
	return "status IN (" + strings.Join(quoted, ", ") + ")"
}()

// SessionRepository persists sessions and owns the double-booking guard.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateExclusive inserts a session unless an active session of the same mentor overlaps it. The overlap
// re-check and the insert run in one transaction serialised per mentor by an advisory lock; the table's
// exclusion constraint rejects anything that still slips through. Both paths yield ErrSessionOverlap.
func (r *SessionRepository) CreateExclusive(ctx context.Context, session *models.Session) (err error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.ScheduledAt = session.ScheduledAt.UTC()
	session.EndsAt = session.ScheduledAt.Add(session.Duration())

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, session.MentorID); err != nil {
		return fmt.Errorf("lock mentor calendar: %w", translateWriteError(err))
	}

	overlapQuery := `SELECT id FROM sessions
WHERE mentor_id = $1 AND ` + activeStatusCondition + ` AND scheduled_at < $3 AND ends_at > $2
LIMIT 1`
	var existing string
	err = tx.GetContext(ctx, &existing, overlapQuery, session.MentorID, session.ScheduledAt, session.EndsAt)
	switch {
	case err == nil:
		return ErrSessionOverlap
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check session overlap: %w", err)
	}

	const insertQuery = `INSERT INTO sessions (id, mentor_id, student_id, skill_id, status, scheduled_at, duration_minutes, ends_at, location, notes, created_at, updated_at)
		VALUES (:id, :mentor_id, :student_id, :skill_id, :status, :scheduled_at, :duration_minutes, :ends_at, :location, :notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, session); err != nil {
		if translated := translateWriteError(err); errors.Is(translated, ErrSessionOverlap) {
			return translated
		}
		return fmt.Errorf("insert session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		if translated := translateWriteError(err); errors.Is(translated, ErrSessionOverlap) {
			return translated
		}
		return fmt.Errorf("commit create session tx: %w", err)
	}
	return nil
}

// FindByID loads a session.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListActiveOverlapping returns the mentor's pending and confirmed sessions intersecting [from, to).
func (r *SessionRepository) ListActiveOverlapping(ctx context.Context, mentorID string, from, to time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
WHERE mentor_id = $1 AND ` + activeStatusCondition + ` AND scheduled_at < $3 AND ends_at > $2
ORDER BY scheduled_at ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, mentorID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list overlapping sessions: %w", err)
	}
	return sessions, nil
}

// List returns sessions matching the filter with the total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	baseQuery := `FROM sessions WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ParticipantID != "" {
		conditions = append(conditions, fmt.Sprintf("(mentor_id = $%d OR student_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.ParticipantID)
	}
	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("mentor_id = $%d", len(args)+1))
		args = append(args, filter.MentorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("ends_at > $%d", len(args)+1))
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_at < $%d", len(args)+1))
		args = append(args, filter.To.UTC())
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY scheduled_at %s, id ASC LIMIT %d OFFSET %d", sessionColumns, baseQuery, sortOrder, pageSize, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// UpdateStatus persists a transition only if the stored status still equals expected. A lost race yields
// ErrStaleStatus.
func (r *SessionRepository) UpdateStatus(ctx context.Context, session *models.Session, expected models.SessionStatus) error {
	const query = `UPDATE sessions SET status = $1, confirmed_at = $2, completed_at = $3, cancelled_at = $4, cancelled_by = $5,
	cancel_reason = $6, updated_at = $7 WHERE id = $8 AND status = $9`
	result, err := r.db.ExecContext(ctx, query,
		session.Status, session.ConfirmedAt, session.CompletedAt, session.CancelledAt, session.CancelledBy,
		session.CancelReason, session.UpdatedAt, session.ID, expected)
	if err != nil {
		return fmt.Errorf("update session status: %w", translateWriteError(err))
	}
	return staleIfUnaffected(result)
}

// UpdateDetails persists location and notes while the session is still active.
func (r *SessionRepository) UpdateDetails(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	query := `UPDATE sessions SET location = $1, notes = $2, updated_at = $3 WHERE id = $4 AND ` + activeStatusCondition
	result, err := r.db.ExecContext(ctx, query, session.Location, session.Notes, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("update session details: %w", err)
	}
	return staleIfUnaffected(result)
}

func staleIfUnaffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}
