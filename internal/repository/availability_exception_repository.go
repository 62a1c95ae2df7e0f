package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

const availabilityExceptionColumns = `id, mentor_id, to_char(exception_date, 'YYYY-MM-DD') AS exception_date, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, kind, timezone, reason, created_at, updated_at`

// AvailabilityExceptionRepository persists dated availability exceptions.
type AvailabilityExceptionRepository struct {
	db *sqlx.DB
}

// NewAvailabilityExceptionRepository constructs the repository.
func NewAvailabilityExceptionRepository(db *sqlx.DB) *AvailabilityExceptionRepository {
	return &AvailabilityExceptionRepository{db: db}
}

// ListByMentor returns exceptions of the mentor, restricted to [fromDate, toDate] when both are set.
func (r *AvailabilityExceptionRepository) ListByMentor(ctx context.Context, mentorID, fromDate, toDate string) ([]models.AvailabilityException, error) {
	query := `SELECT ` + availabilityExceptionColumns + ` FROM availability_exceptions WHERE mentor_id = $1`
	args := []interface{}{mentorID}
	if fromDate != "" && toDate != "" {
		query += ` AND exception_date BETWEEN $2 AND $3`
		args = append(args, fromDate, toDate)
	}
	query += ` ORDER BY exception_date ASC, id ASC`

	var exceptions []models.AvailabilityException
	if err := r.db.SelectContext(ctx, &exceptions, query, args...); err != nil {
		return nil, fmt.Errorf("list availability exceptions: %w", err)
	}
	return exceptions, nil
}

// FindByID loads one exception owned by the mentor.
func (r *AvailabilityExceptionRepository) FindByID(ctx context.Context, mentorID, id string) (*models.AvailabilityException, error) {
	query := `SELECT ` + availabilityExceptionColumns + ` FROM availability_exceptions WHERE id = $1 AND mentor_id = $2`
	var exc models.AvailabilityException
	if err := r.db.GetContext(ctx, &exc, query, id, mentorID); err != nil {
		return nil, err
	}
	return &exc, nil
}

// Create inserts an exception.
func (r *AvailabilityExceptionRepository) Create(ctx context.Context, exc *models.AvailabilityException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exc.CreatedAt = now
	exc.UpdatedAt = now

	const query = `INSERT INTO availability_exceptions (id, mentor_id, exception_date, start_time, end_time, kind, timezone, reason, created_at, updated_at)
		VALUES (:id, :mentor_id, :exception_date, :start_time, :end_time, :kind, :timezone, :reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exc); err != nil {
		return fmt.Errorf("create availability exception: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an exception.
func (r *AvailabilityExceptionRepository) Update(ctx context.Context, exc *models.AvailabilityException) error {
	exc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availability_exceptions SET exception_date = :exception_date, start_time = :start_time, end_time = :end_time,
		kind = :kind, timezone = :timezone, reason = :reason, updated_at = :updated_at
		WHERE id = :id AND mentor_id = :mentor_id`
	result, err := r.db.NamedExecContext(ctx, query, exc)
	if err != nil {
		return fmt.Errorf("update availability exception: %w", err)
	}
	return expectAffected(result, "availability exception")
}

// Delete removes an exception owned by the mentor.
func (r *AvailabilityExceptionRepository) Delete(ctx context.Context, mentorID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = $1 AND mentor_id = $2`, id, mentorID)
	if err != nil {
		return fmt.Errorf("delete availability exception: %w", err)
	}
	return expectAffected(result, "availability exception")
}
