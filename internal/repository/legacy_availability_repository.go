package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// LegacyAvailabilityRepository persists the weekly-only availability rows kept for the migration window.
type LegacyAvailabilityRepository struct {
	db *sqlx.DB
}

// NewLegacyAvailabilityRepository constructs the repository.
func NewLegacyAvailabilityRepository(db *sqlx.DB) *LegacyAvailabilityRepository {
	return &LegacyAvailabilityRepository{db: db}
}

// ListByMentor returns the mentor's legacy rows ordered by weekday.
func (r *LegacyAvailabilityRepository) ListByMentor(ctx context.Context, mentorID string) ([]models.LegacyAvailability, error) {
	const query = `SELECT id, mentor_id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, created_at
FROM legacy_availabilities WHERE mentor_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var rows []models.LegacyAvailability
	if err := r.db.SelectContext(ctx, &rows, query, mentorID); err != nil {
		return nil, fmt.Errorf("list legacy availabilities: %w", err)
	}
	return rows, nil
}

// Create inserts a legacy row.
func (r *LegacyAvailabilityRepository) Create(ctx context.Context, row *models.LegacyAvailability) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO legacy_availabilities (id, mentor_id, day_of_week, start_time, end_time, created_at)
		VALUES (:id, :mentor_id, :day_of_week, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create legacy availability: %w", err)
	}
	return nil
}

// Delete removes a legacy row owned by the mentor.
func (r *LegacyAvailabilityRepository) Delete(ctx context.Context, mentorID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM legacy_availabilities WHERE id = $1 AND mentor_id = $2`, id, mentorID)
	if err != nil {
		return fmt.Errorf("delete legacy availability: %w", err)
	}
	return expectAffected(result, "legacy availability")
}
