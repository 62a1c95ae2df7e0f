package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

const availabilityRuleColumns = `id, mentor_id, kind, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, starts_at, ends_at, timezone, active, created_at, updated_at`

// AvailabilityRuleRepository persists availability rules.
type AvailabilityRuleRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRuleRepository constructs the repository.
func NewAvailabilityRuleRepository(db *sqlx.DB) *AvailabilityRuleRepository {
	return &AvailabilityRuleRepository{db: db}
}

// ListByMentor returns the mentor's rules, optionally only the active ones.
func (r *AvailabilityRuleRepository) ListByMentor(ctx context.Context, mentorID string, activeOnly bool) ([]models.AvailabilityRule, error) {
	query := `SELECT ` + availabilityRuleColumns + ` FROM availability_rules WHERE mentor_id = $1`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, mentorID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// FindByID loads one rule owned by the mentor.
func (r *AvailabilityRuleRepository) FindByID(ctx context.Context, mentorID, id string) (*models.AvailabilityRule, error) {
	query := `SELECT ` + availabilityRuleColumns + ` FROM availability_rules WHERE id = $1 AND mentor_id = $2`
	var rule models.AvailabilityRule
	if err := r.db.GetContext(ctx, &rule, query, id, mentorID); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a rule.
func (r *AvailabilityRuleRepository) Create(ctx context.Context, rule *models.AvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	const query = `INSERT INTO availability_rules (id, mentor_id, kind, day_of_week, start_time, end_time, starts_at, ends_at, timezone, active, created_at, updated_at)
		VALUES (:id, :mentor_id, :kind, :day_of_week, :start_time, :end_time, :starts_at, :ends_at, :timezone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a rule.
func (r *AvailabilityRuleRepository) Update(ctx context.Context, rule *models.AvailabilityRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availability_rules SET kind = :kind, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
		starts_at = :starts_at, ends_at = :ends_at, timezone = :timezone, active = :active, updated_at = :updated_at
		WHERE id = :id AND mentor_id = :mentor_id`
	result, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	return expectAffected(result, "availability rule")
}

// Delete removes a rule owned by the mentor.
func (r *AvailabilityRuleRepository) Delete(ctx context.Context, mentorID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_rules WHERE id = $1 AND mentor_id = $2`, id, mentorID)
	if err != nil {
		return fmt.Errorf("delete availability rule: %w", err)
	}
	return expectAffected(result, "availability rule")
}

func expectAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
