package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// MentorRepository reads the mentor profile data owned by the profile service.
type MentorRepository struct {
	db *sqlx.DB
}

// NewMentorRepository constructs the repository.
func NewMentorRepository(db *sqlx.DB) *MentorRepository {
	return &MentorRepository{db: db}
}

// FindProfile returns the mentor's profile or sql.ErrNoRows.
func (r *MentorRepository) FindProfile(ctx context.Context, mentorID string) (*models.MentorProfile, error) {
	const query = `SELECT user_id, timezone FROM mentor_profiles WHERE user_id = $1`
	var profile models.MentorProfile
	if err := r.db.GetContext(ctx, &profile, query, mentorID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListSkillIDs returns the skills the mentor registered as teachable.
func (r *MentorRepository) ListSkillIDs(ctx context.Context, mentorID string) ([]string, error) {
	const query = `SELECT skill_id FROM mentor_skills WHERE mentor_id = $1 ORDER BY skill_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, mentorID); err != nil {
		return nil, fmt.Errorf("list mentor skills: %w", err)
	}
	return ids, nil
}
