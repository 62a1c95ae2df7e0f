package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/availability"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

type mentorRepository interface {
	FindProfile(ctx context.Context, mentorID string) (*models.MentorProfile, error)
	ListSkillIDs(ctx context.Context, mentorID string) ([]string, error)
}

// mentorEntry is the cached view of a mentor.
type mentorEntry struct {
	Profile models.MentorProfile `json:"profile"`
	Skills  []string             `json:"skills"`
}

// MentorDirectory answers profile and skill questions about mentors, backed by the profile tables and an
// optional Redis cache.
type MentorDirectory struct {
	repo     mentorRepository
	cache    *CacheService
	ttl      time.Duration
	fallback *time.Location
	logger   *zap.Logger
}

// NewMentorDirectory constructs the directory. A nil cache disables caching; defaultTimezone applies to
// mentors whose profile has none.
func NewMentorDirectory(repo mentorRepository, cache *CacheService, ttl time.Duration, defaultTimezone string, logger *zap.Logger) *MentorDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentorDirectory{
		repo:     repo,
		cache:    cache,
		ttl:      ttl,
		fallback: availability.Location(defaultTimezone, time.UTC),
		logger:   logger,
	}
}

// Profile returns the mentor's profile or a not-found error when the user is not a mentor.
func (d *MentorDirectory) Profile(ctx context.Context, mentorID string) (*models.MentorProfile, error) {
	entry, err := d.load(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	profile := entry.Profile
	return &profile, nil
}

// HasSkill reports whether the mentor teaches skillID.
func (d *MentorDirectory) HasSkill(ctx context.Context, mentorID, skillID string) (bool, error) {
	entry, err := d.load(ctx, mentorID)
	if err != nil {
		return false, err
	}
	for _, id := range entry.Skills {
		if id == skillID {
			return true, nil
		}
	}
	return false, nil
}

// Location returns the timezone used for the mentor's legacy rows and untimed exceptions.
func (d *MentorDirectory) Location(profile models.MentorProfile) *time.Location {
	return availability.ProfileLocation(profile, d.fallback)
}

// Invalidate drops the cached entry of a mentor.
func (d *MentorDirectory) Invalidate(ctx context.Context, mentorID string) {
	if err := d.cache.Invalidate(ctx, d.cache.Key("mentor", mentorID)); err != nil {
		d.logger.Warn("mentor cache invalidation failed", zap.String("mentor_id", mentorID), zap.Error(err))
	}
}

func (d *MentorDirectory) load(ctx context.Context, mentorID string) (*mentorEntry, error) {
	key := d.cache.Key("mentor", mentorID)
	var cached mentorEntry
	if hit, err := d.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	profile, err := d.repo.FindProfile(ctx, mentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor profile")
	}
	skills, err := d.repo.ListSkillIDs(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor skills")
	}

	entry := &mentorEntry{Profile: *profile, Skills: skills}
	_ = d.cache.Set(ctx, key, entry, d.ttl)
	return entry, nil
}
