package service

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/repository"
)

type countingMentors struct {
	*fakeMentors
	loads int32
}

func (c *countingMentors) FindProfile(ctx context.Context, mentorID string) (*models.MentorProfile, error) {
	atomic.AddInt32(&c.loads, 1)
	return c.fakeMentors.FindProfile(ctx, mentorID)
}

func newCachedDirectory(t *testing.T) (*MentorDirectory, *countingMentors, *MetricsService) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewCacheRepository(client, nil), metrics, time.Minute, "test", nil, true)
	mentors := &countingMentors{fakeMentors: newFakeMentors()}
	mentors.add("mentor-1", "Europe/Paris", "go", "sql")
	return NewMentorDirectory(mentors, cache, time.Minute, "UTC", nil), mentors, metrics
}

func TestMentorDirectoryCachesProfile(t *testing.T) {
	dir, repo, metrics := newCachedDirectory(t)
	ctx := context.Background()

	ok, err := dir.HasSkill(ctx, "mentor-1", "sql")
	require.NoError(t, err)
	assert.True(t, ok)

	profile, err := dir.Profile(ctx, "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", *profile.Timezone)
	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.loads))
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheHits)

	dir.Invalidate(ctx, "mentor-1")
	_, err = dir.Profile(ctx, "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&repo.loads))
}

func TestMentorDirectoryUnknownMentor(t *testing.T) {
	dir, _, _ := newCachedDirectory(t)

	_, err := dir.HasSkill(context.Background(), "ghost", "go")
	assert.Equal(t, http.StatusNotFound, appErr(t, err).Status)
}

func TestMentorDirectoryLocationFallsBack(t *testing.T) {
	dir := NewMentorDirectory(newFakeMentors(), nil, 0, "America/New_York", nil)

	assert.Equal(t, "America/New_York", dir.Location(models.MentorProfile{UserID: "m"}).String())
	assert.Equal(t, "Asia/Tokyo", dir.Location(models.MentorProfile{UserID: "m", Timezone: strPtr("Asia/Tokyo")}).String())
	assert.Equal(t, "America/New_York", dir.Location(models.MentorProfile{UserID: "m", Timezone: strPtr("Nowhere/City")}).String())
}
