package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, nil), srv
}

type cachedProfile struct {
	Timezone string   `json:"timezone"`
	Skills   []string `json:"skills"`
}

func TestCacheRepositorySetGetRoundTrip(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "mentor:1", cachedProfile{Timezone: "Europe/Paris", Skills: []string{"go"}}, time.Minute))

	var got cachedProfile
	require.NoError(t, repo.Get(ctx, "mentor:1", &got))
	assert.Equal(t, "Europe/Paris", got.Timezone)

	srv.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "mentor:1", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryMissAndCorruptEntries(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	var got cachedProfile
	assert.ErrorIs(t, repo.Get(ctx, "absent", &got), appErrors.ErrCacheMiss)

	require.NoError(t, srv.Set("broken", "{not json"))
	assert.ErrorIs(t, repo.Get(ctx, "broken", &got), appErrors.ErrCacheMiss)
	assert.False(t, srv.Exists("broken"))
}

func TestCacheRepositoryDelete(t *testing.T) {
	repo, srv := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "mb:mentor:1:profile", 1, 0))
	require.NoError(t, repo.Set(ctx, "mb:mentor:1:skills", 2, 0))
	require.NoError(t, repo.Set(ctx, "mb:mentor:2:profile", 3, 0))

	require.NoError(t, repo.DeleteByPattern(ctx, "mb:mentor:1:*"))
	assert.False(t, srv.Exists("mb:mentor:1:profile"))
	assert.False(t, srv.Exists("mb:mentor:1:skills"))
	assert.True(t, srv.Exists("mb:mentor:2:profile"))

	require.NoError(t, repo.Delete(ctx, "mb:mentor:2:profile"))
	assert.False(t, srv.Exists("mb:mentor:2:profile"))
	assert.NoError(t, repo.Ping(ctx))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()
	var dest int
	assert.ErrorIs(t, repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, repo.Close())
}
