package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
)

func TestRateLimitRepo_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateLimitRepo(db)
	ctx := context.Background()

	fetched := time.Date(2026, 3, 1, 12, 0, 0, 123000000, time.UTC)
	reset := fetched.Add(45 * time.Minute)

	err := repo.Save(ctx, "alice", []model.RateLimitSnapshot{
		{Category: model.RateLimitSearch, Limit: 30, Remaining: 29, Used: 1, ResetAt: reset, FetchedAt: fetched},
		{Category: model.RateLimitCore, Limit: 5000, Remaining: 4000, Used: 1000, ResetAt: reset, FetchedAt: fetched},
	})
	require.NoError(t, err)

	got, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.RateLimitCore, got[0].Category)
	assert.Equal(t, 5000, got[0].Limit)
	assert.Equal(t, 4000, got[0].Remaining)
	assert.Equal(t, 1000, got[0].Used)
	assert.True(t, reset.Equal(got[0].ResetAt))
	assert.True(t, fetched.Equal(got[0].FetchedAt))
	assert.Equal(t, model.RateLimitSearch, got[1].Category)
}

func TestRateLimitRepo_SaveReplacesCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateLimitRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, "alice", []model.RateLimitSnapshot{
		{Category: model.RateLimitCore, Limit: 5000, Remaining: 10, ResetAt: now, FetchedAt: now},
	}))
	require.NoError(t, repo.Save(ctx, "alice", []model.RateLimitSnapshot{
		{Category: model.RateLimitCore, Limit: 5000, Remaining: 4999, ResetAt: now, FetchedAt: now},
	}))

	got, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4999, got[0].Remaining)
}

func TestRateLimitRepo_LoadEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateLimitRepo(db)

	require.NoError(t, repo.Save(context.Background(), "alice", nil))

	got, err := repo.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRateLimitRepo_ScopedToLogin(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRateLimitRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, "alice", []model.RateLimitSnapshot{
		{Category: model.RateLimitCore, Limit: 5000, Remaining: 0, ResetAt: now.Add(time.Hour), FetchedAt: now},
	}))

	got, err := repo.Load(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, got, "another login's quota is never returned")

	require.NoError(t, repo.Save(ctx, "bob", []model.RateLimitSnapshot{
		{Category: model.RateLimitCore, Limit: 5000, Remaining: 4321, ResetAt: now.Add(time.Hour), FetchedAt: now},
	}))

	got, err = repo.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got, "saving for bob drops alice's rows")

	got, err = repo.Load(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4321, got[0].Remaining)
}
