package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(newTestDatabase(t).DB)

	for _, r := range []struct {
		user  string
		score int
	}{
		{"u1", 100},
		{"u2", 300},
		{"u1", 250},
		{"u3", 250},
	} {
		created, err := repo.CreateResult(ctx, r.user, r.score)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, r.score, created.Score)
	}

	top, err := repo.GetTopResults(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 4)
	got := make([][2]interface{}, 0, len(top))
	for _, r := range top {
		got = append(got, [2]interface{}{r.UserID, r.Score})
		assert.False(t, r.CreatedAt.IsZero())
	}
	assert.Equal(t, [][2]interface{}{{"u2", 300}, {"u1", 250}, {"u3", 250}, {"u1", 100}}, got)
	for i, r := range top {
		assert.Equal(t, i+1, r.Rank)
	}

	top, err = repo.GetTopResults(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	best, err := repo.GetUserBestScore(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 250, best.Score)

	rank, err := repo.GetUserRanking(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, rank)
	assert.Equal(t, 2, rank.Rank)
	assert.Equal(t, 250, rank.Score)

	// 同点なら先に記録した方が上位
	rank, err = repo.GetUserRanking(ctx, "u3")
	require.NoError(t, err)
	require.NotNil(t, rank)
	assert.Equal(t, 3, rank.Rank)
}

func TestResultRepositoryNoRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(newTestDatabase(t).DB)

	best, err := repo.GetUserBestScore(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, best)

	rank, err := repo.GetUserRanking(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, rank)

	top, err := repo.GetTopResults(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.NotNil(t, top)
}
