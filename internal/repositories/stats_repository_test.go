package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ideate-app/backend/internal/models"
)

func setupStatsDB(t *testing.T) StatsRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.EngagementEvent{}))
	// Isolate runs sharing the in-memory cache.
	require.NoError(t, db.Where("1 = 1").Delete(&models.EngagementEvent{}).Error)
	return NewPostgresStatsRepository(db)
}

func TestRecordEventAndCount(t *testing.T) {
	repo := setupStatsDB(t)

	require.NoError(t, repo.RecordEvent("idea-1", "actor-1", "view"))
	require.NoError(t, repo.RecordEvent("idea-1", "actor-2", "raise"))
	require.NoError(t, repo.RecordEvent("idea-2", "actor-1", "comment"))

	count, err := repo.EventCount("idea-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.EventCount("idea-3")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLeaderboardRanksByVolume(t *testing.T) {
	repo := setupStatsDB(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordEvent("idea-hot", "actor", "view"))
	}
	require.NoError(t, repo.RecordEvent("idea-warm", "actor", "raise"))
	require.NoError(t, repo.RecordEvent("idea-warm", "actor", "view"))
	require.NoError(t, repo.RecordEvent("idea-cold", "actor", "view"))

	entries, err := repo.Leaderboard(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LeaderboardEntry{IdeaID: "idea-hot", Score: 3}, entries[0])
	assert.Equal(t, models.LeaderboardEntry{IdeaID: "idea-warm", Score: 2}, entries[1])
}
