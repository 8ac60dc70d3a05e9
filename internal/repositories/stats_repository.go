package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/ideate-app/backend/internal/models"
)

// StatsRepository defines the interface for the engagement-event store
type StatsRepository interface {
	RecordEvent(ideaID, actorID, kind string) error
	Leaderboard(limit int) ([]models.LeaderboardEntry, error)
	EventCount(ideaID string) (int64, error)
}

type postgresStatsRepository struct {
	db *gorm.DB
}

// NewPostgresStatsRepository creates a new StatsRepository backed by GORM
func NewPostgresStatsRepository(db *gorm.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

// RecordEvent appends one engagement event. Callers fire this and forget it.
func (r *postgresStatsRepository) RecordEvent(ideaID, actorID, kind string) error {
	event := models.EngagementEvent{
		IdeaID:    ideaID,
		ActorID:   actorID,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	return r.db.Create(&event).Error
}

// Leaderboard ranks ideas by total engagement events
func (r *postgresStatsRepository) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := r.db.Model(&models.EngagementEvent{}).
		Select("idea_id, COUNT(*) as score").
		Group("idea_id").
		Order("score DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

// EventCount returns the total events recorded for one idea
func (r *postgresStatsRepository) EventCount(ideaID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.EngagementEvent{}).Where("idea_id = ?", ideaID).Count(&count).Error
	return count, err
}
