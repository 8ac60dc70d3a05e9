package models

import "time"

// EngagementEvent is one interaction with an idea, appended to the PostgreSQL
// stats store. The leaderboard aggregates over these rows.
type EngagementEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	IdeaID    string    `json:"idea_id" gorm:"size:24;index"`
	ActorID   string    `json:"actor_id" gorm:"size:24;index"`
	Kind      string    `json:"kind" gorm:"size:16;index"` // view, raise, comment, reply
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// LeaderboardEntry ranks an idea by its engagement volume.
type LeaderboardEntry struct {
	IdeaID string `json:"idea_id"`
	Score  int64  `json:"score"`
}
