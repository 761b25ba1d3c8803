package statstypes

import (
	"math"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// Metric selects the leaderboard ordering.
type Metric string

const (
	MetricContributions       Metric = "contributions"
	MetricHighestStreak       Metric = "highest_streak"
	MetricAccuracy            Metric = "accuracy"
	MetricTotalNumbersCounted Metric = "total_numbers_counted"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricContributions, MetricHighestStreak, MetricAccuracy, MetricTotalNumbersCounted:
		return true
	}
	return false
}

// UserStats are one user's aggregates in one channel.
type UserStats struct {
	GuildID             sharedtypes.GuildID   `json:"guild_id"`
	ChannelID           sharedtypes.ChannelID `json:"channel_id"`
	UserID              sharedtypes.UserID    `json:"user_id"`
	Contributions       int64                 `json:"contributions"`
	CurrentStreak       int64                 `json:"current_streak"`
	HighestStreak       int64                 `json:"highest_streak"`
	TotalNumbersCounted int64                 `json:"total_numbers_counted"`
	ErrorsCount         int64                 `json:"errors_count"`
	Accuracy            float64               `json:"accuracy"`
	TotalTimeSpent      time.Duration         `json:"total_time_spent"`
	LastContribution    *time.Time            `json:"last_contribution,omitempty"`
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank                int                `json:"rank"`
	UserID              sharedtypes.UserID `json:"user_id"`
	Contributions       int64              `json:"contributions"`
	HighestStreak       int64              `json:"highest_streak"`
	Accuracy            float64            `json:"accuracy"`
	TotalNumbersCounted int64              `json:"total_numbers_counted"`
	Score               int64              `json:"score,omitempty"`
}

// Snapshot is a persisted, score-ordered leaderboard.
type Snapshot struct {
	ID        int64                 `json:"id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	TakenAt   time.Time             `json:"taken_at"`
	Entries   []LeaderboardEntry    `json:"entries"`
}

// ChannelSummary aggregates every user of a channel.
type ChannelSummary struct {
	Participants       int                 `json:"participants"`
	TotalContributions int64               `json:"total_contributions"`
	TotalErrors        int64               `json:"total_errors"`
	TopContributor     *sharedtypes.UserID `json:"top_contributor,omitempty"`
	TopContributions   int64               `json:"top_contributions"`
}

// RecordSuccess applies an accepted submission. increment is the channel's
// step; its magnitude is what the user counted.
func (s *UserStats) RecordSuccess(increment int64, at time.Time) {
	s.Contributions++
	s.CurrentStreak++
	if s.CurrentStreak > s.HighestStreak {
		s.HighestStreak = s.CurrentStreak
	}
	if increment < 0 {
		increment = -increment
	}
	s.TotalNumbersCounted += increment
	if s.LastContribution != nil && at.After(*s.LastContribution) {
		s.TotalTimeSpent += at.Sub(*s.LastContribution)
	}
	last := at
	s.LastContribution = &last
	s.recomputeAccuracy()
}

// RecordError applies a wrong submission.
func (s *UserStats) RecordError() {
	s.CurrentStreak = 0
	s.ErrorsCount++
	s.recomputeAccuracy()
}

func (s *UserStats) recomputeAccuracy() {
	total := s.Contributions + s.ErrorsCount
	if total == 0 {
		s.Accuracy = 0
		return
	}
	s.Accuracy = float64(s.Contributions) / float64(total) * 100
}

// Score weighs a user for persisted snapshots.
func Score(contributions, highestStreak int64, accuracy float64) int64 {
	return contributions*50 + highestStreak*30 + int64(math.Round(accuracy*2))
}
