package statsdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/uptrace/bun"
)

// UserStats is one user's aggregates in one channel.
type UserStats struct {
	bun.BaseModel `bun:"table:user_stats,alias:us"`

	ChannelID           sharedtypes.ChannelID `bun:"channel_id,pk"`
	UserID              sharedtypes.UserID    `bun:"user_id,pk"`
	GuildID             sharedtypes.GuildID   `bun:"guild_id,notnull"`
	Contributions       int64                 `bun:"contributions,notnull"`
	CurrentStreak       int64                 `bun:"current_streak,notnull"`
	HighestStreak       int64                 `bun:"highest_streak,notnull"`
	TotalNumbersCounted int64                 `bun:"total_numbers_counted,notnull"`
	ErrorsCount         int64                 `bun:"errors_count,notnull"`
	Accuracy            float64               `bun:"accuracy,notnull"`
	TotalTimeSpentMS    int64                 `bun:"total_time_spent_ms,notnull"`
	LastContribution    *time.Time            `bun:"last_contribution"`
	CreatedAt           time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time             `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// LeaderboardSnapshot is a persisted score-ordered leaderboard.
type LeaderboardSnapshot struct {
	bun.BaseModel `bun:"table:leaderboard_snapshots,alias:ls"`

	ID        int64                         `bun:"id,pk,autoincrement"`
	ChannelID sharedtypes.ChannelID         `bun:"channel_id,notnull"`
	TakenAt   time.Time                     `bun:"taken_at,notnull"`
	Entries   []statstypes.LeaderboardEntry `bun:"entries,type:jsonb"`
}

// Summary is the aggregate row behind ChannelSummary.
type Summary struct {
	Participants       int   `bun:"participants"`
	TotalContributions int64 `bun:"total_contributions"`
	TotalErrors        int64 `bun:"total_errors"`
}

// RankKey is the composite ordering used by Rank.
type RankKey struct {
	Contributions int64
	HighestStreak int64
	Accuracy      float64
}
