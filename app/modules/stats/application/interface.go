package statsservice

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/uptrace/bun"
)

// Service maintains per-user counting aggregates.
//
// OnSuccess, OnError and PurgeChannel join the caller's transaction when db
// is non-nil; the caller invalidates with Invalidate after commit.
type Service interface {
	OnSuccess(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, increment int64, at time.Time) error
	OnError(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error
	Invalidate(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error

	GetUserStats(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statstypes.UserStats, error)
	Leaderboard(ctx context.Context, channelID sharedtypes.ChannelID, metric statstypes.Metric, limit int) ([]statstypes.LeaderboardEntry, error)
	Rank(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error)
	Summary(ctx context.Context, channelID sharedtypes.ChannelID) (statstypes.ChannelSummary, error)

	SnapshotLeaderboard(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error)
	SnapshotAll(ctx context.Context) (int, error)
	LatestSnapshot(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error)

	PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error
}
