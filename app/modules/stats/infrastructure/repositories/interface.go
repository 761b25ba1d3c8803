package statsdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for stats persistence.
type Repository interface {
	// GetForUpdate reads and row-locks a user's stats.
	GetForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*UserStats, error)
	Get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*UserStats, error)
	Upsert(ctx context.Context, db bun.IDB, stats *UserStats) error

	// Leaderboard orders a channel's rows by orderExpr, best first.
	Leaderboard(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, orderExpr string, limit int) ([]UserStats, error)
	// CountAhead counts rows strictly ahead of key in the composite order.
	CountAhead(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, key RankKey) (int, error)
	Summary(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*Summary, error)
	ListByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]UserStats, error)
	ListChannels(ctx context.Context, db bun.IDB) ([]sharedtypes.ChannelID, error)

	InsertSnapshot(ctx context.Context, db bun.IDB, snapshot *LeaderboardSnapshot) error
	LatestSnapshot(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*LeaderboardSnapshot, error)

	// DeleteByChannel removes stats and snapshots of a channel.
	DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error
}
