package moderationdb

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for moderation persistence.
type Repository interface {
	// Wrong-count windows
	FindOpenWindowForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, horizon time.Time) (*WrongCountWindow, error)
	InsertWindow(ctx context.Context, db bun.IDB, window *WrongCountWindow) error
	UpdateWindow(ctx context.Context, db bun.IDB, window *WrongCountWindow) error

	// Tiered punishments
	UpsertTier(ctx context.Context, db bun.IDB, tier *TieredPunishment) error
	DeleteTier(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID, triggerCount int) error
	ListTiers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID) ([]TieredPunishment, error)
	FindTiers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, triggerCount int) ([]TieredPunishment, error)

	// Applied punishments
	InsertApplied(ctx context.Context, db bun.IDB, punishment *AppliedPunishment) error
	CountApplied(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, since *time.Time) (int64, error)

	// Bans
	InsertBan(ctx context.Context, db bun.IDB, ban *UserBan) error
	LatestBan(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*UserBan, error)
	DeactivateBans(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error)
	DeactivateBan(ctx context.Context, db bun.IDB, id int64) error
	CountActiveBans(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, now time.Time) (int, error)
	ListBannedUsers(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]sharedtypes.UserID, error)

	// DeleteByChannel removes every moderation row tied to the channel,
	// including channel-specific tiers.
	DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error
}
