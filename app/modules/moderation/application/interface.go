package moderationservice

import (
	"context"
	"time"

	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Service is the anti-cheat and punishment engine.
type Service interface {
	// ShouldIgnore reports whether a member's roles exempt them from counting.
	ShouldIgnore(roles []sharedtypes.RoleID, cfg settingstypes.ModerationConfig) bool
	IsBanned(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (bool, error)

	// TrackWrongCount joins the caller's transaction when db is non-nil.
	TrackWrongCount(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, windowHours int) (int, error)
	ApplyTieredPunishment(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, count int) (*moderationtypes.AppliedPunishment, error)
	Escalate(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, count int, cfg settingstypes.ModerationConfig) (*moderationtypes.AppliedPunishment, error)

	BanUser(ctx context.Context, req moderationtypes.BanRequest) (*moderationtypes.Ban, error)
	UnbanUser(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID, unbannedBy sharedtypes.UserID) error

	SetTieredPunishment(ctx context.Context, tier moderationtypes.TieredPunishment) (*moderationtypes.TieredPunishment, error)
	RemoveTieredPunishment(ctx context.Context, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID, triggerCount int) error
	ListTieredPunishments(ctx context.Context, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID) ([]moderationtypes.TieredPunishment, error)

	HandleNonNumber(ctx context.Context, msg moderationtypes.Message, cfg settingstypes.ModerationConfig) (moderationtypes.ViolationOutcome, error)
	HandleEdit(ctx context.Context, msg moderationtypes.Message, cfg settingstypes.ModerationConfig, lastAccepted int64) (moderationtypes.ViolationOutcome, error)

	GetViolationStats(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) (moderationtypes.ViolationStats, error)

	// PurgeChannel returns the users whose ban entries were removed so the
	// caller can invalidate them after commit.
	PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]sharedtypes.UserID, error)
	InvalidateBans(ctx context.Context, channelID sharedtypes.ChannelID, userIDs ...sharedtypes.UserID) error
}
