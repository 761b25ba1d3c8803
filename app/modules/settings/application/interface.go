package settingsservice

import (
	"context"

	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Service resolves and updates channel configuration.
type Service interface {
	// GetEffectiveConfig merges channel, guild and fallback values. It fails
	// with ErrConfigNotResolvable when the channel has no settings row.
	GetEffectiveConfig(ctx context.Context, channelID sharedtypes.ChannelID) (settingstypes.EffectiveConfig, error)
	GetChannelOverrides(ctx context.Context, channelID sharedtypes.ChannelID) (settingstypes.Overrides, error)
	UpdateChannelConfig(ctx context.Context, channelID sharedtypes.ChannelID, patch settingstypes.Patch) (settingstypes.EffectiveConfig, error)
	UpdateGuildDefaults(ctx context.Context, guildID sharedtypes.GuildID, patch settingstypes.Patch) error

	// EnsureChannel and DeleteChannel join the caller's transaction when db
	// is non-nil; the caller then invalidates after commit.
	EnsureChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error
	DeleteChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error
	InvalidateChannel(ctx context.Context, channelID sharedtypes.ChannelID) error
}
