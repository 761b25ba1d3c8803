package settingsdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for settings persistence.
type Repository interface {
	GetChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*ChannelSettings, error)
	GetGuild(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (*GuildSettings, error)

	// InsertChannel creates the channel row if it does not exist yet and
	// reports whether it did.
	InsertChannel(ctx context.Context, db bun.IDB, row *ChannelSettings) (bool, error)
	UpdateChannel(ctx context.Context, db bun.IDB, row *ChannelSettings) error
	DeleteChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error

	// UpsertGuild writes every override column of the guild row.
	UpsertGuild(ctx context.Context, db bun.IDB, row *GuildSettings) error
}
