package countingdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// CountingChannel is a channel's counting progress.
type CountingChannel struct {
	bun.BaseModel `bun:"table:counting_channels,alias:cc"`

	ChannelID         sharedtypes.ChannelID `bun:"channel_id,pk"`
	GuildID           sharedtypes.GuildID   `bun:"guild_id,notnull"`
	CurrentNumber     int64                 `bun:"current_number,notnull"`
	Increment         int64                 `bun:"increment,notnull"`
	StartNumber       int64                 `bun:"start_number,notnull"`
	LastContributorID sharedtypes.UserID    `bun:"last_contributor_id,nullzero"`
	LastMessageID     sharedtypes.MessageID `bun:"last_message_id,nullzero"`
	HighestNumber     int64                 `bun:"highest_number,notnull"`
	HighestReachedAt  *time.Time            `bun:"highest_reached_at"`
	TotalCounts       int64                 `bun:"total_counts,notnull"`
	IsActive          bool                  `bun:"is_active,notnull"`
	CreatedAt         time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time             `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// SavePoint is a named snapshot of a channel's current number.
type SavePoint struct {
	bun.BaseModel `bun:"table:save_points,alias:sp"`

	ID        int64                 `bun:"id,pk,autoincrement"`
	ChannelID sharedtypes.ChannelID `bun:"channel_id,notnull"`
	Name      string                `bun:"name,notnull"`
	Number    int64                 `bun:"number,notnull"`
	CreatedBy sharedtypes.UserID    `bun:"created_by,nullzero"`
	CreatedAt time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// AdvanceParams moves a channel from Prev to Next for one accepted
// submission.
type AdvanceParams struct {
	ChannelID sharedtypes.ChannelID
	Prev      int64
	Next      int64
	UserID    sharedtypes.UserID
	MessageID sharedtypes.MessageID
	At        time.Time
}
