package moderationdb

import (
	"time"

	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// WrongCountWindow is a rolling violation bucket for one user in one channel.
type WrongCountWindow struct {
	bun.BaseModel `bun:"table:wrong_count_windows,alias:wcw"`

	ID          int64                 `bun:"id,pk,autoincrement"`
	ChannelID   sharedtypes.ChannelID `bun:"channel_id,notnull"`
	UserID      sharedtypes.UserID    `bun:"user_id,notnull"`
	WindowStart time.Time             `bun:"window_start,notnull"`
	LastWrongAt time.Time             `bun:"last_wrong_at,notnull"`
	Count       int                   `bun:"count,notnull"`
}

// TieredPunishment maps a violation count to an action. A NULL channel_id
// row applies guild-wide.
type TieredPunishment struct {
	bun.BaseModel `bun:"table:tiered_punishments,alias:tp"`

	ID              int64                  `bun:"id,pk,autoincrement"`
	GuildID         sharedtypes.GuildID    `bun:"guild_id,notnull"`
	ChannelID       *sharedtypes.ChannelID `bun:"channel_id"`
	TriggerCount    int                    `bun:"trigger_count,notnull"`
	Action          moderationtypes.Action `bun:"action,notnull"`
	DurationMinutes int                    `bun:"duration_minutes,notnull"`
	RoleID          *sharedtypes.RoleID    `bun:"role_id"`
	CreatedAt       time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// AppliedPunishment records an executed punishment.
type AppliedPunishment struct {
	bun.BaseModel `bun:"table:applied_punishments,alias:ap"`

	ID              int64                  `bun:"id,pk,autoincrement"`
	GuildID         sharedtypes.GuildID    `bun:"guild_id,notnull"`
	ChannelID       sharedtypes.ChannelID  `bun:"channel_id,notnull"`
	UserID          sharedtypes.UserID     `bun:"user_id,notnull"`
	Action          moderationtypes.Action `bun:"action,notnull"`
	DurationMinutes int                    `bun:"duration_minutes,notnull"`
	RoleID          *sharedtypes.RoleID    `bun:"role_id"`
	TriggerCount    int                    `bun:"trigger_count,notnull"`
	Tiered          bool                   `bun:"tiered,notnull"`
	Reason          string                 `bun:"reason,notnull"`
	AppliedAt       time.Time              `bun:"applied_at,notnull"`
	ExpiresAt       *time.Time             `bun:"expires_at"`
}

// UserBan excludes a user from counting in a channel. The newest row for a
// (channel, user) pair is authoritative.
type UserBan struct {
	bun.BaseModel `bun:"table:user_bans,alias:ub"`

	ID        int64                 `bun:"id,pk,autoincrement"`
	GuildID   sharedtypes.GuildID   `bun:"guild_id,notnull"`
	ChannelID sharedtypes.ChannelID `bun:"channel_id,notnull"`
	UserID    sharedtypes.UserID    `bun:"user_id,notnull"`
	Reason    string                `bun:"reason,notnull"`
	BannedBy  sharedtypes.UserID    `bun:"banned_by,notnull"`
	Active    bool                  `bun:"active,notnull"`
	ExpiresAt *time.Time            `bun:"expires_at"`
	CreatedAt time.Time             `bun:"created_at,notnull"`
}
