package settingsdb

import (
	"time"

	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Columns are the overridable settings shared by both levels. NULL means
// unset at that level.
type Columns struct {
	AllowRepeatUser       *bool                   `bun:"allow_repeat_user"`
	CooldownSeconds       *int                    `bun:"cooldown_seconds"`
	MaxNumber             *int64                  `bun:"max_number"`
	ResetOnError          *bool                   `bun:"reset_on_error"`
	DeleteWrong           *bool                   `bun:"delete_wrong"`
	Notation              *countingtypes.Notation `bun:"notation"`
	Base                  *int                    `bun:"base"`
	SuccessTemplate       *string                 `bun:"success_template"`
	ErrorTemplate         *string                 `bun:"error_template"`
	MilestoneTemplate     *string                 `bun:"milestone_template"`
	MaxReachedTemplate    *string                 `bun:"max_reached_template"`
	FailureTemplate       *string                 `bun:"failure_template"`
	Milestones            []int64                 `bun:"milestones,array"`
	FailureThreshold      *int                    `bun:"failure_threshold"`
	SuccessReaction       *string                 `bun:"success_reaction"`
	ErrorReaction         *string                 `bun:"error_reaction"`
	NotificationChannelID *sharedtypes.ChannelID  `bun:"notification_channel_id"`

	Threshold          *int                    `bun:"threshold"`
	WindowHours        *int                    `bun:"window_hours"`
	PunishmentAction   *moderationtypes.Action `bun:"punishment_action"`
	PunishmentDuration *int                    `bun:"punishment_duration"`
	PunishmentRoleID   *sharedtypes.RoleID     `bun:"punishment_role_id"`
	IgnoreRoles        []string                `bun:"ignore_roles,array"`
	RequiredRoles      []string                `bun:"required_roles,array"`
	BannedRoles        []string                `bun:"banned_roles,array"`
	DeleteNonNumber    *bool                   `bun:"delete_non_number"`
	PunishNonNumber    *bool                   `bun:"punish_non_number"`
	DeleteEdited       *bool                   `bun:"delete_edited"`
	PunishEdited       *bool                   `bun:"punish_edited"`
	EditHint           *bool                   `bun:"edit_hint"`
}

// ChannelSettings is the channel-level override row. Its existence is what
// makes a channel's configuration resolvable.
type ChannelSettings struct {
	bun.BaseModel `bun:"table:channel_settings,alias:cs"`

	ChannelID sharedtypes.ChannelID `bun:"channel_id,pk"`
	GuildID   sharedtypes.GuildID   `bun:"guild_id,notnull"`
	Columns
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GuildSettings is the guild-level default row.
type GuildSettings struct {
	bun.BaseModel `bun:"table:guild_settings,alias:gs"`

	GuildID sharedtypes.GuildID `bun:"guild_id,pk"`
	Columns
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
