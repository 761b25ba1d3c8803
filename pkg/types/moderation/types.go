package moderationtypes

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// Action is a punishment kind executed by the punishment collaborator.
type Action string

const (
	ActionNone        Action = ""
	ActionMute        Action = "mute"
	ActionTimeout     Action = "timeout"
	ActionKick        Action = "kick"
	ActionSoftban     Action = "softban"
	ActionAddRole     Action = "add_role"
	ActionRemoveRoles Action = "remove_roles"
)

const (
	// MaxPunishmentDuration bounds every configured punishment duration.
	MaxPunishmentDuration = 49 * 24 * time.Hour
	// MaxPunishmentMinutes is MaxPunishmentDuration as a stored minute count.
	MaxPunishmentMinutes = int(MaxPunishmentDuration / time.Minute)
	// MaxWindowHours bounds the wrong-count window.
	MaxWindowHours = 24 * 365
)

// Valid reports whether a is an executable action.
func (a Action) Valid() bool {
	switch a {
	case ActionMute, ActionTimeout, ActionKick, ActionSoftban, ActionAddRole, ActionRemoveRoles:
		return true
	}
	return false
}

// Instantaneous kinds take effect once and cannot carry a duration.
func (a Action) Instantaneous() bool {
	switch a {
	case ActionKick, ActionSoftban, ActionRemoveRoles:
		return true
	}
	return false
}

// TieredPunishment maps a violation count to an action. A nil ChannelID makes
// the tier guild-wide.
type TieredPunishment struct {
	ID              int64                  `json:"id"`
	GuildID         sharedtypes.GuildID    `json:"guild_id"`
	ChannelID       *sharedtypes.ChannelID `json:"channel_id,omitempty"`
	TriggerCount    int                    `json:"trigger_count"`
	Action          Action                 `json:"action"`
	DurationMinutes int                    `json:"duration_minutes"`
	RoleID          sharedtypes.RoleID     `json:"role_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Duration converts DurationMinutes.
func (t TieredPunishment) Duration() time.Duration {
	return Minutes(t.DurationMinutes)
}

// Minutes converts a stored minute count.
func Minutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}

// AppliedPunishment records an executed punishment.
type AppliedPunishment struct {
	ID              int64                 `json:"id"`
	GuildID         sharedtypes.GuildID   `json:"guild_id"`
	ChannelID       sharedtypes.ChannelID `json:"channel_id"`
	UserID          sharedtypes.UserID    `json:"user_id"`
	Action          Action                `json:"action"`
	DurationMinutes int                   `json:"duration_minutes"`
	RoleID          sharedtypes.RoleID    `json:"role_id,omitempty"`
	TriggerCount    int                   `json:"trigger_count"`
	Tiered          bool                  `json:"tiered"`
	Reason          string                `json:"reason"`
	AppliedAt       time.Time             `json:"applied_at"`
	ExpiresAt       *time.Time            `json:"expires_at,omitempty"`
}

// PunishmentRequest is what the punishment collaborator executes.
type PunishmentRequest struct {
	GuildID  sharedtypes.GuildID   `json:"guild_id"`
	UserID   sharedtypes.UserID    `json:"user_id"`
	Action   Action                `json:"action"`
	Duration time.Duration         `json:"duration"`
	RoleID   sharedtypes.RoleID    `json:"role_id,omitempty"`
	Reason   string                `json:"reason"`
	Channel  sharedtypes.ChannelID `json:"channel_id,omitempty"`
}

// Ban is a (channel, user) exclusion from counting.
type Ban struct {
	ID        int64                 `json:"id"`
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	UserID    sharedtypes.UserID    `json:"user_id"`
	Reason    string                `json:"reason"`
	BannedBy  sharedtypes.UserID    `json:"banned_by"`
	Active    bool                  `json:"active"`
	ExpiresAt *time.Time            `json:"expires_at,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// BanStatus is the cached answer to IsBanned.
type BanStatus struct {
	Banned    bool       `json:"banned"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ViolatorCount is one row of a violation report.
type ViolatorCount struct {
	UserID sharedtypes.UserID `json:"user_id"`
	Count  int64              `json:"count"`
}

// ViolationStats is the operator-facing violation report for a channel.
type ViolationStats struct {
	ChannelID          sharedtypes.ChannelID `json:"channel_id"`
	Since              *time.Time            `json:"since,omitempty"`
	Total              int64                 `json:"total"`
	ByKind             map[string]int64      `json:"by_kind"`
	TopViolators       []ViolatorCount       `json:"top_violators"`
	PunishmentsApplied int64                 `json:"punishments_applied"`
	ActiveBans         int                   `json:"active_bans"`
}

// ViolationOutcome describes what a non-number or edit violation triggered.
type ViolationOutcome struct {
	Deleted    bool               `json:"deleted"`
	Violation  bool               `json:"violation"`
	HintSent   bool               `json:"hint_sent"`
	WrongCount int                `json:"wrong_count,omitempty"`
	Punishment *AppliedPunishment `json:"punishment,omitempty"`
}

// Message identifies a chat message handled outside the counting state
// machine.
type Message struct {
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	UserID    sharedtypes.UserID    `json:"user_id"`
	MessageID sharedtypes.MessageID `json:"message_id"`
}

// BanRequest asks for a counting ban. A zero Duration is permanent.
type BanRequest struct {
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	UserID    sharedtypes.UserID    `json:"user_id"`
	Reason    string                `json:"reason"`
	BannedBy  sharedtypes.UserID    `json:"banned_by"`
	Duration  time.Duration         `json:"duration,omitempty"`
}
