// Package countingevents defines the bus topics and payloads of the counting
// modules.
package countingevents

import (
	"time"

	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
)

// Inbound chat traffic.
const (
	MessageCreatedV1 = "counting.message.created.v1"
	MessageUpdatedV1 = "counting.message.updated.v1"
)

// Administrative requests.
const (
	ChannelSetupRequestedV1 = "counting.channel.setup.requested.v1"
	ChannelSetupResponseV1  = "counting.channel.setup.response.v1"
	ChannelResetRequestedV1 = "counting.channel.reset.requested.v1"
	ChannelResetResponseV1  = "counting.channel.reset.response.v1"
	LeaderboardRequestedV1  = "counting.leaderboard.requested.v1"
	LeaderboardResponseV1   = "counting.leaderboard.response.v1"
)

// Domain events, published guild-scoped.
const (
	CountAcceptedV1    = "counting.count.accepted.v1"
	MilestoneReachedV1 = "counting.milestone.reached.v1"
	WrongNumberV1      = "counting.wrong.number.v1"
)

// MessageCreatedPayloadV1 is a message posted in a guild channel.
type MessageCreatedPayloadV1 struct {
	GuildID     sharedtypes.GuildID   `json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `json:"channel_id"`
	UserID      sharedtypes.UserID    `json:"user_id"`
	MessageID   sharedtypes.MessageID `json:"message_id"`
	Content     string                `json:"content"`
	MemberRoles []sharedtypes.RoleID  `json:"member_roles"`
	IsBot       bool                  `json:"is_bot"`
	SentAt      time.Time             `json:"sent_at"`
}

// MessageUpdatedPayloadV1 is an edit of an earlier message.
type MessageUpdatedPayloadV1 struct {
	GuildID     sharedtypes.GuildID   `json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `json:"channel_id"`
	UserID      sharedtypes.UserID    `json:"user_id"`
	MessageID   sharedtypes.MessageID `json:"message_id"`
	Content     string                `json:"content"`
	MemberRoles []sharedtypes.RoleID  `json:"member_roles"`
	IsBot       bool                  `json:"is_bot"`
	EditedAt    time.Time             `json:"edited_at"`
}

type ChannelSetupRequestedPayloadV1 struct {
	GuildID     sharedtypes.GuildID   `json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `json:"channel_id"`
	StartNumber int64                 `json:"start_number"`
	Increment   int64                 `json:"increment"`
	RequestedBy sharedtypes.UserID    `json:"requested_by"`
}

type ChannelSetupResponsePayloadV1 struct {
	GuildID   sharedtypes.GuildID         `json:"guild_id"`
	ChannelID sharedtypes.ChannelID       `json:"channel_id"`
	State     *countingtypes.ChannelState `json:"state,omitempty"`
	Error     string                      `json:"error,omitempty"`
}

type ChannelResetRequestedPayloadV1 struct {
	GuildID     sharedtypes.GuildID   `json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `json:"channel_id"`
	RequestedBy sharedtypes.UserID    `json:"requested_by"`
}

type ChannelResetResponsePayloadV1 struct {
	GuildID   sharedtypes.GuildID         `json:"guild_id"`
	ChannelID sharedtypes.ChannelID       `json:"channel_id"`
	State     *countingtypes.ChannelState `json:"state,omitempty"`
	Error     string                      `json:"error,omitempty"`
}

type LeaderboardRequestedPayloadV1 struct {
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	Metric    statstypes.Metric     `json:"metric"`
	Limit     int                   `json:"limit"`
}

type LeaderboardResponsePayloadV1 struct {
	GuildID   sharedtypes.GuildID           `json:"guild_id"`
	ChannelID sharedtypes.ChannelID         `json:"channel_id"`
	Metric    statstypes.Metric             `json:"metric"`
	Entries   []statstypes.LeaderboardEntry `json:"entries"`
	Error     string                        `json:"error,omitempty"`
}

type CountAcceptedPayloadV1 struct {
	GuildID     sharedtypes.GuildID   `json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `json:"channel_id"`
	UserID      sharedtypes.UserID    `json:"user_id"`
	Number      int64                 `json:"number"`
	IsNewRecord bool                  `json:"is_new_record"`
}

type MilestoneReachedPayloadV1 struct {
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	UserID    sharedtypes.UserID    `json:"user_id"`
	Milestone int64                 `json:"milestone"`
}

type WrongNumberPayloadV1 struct {
	GuildID      sharedtypes.GuildID   `json:"guild_id"`
	ChannelID    sharedtypes.ChannelID `json:"channel_id"`
	UserID       sharedtypes.UserID    `json:"user_id"`
	Expected     int64                 `json:"expected"`
	Actual       int64                 `json:"actual"`
	ChannelReset bool                  `json:"channel_reset"`
}
