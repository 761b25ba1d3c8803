// Package discordevents defines the outbound requests executed by the
// Discord-facing worker when the bot runs without a direct session.
package discordevents

import (
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

const (
	MessageReactRequestedV1  = "discord.message.react.v1"
	MessageDeleteRequestedV1 = "discord.message.delete.v1"
	MessageSendRequestedV1   = "discord.message.send.v1"
	PunishmentApplyV1        = "discord.punishment.apply.v1"
	PunishmentLiftV1         = "discord.punishment.lift.v1"
)

type MessageReactRequestedPayloadV1 struct {
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	MessageID sharedtypes.MessageID `json:"message_id"`
	Emoji     string                `json:"emoji"`
}

type MessageDeleteRequestedPayloadV1 struct {
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	MessageID sharedtypes.MessageID `json:"message_id"`
}

type MessageSendRequestedPayloadV1 struct {
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	Content   string                `json:"content"`
}

type PunishmentPayloadV1 struct {
	moderationtypes.PunishmentRequest
}
