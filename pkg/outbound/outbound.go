// Package outbound declares the collaborators the engine hands side effects
// to: a messenger for reactions, deletions and notices, and a punisher that
// executes moderation actions. Bus-backed implementations publish requests
// for a separate Discord worker; internal/discord executes them directly.
package outbound

import (
	"context"

	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// Messenger delivers chat-side effects.
type Messenger interface {
	React(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID, emoji string) error
	DeleteMessage(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error
	SendMessage(ctx context.Context, channelID sharedtypes.ChannelID, content string) error
}

// Punisher executes and lifts moderation actions.
type Punisher interface {
	Apply(ctx context.Context, req moderationtypes.PunishmentRequest) error
	Lift(ctx context.Context, req moderationtypes.PunishmentRequest) error
}
