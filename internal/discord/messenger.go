package discord

import (
	"context"
	"fmt"

	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/bwmarrin/discordgo"
)

// Messenger executes chat effects through the REST API.
type Messenger struct {
	session Session
}

var _ outbound.Messenger = (*Messenger)(nil)

func NewMessenger(session Session) *Messenger {
	return &Messenger{session: session}
}

func (m *Messenger) React(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID, emoji string) error {
	if err := m.session.MessageReactionAdd(string(channelID), string(messageID), emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

func (m *Messenger) DeleteMessage(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error {
	if err := m.session.ChannelMessageDelete(string(channelID), string(messageID), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (m *Messenger) SendMessage(ctx context.Context, channelID sharedtypes.ChannelID, content string) error {
	if _, err := m.session.ChannelMessageSend(string(channelID), content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
