package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/counting-bot/pkg/eventbus"
	countingevents "github.com/Black-And-White-Club/counting-bot/pkg/events/counting"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/handlerwrapper"
	"github.com/bwmarrin/discordgo"
)

// Bridge publishes gateway message events onto the bus.
type Bridge struct {
	session Session
	bus     eventbus.EventBus
	logger  *slog.Logger

	mu      sync.Mutex
	removes []func()
}

// NewBridge creates a Bridge. Call Start to register the gateway handlers.
func NewBridge(session Session, bus eventbus.EventBus, logger *slog.Logger) *Bridge {
	return &Bridge{session: session, bus: bus, logger: logger}
}

// Start registers the handlers and opens the gateway connection.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	b.removes = append(b.removes,
		b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			b.OnMessageCreate(ctx, m)
		}),
		b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
			b.OnMessageUpdate(ctx, m)
		}),
	)
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	b.logger.InfoContext(ctx, "Discord gateway bridge started")
	return nil
}

// Close removes the handlers and closes the gateway connection.
func (b *Bridge) Close() error {
	b.mu.Lock()
	for _, remove := range b.removes {
		remove()
	}
	b.removes = nil
	b.mu.Unlock()
	return b.session.Close()
}

// OnMessageCreate publishes a guild message. Direct messages are dropped.
func (b *Bridge) OnMessageCreate(ctx context.Context, m *discordgo.MessageCreate) {
	payload, ok := createdPayload(m)
	if !ok {
		return
	}
	b.publish(ctx, countingevents.MessageCreatedV1, payload, payload.ChannelID)
}

// OnMessageUpdate publishes a content edit of a guild message.
func (b *Bridge) OnMessageUpdate(ctx context.Context, m *discordgo.MessageUpdate) {
	payload, ok := updatedPayload(m)
	if !ok {
		return
	}
	b.publish(ctx, countingevents.MessageUpdatedV1, payload, payload.ChannelID)
}

func (b *Bridge) publish(ctx context.Context, topic string, payload any, channelID sharedtypes.ChannelID) {
	msg, err := handlerwrapper.NewMessage(ctx, payload)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to encode gateway event",
			attr.String("topic", topic),
			attr.Error(err),
		)
		return
	}
	if err := b.bus.Publish(topic, msg); err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish gateway event",
			attr.String("topic", topic),
			attr.ChannelID("channel_id", channelID),
			attr.Error(err),
		)
	}
}

func createdPayload(m *discordgo.MessageCreate) (countingevents.MessageCreatedPayloadV1, bool) {
	if m == nil || m.Message == nil || m.GuildID == "" || m.Author == nil {
		return countingevents.MessageCreatedPayloadV1{}, false
	}
	return countingevents.MessageCreatedPayloadV1{
		GuildID:     sharedtypes.GuildID(m.GuildID),
		ChannelID:   sharedtypes.ChannelID(m.ChannelID),
		UserID:      sharedtypes.UserID(m.Author.ID),
		MessageID:   sharedtypes.MessageID(m.ID),
		Content:     m.Content,
		MemberRoles: memberRoles(m.Member),
		IsBot:       m.Author.Bot,
		SentAt:      m.Timestamp.UTC(),
	}, true
}

// updatedPayload drops updates without an author, which Discord sends when
// it only attaches embeds.
func updatedPayload(m *discordgo.MessageUpdate) (countingevents.MessageUpdatedPayloadV1, bool) {
	if m == nil || m.Message == nil || m.GuildID == "" || m.Author == nil {
		return countingevents.MessageUpdatedPayloadV1{}, false
	}
	p := countingevents.MessageUpdatedPayloadV1{
		GuildID:     sharedtypes.GuildID(m.GuildID),
		ChannelID:   sharedtypes.ChannelID(m.ChannelID),
		UserID:      sharedtypes.UserID(m.Author.ID),
		MessageID:   sharedtypes.MessageID(m.ID),
		Content:     m.Content,
		MemberRoles: memberRoles(m.Member),
		IsBot:       m.Author.Bot,
	}
	if m.EditedTimestamp != nil {
		p.EditedAt = m.EditedTimestamp.UTC()
	}
	return p, true
}

func memberRoles(member *discordgo.Member) []sharedtypes.RoleID {
	if member == nil {
		return nil
	}
	roles := make([]sharedtypes.RoleID, 0, len(member.Roles))
	for _, r := range member.Roles {
		roles = append(roles, sharedtypes.RoleID(r))
	}
	return roles
}
