package outbound

import (
	"context"
	"fmt"

	"github.com/Black-And-White-Club/counting-bot/pkg/eventbus"
	discordevents "github.com/Black-And-White-Club/counting-bot/pkg/events/discord"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/handlerwrapper"
)

// BusMessenger publishes messaging requests instead of calling Discord.
type BusMessenger struct {
	bus eventbus.EventBus
}

var _ Messenger = (*BusMessenger)(nil)

// NewBusMessenger creates a BusMessenger.
func NewBusMessenger(bus eventbus.EventBus) *BusMessenger {
	return &BusMessenger{bus: bus}
}

func (m *BusMessenger) React(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID, emoji string) error {
	return publish(ctx, m.bus, discordevents.MessageReactRequestedV1, discordevents.MessageReactRequestedPayloadV1{
		ChannelID: channelID,
		MessageID: messageID,
		Emoji:     emoji,
	})
}

func (m *BusMessenger) DeleteMessage(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error {
	return publish(ctx, m.bus, discordevents.MessageDeleteRequestedV1, discordevents.MessageDeleteRequestedPayloadV1{
		ChannelID: channelID,
		MessageID: messageID,
	})
}

func (m *BusMessenger) SendMessage(ctx context.Context, channelID sharedtypes.ChannelID, content string) error {
	return publish(ctx, m.bus, discordevents.MessageSendRequestedV1, discordevents.MessageSendRequestedPayloadV1{
		ChannelID: channelID,
		Content:   content,
	})
}

// BusPunisher publishes guild-scoped punishment requests.
type BusPunisher struct {
	bus eventbus.EventBus
}

var _ Punisher = (*BusPunisher)(nil)

// NewBusPunisher creates a BusPunisher.
func NewBusPunisher(bus eventbus.EventBus) *BusPunisher {
	return &BusPunisher{bus: bus}
}

func (p *BusPunisher) Apply(ctx context.Context, req moderationtypes.PunishmentRequest) error {
	return p.publish(ctx, discordevents.PunishmentApplyV1, req)
}

func (p *BusPunisher) Lift(ctx context.Context, req moderationtypes.PunishmentRequest) error {
	return p.publish(ctx, discordevents.PunishmentLiftV1, req)
}

func (p *BusPunisher) publish(ctx context.Context, topic string, req moderationtypes.PunishmentRequest) error {
	msg, err := handlerwrapper.NewMessage(ctx, discordevents.PunishmentPayloadV1{PunishmentRequest: req})
	if err != nil {
		return err
	}
	if err := eventbus.PublishWithGuildScope(p.bus, topic, string(req.GuildID), msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

func publish(ctx context.Context, bus eventbus.EventBus, topic string, payload any) error {
	msg, err := handlerwrapper.NewMessage(ctx, payload)
	if err != nil {
		return err
	}
	if err := bus.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}
