package eventbus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishWithGuildScope publishes msg to "{baseTopic}.{guildID}" so consumers
// can subscribe to a single guild or to "{baseTopic}.*".
func PublishWithGuildScope(bus EventBus, baseTopic string, guildID string, msg *message.Message) error {
	if guildID == "" {
		return fmt.Errorf("guildID cannot be empty for guild-scoped publish")
	}
	return bus.Publish(FormatGuildScopedTopic(baseTopic, guildID), msg)
}

// FormatGuildScopedTopic formats a topic with a guild suffix without publishing.
func FormatGuildScopedTopic(baseTopic string, guildID string) string {
	return fmt.Sprintf("%s.%s", baseTopic, guildID)
}
