package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatGuildScopedTopic(t *testing.T) {
	assert.Equal(t, "counting.milestone.reached.v1.123", FormatGuildScopedTopic("counting.milestone.reached.v1", "123"))
}

func TestPublishWithGuildScope(t *testing.T) {
	bus := NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx, "counting.milestone.reached.v1.42")
	require.NoError(t, err)

	err = PublishWithGuildScope(bus, "counting.milestone.reached.v1", "42", message.NewMessage(watermill.NewUUID(), []byte(`{}`)))
	require.NoError(t, err)

	select {
	case m := <-msgs:
		assert.Equal(t, []byte(`{}`), []byte(m.Payload))
		m.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublishWithGuildScope_EmptyGuild(t *testing.T) {
	bus := NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	err := PublishWithGuildScope(bus, "topic", "", message.NewMessage(watermill.NewUUID(), nil))
	assert.Error(t, err)
}
