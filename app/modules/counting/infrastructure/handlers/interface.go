package countinghandlers

import (
	"context"

	countingevents "github.com/Black-And-White-Club/counting-bot/pkg/events/counting"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/handlerwrapper"
)

// Handlers defines the interface for counting event handlers.
type Handlers interface {
	// --- CHAT TRAFFIC ---

	// HandleMessageCreated runs a posted message through the counting engine
	// and emits the resulting domain events.
	HandleMessageCreated(ctx context.Context, payload *countingevents.MessageCreatedPayloadV1) ([]handlerwrapper.Result, error)

	// HandleMessageUpdated applies the edit policy to an edited message.
	HandleMessageUpdated(ctx context.Context, payload *countingevents.MessageUpdatedPayloadV1) ([]handlerwrapper.Result, error)

	// --- ADMIN OPERATIONS ---

	HandleChannelSetupRequested(ctx context.Context, payload *countingevents.ChannelSetupRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleChannelResetRequested(ctx context.Context, payload *countingevents.ChannelResetRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// --- READS ---

	HandleLeaderboardRequested(ctx context.Context, payload *countingevents.LeaderboardRequestedPayloadV1) ([]handlerwrapper.Result, error)
}
