package countingservice

import (
	"context"

	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// Service is the counting engine. Every operation on a channel runs in that
// channel's lane, so submissions and administrative changes to one channel
// are evaluated one at a time in arrival order.
type Service interface {
	// Submit evaluates one message end to end. Expected user-input
	// conditions are outcomes in the Result; only infrastructure failures
	// are errors.
	Submit(ctx context.Context, sub countingtypes.Submission) (countingtypes.Result, error)
	SubmitNonNumber(ctx context.Context, sub countingtypes.Submission) (moderationtypes.ViolationOutcome, error)
	SubmitEdit(ctx context.Context, sub countingtypes.Submission) (moderationtypes.ViolationOutcome, error)

	SetupChannel(ctx context.Context, req countingtypes.SetupRequest) (*countingtypes.ChannelState, error)
	ResetChannel(ctx context.Context, channelID sharedtypes.ChannelID, requestedBy sharedtypes.UserID) (*countingtypes.ChannelState, error)
	CreateSavePoint(ctx context.Context, channelID sharedtypes.ChannelID, name string, createdBy sharedtypes.UserID) (*countingtypes.SavePoint, error)
	RestoreFromSave(ctx context.Context, channelID sharedtypes.ChannelID, name string, requestedBy sharedtypes.UserID) (*countingtypes.ChannelState, error)
	ListSavePoints(ctx context.Context, channelID sharedtypes.ChannelID) ([]countingtypes.SavePoint, error)
	DisableChannel(ctx context.Context, channelID sharedtypes.ChannelID, requestedBy sharedtypes.UserID) error
	// PurgeChannel hard-deletes the channel with its configuration, stats,
	// save points, events, bans and moderation history.
	PurgeChannel(ctx context.Context, channelID sharedtypes.ChannelID) error

	GetChannelState(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelState, error)
	GetChannelStats(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelStats, error)

	// Close stops every lane.
	Close()
}
