package eventlogdb

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for event log persistence. Rows are only
// ever inserted, read, or removed wholesale by a channel purge.
type Repository interface {
	// Insert appends an event.
	Insert(ctx context.Context, db bun.IDB, event *Event) error

	// List returns a channel's events, newest first.
	List(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, filter ListFilter) ([]Event, error)

	// CountByKind counts a channel's events per kind.
	CountByKind(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time) ([]KindCount, error)

	// TopUsers ranks users by number of events of the given kinds.
	TopUsers(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time, limit int) ([]UserCount, error)

	// DeleteByChannel removes every event of a channel.
	DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (int64, error)
}
