package countingdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for counting channel persistence.
type Repository interface {
	Get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*CountingChannel, error)
	GetForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*CountingChannel, error)

	// Setup creates the channel or re-arms an existing one, keeping its
	// record and lifetime total.
	Setup(ctx context.Context, db bun.IDB, channel *CountingChannel) error

	// Advance applies one accepted submission only if the channel still
	// holds p.Prev and is active; otherwise it returns ErrConflict.
	Advance(ctx context.Context, db bun.IDB, p AdvanceParams) error

	// SetCurrentNumber moves an active channel to value and clears the last
	// contributor, for resets and restores.
	SetCurrentNumber(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, value int64) error
	Deactivate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error

	UpsertSavePoint(ctx context.Context, db bun.IDB, save *SavePoint) error
	GetSavePoint(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, name string) (*SavePoint, error)
	ListSavePoints(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]SavePoint, error)

	// Delete removes the channel row and its save points.
	Delete(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error
}
