package eventlogservice

import (
	"context"
	"time"

	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Service is the append-only audit trail.
//
// Methods taking a bun.IDB join the caller's transaction when db is non-nil
// and run in their own transaction otherwise.
type Service interface {
	Append(ctx context.Context, db bun.IDB, event eventlogtypes.Event) error
	List(ctx context.Context, channelID sharedtypes.ChannelID, filter eventlogtypes.Filter) ([]eventlogtypes.Event, error)
	CountByKind(ctx context.Context, channelID sharedtypes.ChannelID, kinds []eventlogtypes.Kind, since *time.Time) (map[eventlogtypes.Kind]int64, error)
	TopViolators(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) ([]moderationtypes.ViolatorCount, error)
	PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error
}
