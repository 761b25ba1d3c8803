package eventlogdb

import (
	"encoding/json"
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Event is an immutable audit row. Details holds the kind-specific payload.
type Event struct {
	bun.BaseModel `bun:"table:counting_events,alias:ce"`

	ID        uuid.UUID             `bun:"id,pk,type:uuid"`
	GuildID   sharedtypes.GuildID   `bun:"guild_id,notnull"`
	ChannelID sharedtypes.ChannelID `bun:"channel_id,notnull"`
	Kind      string                `bun:"kind,notnull"`
	UserID    sharedtypes.UserID    `bun:"user_id,nullzero"`
	MessageID sharedtypes.MessageID `bun:"message_id,nullzero"`
	OldNumber *int64                `bun:"old_number"`
	NewNumber *int64                `bun:"new_number"`
	Details   json.RawMessage       `bun:"details,type:jsonb"`
	CreatedAt time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// KindCount is one row of a GROUP BY kind query.
type KindCount struct {
	Kind  string `bun:"kind"`
	Count int64  `bun:"count"`
}

// UserCount is one row of a GROUP BY user_id query.
type UserCount struct {
	UserID sharedtypes.UserID `bun:"user_id"`
	Count  int64              `bun:"count"`
}

// ListFilter narrows List. Zero values mean "no constraint".
type ListFilter struct {
	Kinds  []string
	UserID sharedtypes.UserID
	Since  *time.Time
	Limit  int
}
