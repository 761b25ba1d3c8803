package countingservice

import (
	"context"
	"log/slog"
	"time"

	countingdb "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// DefaultStateCacheTTL bounds how long a channel's state is served from cache.
const DefaultStateCacheTTL = 5 * time.Minute

func stateKey(channelID sharedtypes.ChannelID) string {
	return "counting:channel:" + string(channelID)
}

// StateStore reads channel progress through the cache. Writers go to the
// repository and call Invalidate after commit.
type StateStore struct {
	repo   countingdb.Repository
	loader *cache.Loader[countingtypes.ChannelState]
}

// NewStateStore creates a StateStore. A nil store disables caching.
func NewStateStore(repo countingdb.Repository, store cache.Store, ttl time.Duration, logger *slog.Logger) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateCacheTTL
	}
	return &StateStore{
		repo:   repo,
		loader: cache.NewLoader[countingtypes.ChannelState](store, ttl, logger),
	}
}

// Get returns the channel's state or countingdb.ErrNotFound. A cached entry
// can trail the database, so Get only serves reads made outside a channel's
// lane.
func (s *StateStore) Get(ctx context.Context, channelID sharedtypes.ChannelID) (countingtypes.ChannelState, error) {
	return s.loader.Get(ctx, stateKey(channelID), func(ctx context.Context) (countingtypes.ChannelState, error) {
		row, err := s.repo.Get(ctx, nil, channelID)
		if err != nil {
			return countingtypes.ChannelState{}, err
		}
		return stateFromRow(row), nil
	})
}

// Load reads the channel's state from the repository, bypassing the cache.
// Submissions are judged against Load.
func (s *StateStore) Load(ctx context.Context, channelID sharedtypes.ChannelID) (countingtypes.ChannelState, error) {
	row, err := s.repo.Get(ctx, nil, channelID)
	if err != nil {
		return countingtypes.ChannelState{}, err
	}
	return stateFromRow(row), nil
}

// Invalidate drops the cached state.
func (s *StateStore) Invalidate(ctx context.Context, channelID sharedtypes.ChannelID) error {
	return s.loader.Invalidate(ctx, stateKey(channelID))
}

func stateFromRow(row *countingdb.CountingChannel) countingtypes.ChannelState {
	return countingtypes.ChannelState{
		GuildID:           row.GuildID,
		ChannelID:         row.ChannelID,
		CurrentNumber:     row.CurrentNumber,
		Increment:         row.Increment,
		StartNumber:       row.StartNumber,
		LastContributorID: row.LastContributorID,
		LastMessageID:     row.LastMessageID,
		HighestNumber:     row.HighestNumber,
		HighestReachedAt:  row.HighestReachedAt,
		TotalCounts:       row.TotalCounts,
		IsActive:          row.IsActive,
	}
}

func savePointFromRow(row countingdb.SavePoint) countingtypes.SavePoint {
	return countingtypes.SavePoint{
		ChannelID: row.ChannelID,
		Name:      row.Name,
		Number:    row.Number,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}
}
