package httpapi

import (
	"context"
	"time"

	countingservice "github.com/Black-And-White-Club/counting-bot/app/modules/counting/application"
	statsservice "github.com/Black-And-White-Club/counting-bot/app/modules/stats/application"
	statsdb "github.com/Black-And-White-Club/counting-bot/app/modules/stats/infrastructure/repositories"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
)

// FakeChannels serves fixed channel states.
type FakeChannels struct {
	States map[sharedtypes.ChannelID]countingtypes.ChannelState
}

func (f *FakeChannels) GetChannelState(_ context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelState, error) {
	st, ok := f.States[channelID]
	if !ok {
		return nil, countingservice.ErrNotSetup
	}
	return &st, nil
}

func (f *FakeChannels) GetChannelStats(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelStats, error) {
	st, err := f.GetChannelState(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return &countingtypes.ChannelStats{State: *st, Participants: 2, SavePoints: 1}, nil
}

// FakeStats records the leaderboard arguments it was called with.
type FakeStats struct {
	Users       map[sharedtypes.UserID]statstypes.UserStats
	Entries     []statstypes.LeaderboardEntry
	Snapshot    *statstypes.Snapshot
	LeaderErr   error
	LastMetric  statstypes.Metric
	LastLimit   int
	LeaderCalls int
}

func (f *FakeStats) GetUserStats(_ context.Context, _ sharedtypes.ChannelID, userID sharedtypes.UserID) (*statstypes.UserStats, error) {
	us, ok := f.Users[userID]
	if !ok {
		return nil, statsservice.ErrNoStats
	}
	return &us, nil
}

func (f *FakeStats) Leaderboard(_ context.Context, _ sharedtypes.ChannelID, metric statstypes.Metric, limit int) ([]statstypes.LeaderboardEntry, error) {
	f.LeaderCalls++
	f.LastMetric = metric
	f.LastLimit = limit
	if f.LeaderErr != nil {
		return nil, f.LeaderErr
	}
	return f.Entries, nil
}

func (f *FakeStats) Rank(_ context.Context, _ sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error) {
	if _, ok := f.Users[userID]; !ok {
		return 0, statsservice.ErrNoStats
	}
	return 1, nil
}

func (f *FakeStats) LatestSnapshot(context.Context, sharedtypes.ChannelID) (*statstypes.Snapshot, error) {
	if f.Snapshot == nil {
		return nil, statsdb.ErrNotFound
	}
	return f.Snapshot, nil
}

// FakeViolations returns a fixed report and remembers the window.
type FakeViolations struct {
	Report    moderationtypes.ViolationStats
	LastSince *time.Time
	LastLimit int
}

func (f *FakeViolations) GetViolationStats(_ context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) (moderationtypes.ViolationStats, error) {
	f.LastSince = since
	f.LastLimit = limit
	r := f.Report
	r.ChannelID = channelID
	return r, nil
}
