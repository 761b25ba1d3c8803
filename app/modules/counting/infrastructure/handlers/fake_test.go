package countinghandlers

import (
	"context"
	"time"

	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/uptrace/bun"
)

// FakeCountingService records calls and returns canned values.
type FakeCountingService struct {
	Submitted []countingtypes.Submission
	Edited    []countingtypes.Submission
	Result    countingtypes.Result
	State     *countingtypes.ChannelState
	Err       error
}

func (f *FakeCountingService) Submit(ctx context.Context, sub countingtypes.Submission) (countingtypes.Result, error) {
	f.Submitted = append(f.Submitted, sub)
	return f.Result, f.Err
}

func (f *FakeCountingService) SubmitNonNumber(ctx context.Context, sub countingtypes.Submission) (moderationtypes.ViolationOutcome, error) {
	return moderationtypes.ViolationOutcome{}, f.Err
}

func (f *FakeCountingService) SubmitEdit(ctx context.Context, sub countingtypes.Submission) (moderationtypes.ViolationOutcome, error) {
	f.Edited = append(f.Edited, sub)
	return moderationtypes.ViolationOutcome{}, f.Err
}

func (f *FakeCountingService) SetupChannel(ctx context.Context, req countingtypes.SetupRequest) (*countingtypes.ChannelState, error) {
	return f.State, f.Err
}

func (f *FakeCountingService) ResetChannel(ctx context.Context, channelID sharedtypes.ChannelID, requestedBy sharedtypes.UserID) (*countingtypes.ChannelState, error) {
	return f.State, f.Err
}

func (f *FakeCountingService) CreateSavePoint(ctx context.Context, channelID sharedtypes.ChannelID, name string, createdBy sharedtypes.UserID) (*countingtypes.SavePoint, error) {
	return nil, f.Err
}

func (f *FakeCountingService) RestoreFromSave(ctx context.Context, channelID sharedtypes.ChannelID, name string, requestedBy sharedtypes.UserID) (*countingtypes.ChannelState, error) {
	return f.State, f.Err
}

func (f *FakeCountingService) ListSavePoints(ctx context.Context, channelID sharedtypes.ChannelID) ([]countingtypes.SavePoint, error) {
	return nil, f.Err
}

func (f *FakeCountingService) DisableChannel(ctx context.Context, channelID sharedtypes.ChannelID, requestedBy sharedtypes.UserID) error {
	return f.Err
}

func (f *FakeCountingService) PurgeChannel(ctx context.Context, channelID sharedtypes.ChannelID) error {
	return f.Err
}

func (f *FakeCountingService) GetChannelState(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelState, error) {
	return f.State, f.Err
}

func (f *FakeCountingService) GetChannelStats(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelStats, error) {
	return nil, f.Err
}

func (f *FakeCountingService) Close() {}

// FakeStatsService serves a fixed leaderboard.
type FakeStatsService struct {
	Entries   []statstypes.LeaderboardEntry
	Err       error
	GotMetric statstypes.Metric
	GotLimit  int
}

func (f *FakeStatsService) OnSuccess(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, increment int64, at time.Time) error {
	return nil
}

func (f *FakeStatsService) OnError(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error {
	return nil
}

func (f *FakeStatsService) Invalidate(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error {
	return nil
}

func (f *FakeStatsService) GetUserStats(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statstypes.UserStats, error) {
	return nil, nil
}

func (f *FakeStatsService) Leaderboard(ctx context.Context, channelID sharedtypes.ChannelID, metric statstypes.Metric, limit int) ([]statstypes.LeaderboardEntry, error) {
	f.GotMetric = metric
	f.GotLimit = limit
	return f.Entries, f.Err
}

func (f *FakeStatsService) Rank(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error) {
	return 0, nil
}

func (f *FakeStatsService) Summary(ctx context.Context, channelID sharedtypes.ChannelID) (statstypes.ChannelSummary, error) {
	return statstypes.ChannelSummary{}, nil
}

func (f *FakeStatsService) SnapshotLeaderboard(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error) {
	return nil, nil
}

func (f *FakeStatsService) SnapshotAll(ctx context.Context) (int, error) { return 0, nil }

func (f *FakeStatsService) LatestSnapshot(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error) {
	return nil, nil
}

func (f *FakeStatsService) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	return nil
}
