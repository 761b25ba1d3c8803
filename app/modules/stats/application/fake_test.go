package statsservice

import (
	"context"
	"sort"
	"strings"

	statsdb "github.com/Black-And-White-Club/counting-bot/app/modules/stats/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Stats Repo
// ------------------------

type statsKey struct {
	channel sharedtypes.ChannelID
	user    sharedtypes.UserID
}

// FakeStatsRepo is an in-memory Repository. Func fields override behavior.
type FakeStatsRepo struct {
	trace     []string
	rows      map[statsKey]statsdb.UserStats
	snapshots []statsdb.LeaderboardSnapshot

	UpsertFunc         func(ctx context.Context, db bun.IDB, stats *statsdb.UserStats) error
	ListByChannelFunc  func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]statsdb.UserStats, error)
	InsertSnapshotFunc func(ctx context.Context, db bun.IDB, snapshot *statsdb.LeaderboardSnapshot) error
}

func NewFakeStatsRepo() *FakeStatsRepo {
	return &FakeStatsRepo{
		trace: []string{},
		rows:  map[statsKey]statsdb.UserStats{},
	}
}

func (f *FakeStatsRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeStatsRepo) put(row statsdb.UserStats) {
	f.rows[statsKey{row.ChannelID, row.UserID}] = row
}

func (f *FakeStatsRepo) GetForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statsdb.UserStats, error) {
	f.record("GetForUpdate")
	return f.lookup(channelID, userID)
}

func (f *FakeStatsRepo) Get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statsdb.UserStats, error) {
	f.record("Get")
	return f.lookup(channelID, userID)
}

func (f *FakeStatsRepo) lookup(channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statsdb.UserStats, error) {
	row, ok := f.rows[statsKey{channelID, userID}]
	if !ok {
		return nil, statsdb.ErrNotFound
	}
	return &row, nil
}

func (f *FakeStatsRepo) Upsert(ctx context.Context, db bun.IDB, stats *statsdb.UserStats) error {
	f.record("Upsert")
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, stats)
	}
	f.put(*stats)
	return nil
}

func (f *FakeStatsRepo) channelRows(channelID sharedtypes.ChannelID) []statsdb.UserStats {
	var out []statsdb.UserStats
	for k, row := range f.rows {
		if k.channel == channelID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Leaderboard understands the "<column> DESC" expressions the service emits.
func (f *FakeStatsRepo) Leaderboard(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, orderExpr string, limit int) ([]statsdb.UserStats, error) {
	f.record("Leaderboard")
	rows := f.channelRows(channelID)
	column := strings.Fields(orderExpr)[0]
	value := func(r statsdb.UserStats) float64 {
		switch column {
		case "contributions":
			return float64(r.Contributions)
		case "highest_streak":
			return float64(r.HighestStreak)
		case "accuracy":
			return r.Accuracy
		case "total_numbers_counted":
			return float64(r.TotalNumbersCounted)
		}
		panic("unexpected order column " + column)
	}
	sort.SliceStable(rows, func(i, j int) bool { return value(rows[i]) > value(rows[j]) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *FakeStatsRepo) CountAhead(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, key statsdb.RankKey) (int, error) {
	f.record("CountAhead")
	n := 0
	for _, r := range f.channelRows(channelID) {
		switch {
		case r.Contributions != key.Contributions:
			if r.Contributions > key.Contributions {
				n++
			}
		case r.HighestStreak != key.HighestStreak:
			if r.HighestStreak > key.HighestStreak {
				n++
			}
		case r.Accuracy > key.Accuracy:
			n++
		}
	}
	return n, nil
}

func (f *FakeStatsRepo) Summary(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*statsdb.Summary, error) {
	f.record("Summary")
	out := &statsdb.Summary{}
	for _, r := range f.channelRows(channelID) {
		out.Participants++
		out.TotalContributions += r.Contributions
		out.TotalErrors += r.ErrorsCount
	}
	return out, nil
}

func (f *FakeStatsRepo) ListByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]statsdb.UserStats, error) {
	f.record("ListByChannel")
	if f.ListByChannelFunc != nil {
		return f.ListByChannelFunc(ctx, db, channelID)
	}
	return f.channelRows(channelID), nil
}

func (f *FakeStatsRepo) ListChannels(ctx context.Context, db bun.IDB) ([]sharedtypes.ChannelID, error) {
	f.record("ListChannels")
	seen := map[sharedtypes.ChannelID]bool{}
	var out []sharedtypes.ChannelID
	for k := range f.rows {
		if !seen[k.channel] {
			seen[k.channel] = true
			out = append(out, k.channel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *FakeStatsRepo) InsertSnapshot(ctx context.Context, db bun.IDB, snapshot *statsdb.LeaderboardSnapshot) error {
	f.record("InsertSnapshot")
	if f.InsertSnapshotFunc != nil {
		return f.InsertSnapshotFunc(ctx, db, snapshot)
	}
	snapshot.ID = int64(len(f.snapshots) + 1)
	f.snapshots = append(f.snapshots, *snapshot)
	return nil
}

func (f *FakeStatsRepo) LatestSnapshot(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*statsdb.LeaderboardSnapshot, error) {
	f.record("LatestSnapshot")
	for i := len(f.snapshots) - 1; i >= 0; i-- {
		if f.snapshots[i].ChannelID == channelID {
			s := f.snapshots[i]
			return &s, nil
		}
	}
	return nil, statsdb.ErrNotFound
}

func (f *FakeStatsRepo) DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.record("DeleteByChannel")
	for k := range f.rows {
		if k.channel == channelID {
			delete(f.rows, k)
		}
	}
	return nil
}

func (f *FakeStatsRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ statsdb.Repository = (*FakeStatsRepo)(nil)
