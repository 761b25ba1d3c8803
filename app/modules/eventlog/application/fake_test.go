package eventlogservice

import (
	"context"
	"time"

	eventlogdb "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Event Repo
// ------------------------

type FakeEventRepo struct {
	trace []string

	InsertFunc          func(ctx context.Context, db bun.IDB, event *eventlogdb.Event) error
	ListFunc            func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, filter eventlogdb.ListFilter) ([]eventlogdb.Event, error)
	CountByKindFunc     func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time) ([]eventlogdb.KindCount, error)
	TopUsersFunc        func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time, limit int) ([]eventlogdb.UserCount, error)
	DeleteByChannelFunc func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (int64, error)
}

func NewFakeEventRepo() *FakeEventRepo {
	return &FakeEventRepo{
		trace: []string{},
	}
}

func (f *FakeEventRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeEventRepo) Insert(ctx context.Context, db bun.IDB, event *eventlogdb.Event) error {
	f.record("Insert")
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, event)
	}
	return nil
}

func (f *FakeEventRepo) List(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, filter eventlogdb.ListFilter) ([]eventlogdb.Event, error) {
	f.record("List")
	if f.ListFunc != nil {
		return f.ListFunc(ctx, db, channelID, filter)
	}
	return nil, nil
}

func (f *FakeEventRepo) CountByKind(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time) ([]eventlogdb.KindCount, error) {
	f.record("CountByKind")
	if f.CountByKindFunc != nil {
		return f.CountByKindFunc(ctx, db, channelID, kinds, since)
	}
	return nil, nil
}

func (f *FakeEventRepo) TopUsers(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, kinds []string, since *time.Time, limit int) ([]eventlogdb.UserCount, error) {
	f.record("TopUsers")
	if f.TopUsersFunc != nil {
		return f.TopUsersFunc(ctx, db, channelID, kinds, since, limit)
	}
	return nil, nil
}

func (f *FakeEventRepo) DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (int64, error) {
	f.record("DeleteByChannel")
	if f.DeleteByChannelFunc != nil {
		return f.DeleteByChannelFunc(ctx, db, channelID)
	}
	return 0, nil
}

// --- Accessors for assertions ---

func (f *FakeEventRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ eventlogdb.Repository = (*FakeEventRepo)(nil)
