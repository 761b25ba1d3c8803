package moderationservice

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	moderationdb "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/infrastructure/repositories"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/riverqueue/river"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Moderation Repo
// ------------------------

// FakeModerationRepo keeps every table in slices. Func fields override.
type FakeModerationRepo struct {
	trace   []string
	nextID  int64
	windows []moderationdb.WrongCountWindow
	tiers   []moderationdb.TieredPunishment
	applied []moderationdb.AppliedPunishment
	bans    []moderationdb.UserBan

	FindTiersFunc      func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, triggerCount int) ([]moderationdb.TieredPunishment, error)
	InsertAppliedFunc  func(ctx context.Context, db bun.IDB, punishment *moderationdb.AppliedPunishment) error
	DeactivateBanCalls []int64
}

func NewFakeModerationRepo() *FakeModerationRepo {
	return &FakeModerationRepo{trace: []string{}}
}

func (f *FakeModerationRepo) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeModerationRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *FakeModerationRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeModerationRepo) FindOpenWindowForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, horizon time.Time) (*moderationdb.WrongCountWindow, error) {
	f.record("FindOpenWindowForUpdate")
	var best *moderationdb.WrongCountWindow
	for i := range f.windows {
		w := &f.windows[i]
		if w.ChannelID != channelID || w.UserID != userID || w.WindowStart.Before(horizon) {
			continue
		}
		if best == nil || w.WindowStart.After(best.WindowStart) {
			best = w
		}
	}
	if best == nil {
		return nil, moderationdb.ErrNotFound
	}
	out := *best
	return &out, nil
}

func (f *FakeModerationRepo) InsertWindow(ctx context.Context, db bun.IDB, window *moderationdb.WrongCountWindow) error {
	f.record("InsertWindow")
	window.ID = f.id()
	f.windows = append(f.windows, *window)
	return nil
}

func (f *FakeModerationRepo) UpdateWindow(ctx context.Context, db bun.IDB, window *moderationdb.WrongCountWindow) error {
	f.record("UpdateWindow")
	for i := range f.windows {
		if f.windows[i].ID == window.ID {
			f.windows[i] = *window
			return nil
		}
	}
	return moderationdb.ErrNoRowsAffected
}

func sameChannel(a, b *sharedtypes.ChannelID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *FakeModerationRepo) UpsertTier(ctx context.Context, db bun.IDB, tier *moderationdb.TieredPunishment) error {
	f.record("UpsertTier")
	for i := range f.tiers {
		t := &f.tiers[i]
		if t.GuildID == tier.GuildID && sameChannel(t.ChannelID, tier.ChannelID) && t.TriggerCount == tier.TriggerCount {
			t.Action, t.DurationMinutes, t.RoleID = tier.Action, tier.DurationMinutes, tier.RoleID
			*tier = *t
			return nil
		}
	}
	tier.ID = f.id()
	f.tiers = append(f.tiers, *tier)
	return nil
}

func (f *FakeModerationRepo) DeleteTier(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID, triggerCount int) error {
	f.record("DeleteTier")
	for i, t := range f.tiers {
		if t.GuildID == guildID && sameChannel(t.ChannelID, channelID) && t.TriggerCount == triggerCount {
			f.tiers = append(f.tiers[:i], f.tiers[i+1:]...)
			return nil
		}
	}
	return moderationdb.ErrNotFound
}

func (f *FakeModerationRepo) ListTiers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID) ([]moderationdb.TieredPunishment, error) {
	f.record("ListTiers")
	var out []moderationdb.TieredPunishment
	for _, t := range f.tiers {
		if t.GuildID != guildID {
			continue
		}
		if channelID != nil && t.ChannelID != nil && *t.ChannelID != *channelID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TriggerCount < out[j].TriggerCount })
	return out, nil
}

// FindTiers returns guild-wide rows first so the service's channel
// preference is what gets exercised.
func (f *FakeModerationRepo) FindTiers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, triggerCount int) ([]moderationdb.TieredPunishment, error) {
	f.record("FindTiers")
	if f.FindTiersFunc != nil {
		return f.FindTiersFunc(ctx, db, guildID, channelID, triggerCount)
	}
	var global, scoped []moderationdb.TieredPunishment
	for _, t := range f.tiers {
		if t.GuildID != guildID || t.TriggerCount != triggerCount {
			continue
		}
		switch {
		case t.ChannelID == nil:
			global = append(global, t)
		case *t.ChannelID == channelID:
			scoped = append(scoped, t)
		}
	}
	return append(global, scoped...), nil
}

func (f *FakeModerationRepo) InsertApplied(ctx context.Context, db bun.IDB, punishment *moderationdb.AppliedPunishment) error {
	f.record("InsertApplied")
	if f.InsertAppliedFunc != nil {
		return f.InsertAppliedFunc(ctx, db, punishment)
	}
	punishment.ID = f.id()
	f.applied = append(f.applied, *punishment)
	return nil
}

func (f *FakeModerationRepo) CountApplied(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, since *time.Time) (int64, error) {
	f.record("CountApplied")
	var n int64
	for _, p := range f.applied {
		if p.ChannelID == channelID && (since == nil || !p.AppliedAt.Before(*since)) {
			n++
		}
	}
	return n, nil
}

func (f *FakeModerationRepo) InsertBan(ctx context.Context, db bun.IDB, ban *moderationdb.UserBan) error {
	f.record("InsertBan")
	ban.ID = f.id()
	f.bans = append(f.bans, *ban)
	return nil
}

func (f *FakeModerationRepo) LatestBan(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*moderationdb.UserBan, error) {
	f.record("LatestBan")
	for i := len(f.bans) - 1; i >= 0; i-- {
		if f.bans[i].ChannelID == channelID && f.bans[i].UserID == userID {
			b := f.bans[i]
			return &b, nil
		}
	}
	return nil, moderationdb.ErrNotFound
}

func (f *FakeModerationRepo) DeactivateBans(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error) {
	f.record("DeactivateBans")
	n := 0
	for i := range f.bans {
		if f.bans[i].ChannelID == channelID && f.bans[i].UserID == userID && f.bans[i].Active {
			f.bans[i].Active = false
			n++
		}
	}
	return n, nil
}

func (f *FakeModerationRepo) DeactivateBan(ctx context.Context, db bun.IDB, id int64) error {
	f.record("DeactivateBan")
	f.DeactivateBanCalls = append(f.DeactivateBanCalls, id)
	for i := range f.bans {
		if f.bans[i].ID == id {
			f.bans[i].Active = false
		}
	}
	return nil
}

func (f *FakeModerationRepo) CountActiveBans(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, now time.Time) (int, error) {
	f.record("CountActiveBans")
	n := 0
	for _, b := range f.bans {
		if b.ChannelID == channelID && b.Active && (b.ExpiresAt == nil || b.ExpiresAt.After(now)) {
			n++
		}
	}
	return n, nil
}

func (f *FakeModerationRepo) ListBannedUsers(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]sharedtypes.UserID, error) {
	f.record("ListBannedUsers")
	var out []sharedtypes.UserID
	for _, b := range f.bans {
		if b.ChannelID == channelID && b.Active {
			out = append(out, b.UserID)
		}
	}
	return out, nil
}

func (f *FakeModerationRepo) DeleteByChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.record("DeleteByChannel")
	var bans []moderationdb.UserBan
	for _, b := range f.bans {
		if b.ChannelID != channelID {
			bans = append(bans, b)
		}
	}
	f.bans = bans
	var windows []moderationdb.WrongCountWindow
	for _, w := range f.windows {
		if w.ChannelID != channelID {
			windows = append(windows, w)
		}
	}
	f.windows = windows
	return nil
}

var _ moderationdb.Repository = (*FakeModerationRepo)(nil)

// ------------------------
// Fake Event Log
// ------------------------

type FakeEventLog struct {
	mu         sync.Mutex
	events     []eventlogtypes.Event
	AppendErr  error
	counts     map[eventlogtypes.Kind]int64
	violators  []moderationtypes.ViolatorCount
	countSince *time.Time
}

func (f *FakeEventLog) Append(ctx context.Context, db bun.IDB, event eventlogtypes.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return f.AppendErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *FakeEventLog) List(ctx context.Context, channelID sharedtypes.ChannelID, filter eventlogtypes.Filter) ([]eventlogtypes.Event, error) {
	return f.events, nil
}

func (f *FakeEventLog) CountByKind(ctx context.Context, channelID sharedtypes.ChannelID, kinds []eventlogtypes.Kind, since *time.Time) (map[eventlogtypes.Kind]int64, error) {
	f.countSince = since
	out := map[eventlogtypes.Kind]int64{}
	for _, k := range kinds {
		out[k] = f.counts[k]
	}
	return out, nil
}

func (f *FakeEventLog) TopViolators(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) ([]moderationtypes.ViolatorCount, error) {
	return f.violators, nil
}

func (f *FakeEventLog) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	return nil
}

func (f *FakeEventLog) Kinds() []eventlogtypes.Kind {
	out := make([]eventlogtypes.Kind, len(f.events))
	for i, e := range f.events {
		out[i] = e.Kind()
	}
	return out
}

// ------------------------
// Fake collaborators
// ------------------------

type FakeMessenger struct {
	Deleted   []sharedtypes.MessageID
	Sent      []string
	DeleteErr error
}

func (f *FakeMessenger) React(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID, emoji string) error {
	return nil
}

func (f *FakeMessenger) DeleteMessage(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *FakeMessenger) SendMessage(ctx context.Context, channelID sharedtypes.ChannelID, content string) error {
	f.Sent = append(f.Sent, content)
	return nil
}

type FakePunisher struct {
	Applied  []moderationtypes.PunishmentRequest
	Lifted   []moderationtypes.PunishmentRequest
	ApplyErr error
}

func (f *FakePunisher) Apply(ctx context.Context, req moderationtypes.PunishmentRequest) error {
	if f.ApplyErr != nil {
		return f.ApplyErr
	}
	f.Applied = append(f.Applied, req)
	return nil
}

func (f *FakePunisher) Lift(ctx context.Context, req moderationtypes.PunishmentRequest) error {
	f.Lifted = append(f.Lifted, req)
	return nil
}

type enqueued struct {
	args river.JobArgs
	opts *river.InsertOpts
}

type FakeEnqueuer struct {
	jobs []enqueued
	err  error
}

func (f *FakeEnqueuer) Enqueue(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, enqueued{args: args, opts: opts})
	return nil
}

var errCollaborator = errors.New("collaborator unavailable")
