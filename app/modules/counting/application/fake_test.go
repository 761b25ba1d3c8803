package countingservice

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	countingdb "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/repositories"
	settingsservice "github.com/Black-And-White-Club/counting-bot/app/modules/settings/application"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/riverqueue/river"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Counting Repo
// ------------------------

// FakeCountingRepo keeps channels and save points in maps. BeforeAdvance
// runs ahead of the conditional write so tests can move the channel under
// a submission.
type FakeCountingRepo struct {
	mu       sync.Mutex
	channels map[sharedtypes.ChannelID]countingdb.CountingChannel
	saves    map[sharedtypes.ChannelID]map[string]countingdb.SavePoint
	nextID   int64
	advances int

	BeforeAdvance      func(f *FakeCountingRepo)
	BeforeGetForUpdate func(f *FakeCountingRepo)
	GetErr             error
}

func NewFakeCountingRepo() *FakeCountingRepo {
	return &FakeCountingRepo{
		channels: map[sharedtypes.ChannelID]countingdb.CountingChannel{},
		saves:    map[sharedtypes.ChannelID]map[string]countingdb.SavePoint{},
	}
}

func (f *FakeCountingRepo) Get(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*countingdb.CountingChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	row, ok := f.channels[channelID]
	if !ok {
		return nil, countingdb.ErrNotFound
	}
	return &row, nil
}

func (f *FakeCountingRepo) GetForUpdate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*countingdb.CountingChannel, error) {
	if f.BeforeGetForUpdate != nil {
		hook := f.BeforeGetForUpdate
		f.BeforeGetForUpdate = nil
		hook(f)
	}
	return f.Get(ctx, db, channelID)
}

func (f *FakeCountingRepo) Setup(ctx context.Context, db bun.IDB, channel *countingdb.CountingChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := *channel
	row.IsActive = true
	if existing, ok := f.channels[channel.ChannelID]; ok {
		row.HighestNumber = existing.HighestNumber
		row.HighestReachedAt = existing.HighestReachedAt
		row.TotalCounts = existing.TotalCounts
		row.CreatedAt = existing.CreatedAt
	}
	row.LastContributorID = ""
	row.LastMessageID = ""
	f.channels[channel.ChannelID] = row
	return nil
}

func (f *FakeCountingRepo) Advance(ctx context.Context, db bun.IDB, p countingdb.AdvanceParams) error {
	if f.BeforeAdvance != nil {
		hook := f.BeforeAdvance
		f.BeforeAdvance = nil
		hook(f)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.channels[p.ChannelID]
	if !ok || !row.IsActive || row.CurrentNumber != p.Prev {
		return countingdb.ErrConflict
	}
	row.CurrentNumber = p.Next
	row.LastContributorID = p.UserID
	row.LastMessageID = p.MessageID
	row.TotalCounts++
	if p.Next > row.HighestNumber {
		row.HighestNumber = p.Next
		at := p.At
		row.HighestReachedAt = &at
	}
	f.channels[p.ChannelID] = row
	f.advances++
	return nil
}

func (f *FakeCountingRepo) SetCurrentNumber(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.channels[channelID]
	if !ok || !row.IsActive {
		return countingdb.ErrNotFound
	}
	row.CurrentNumber = value
	row.LastContributorID = ""
	row.LastMessageID = ""
	f.channels[channelID] = row
	return nil
}

func (f *FakeCountingRepo) Deactivate(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.channels[channelID]
	if !ok {
		return countingdb.ErrNotFound
	}
	row.IsActive = false
	f.channels[channelID] = row
	return nil
}

func (f *FakeCountingRepo) UpsertSavePoint(ctx context.Context, db bun.IDB, save *countingdb.SavePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saves[save.ChannelID] == nil {
		f.saves[save.ChannelID] = map[string]countingdb.SavePoint{}
	}
	if existing, ok := f.saves[save.ChannelID][save.Name]; ok {
		save.ID = existing.ID
	} else {
		f.nextID++
		save.ID = f.nextID
	}
	f.saves[save.ChannelID][save.Name] = *save
	return nil
}

func (f *FakeCountingRepo) GetSavePoint(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, name string) (*countingdb.SavePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	save, ok := f.saves[channelID][name]
	if !ok {
		return nil, countingdb.ErrNotFound
	}
	return &save, nil
}

func (f *FakeCountingRepo) ListSavePoints(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]countingdb.SavePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]countingdb.SavePoint, 0, len(f.saves[channelID]))
	for _, s := range f.saves[channelID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *FakeCountingRepo) Delete(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
	delete(f.saves, channelID)
	return nil
}

func (f *FakeCountingRepo) Row(channelID sharedtypes.ChannelID) countingdb.CountingChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[channelID]
}

// ------------------------
// Fake Settings
// ------------------------

type FakeSettings struct {
	mu          sync.Mutex
	configs     map[sharedtypes.ChannelID]settingstypes.EffectiveConfig
	Invalidated []sharedtypes.ChannelID
}

func NewFakeSettings() *FakeSettings {
	return &FakeSettings{configs: map[sharedtypes.ChannelID]settingstypes.EffectiveConfig{}}
}

// Configure edits a channel's effective configuration, creating it from the
// fallback when absent.
func (f *FakeSettings) Configure(channelID sharedtypes.ChannelID, edit func(*settingstypes.EffectiveConfig)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[channelID]
	if !ok {
		cfg = settingsservice.Fallback()
		cfg.ChannelID = channelID
	}
	edit(&cfg)
	f.configs[channelID] = cfg
}

func (f *FakeSettings) GetEffectiveConfig(ctx context.Context, channelID sharedtypes.ChannelID) (settingstypes.EffectiveConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[channelID]
	if !ok {
		return settingstypes.EffectiveConfig{}, settingsservice.ErrConfigNotResolvable
	}
	return cfg, nil
}

func (f *FakeSettings) GetChannelOverrides(ctx context.Context, channelID sharedtypes.ChannelID) (settingstypes.Overrides, error) {
	return settingstypes.Overrides{}, nil
}

func (f *FakeSettings) UpdateChannelConfig(ctx context.Context, channelID sharedtypes.ChannelID, patch settingstypes.Patch) (settingstypes.EffectiveConfig, error) {
	return f.GetEffectiveConfig(ctx, channelID)
}

func (f *FakeSettings) UpdateGuildDefaults(ctx context.Context, guildID sharedtypes.GuildID, patch settingstypes.Patch) error {
	return nil
}

func (f *FakeSettings) EnsureChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.configs[channelID]; !ok {
		cfg := settingsservice.Fallback()
		cfg.GuildID = guildID
		cfg.ChannelID = channelID
		f.configs[channelID] = cfg
	}
	return nil
}

func (f *FakeSettings) DeleteChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.configs, channelID)
	return nil
}

func (f *FakeSettings) InvalidateChannel(ctx context.Context, channelID sharedtypes.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Invalidated = append(f.Invalidated, channelID)
	return nil
}

// ------------------------
// Fake Moderation
// ------------------------

// FakeModeration counts wrong numbers per user without a window.
type FakeModeration struct {
	mu         sync.Mutex
	wrong      map[sharedtypes.UserID]int
	Banned     map[sharedtypes.UserID]bool
	Escalated  []int
	NonNumbers []moderationtypes.Message
	Edits      []int64
	Purged     []sharedtypes.ChannelID
	TrackErr   error
}

func NewFakeModeration() *FakeModeration {
	return &FakeModeration{wrong: map[sharedtypes.UserID]int{}, Banned: map[sharedtypes.UserID]bool{}}
}

func (f *FakeModeration) ShouldIgnore(roles []sharedtypes.RoleID, cfg settingstypes.ModerationConfig) bool {
	return cfg.IgnoreRoles.Intersects(roles)
}

func (f *FakeModeration) IsBanned(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Banned[userID], nil
}

func (f *FakeModeration) TrackWrongCount(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, windowHours int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TrackErr != nil {
		return 0, f.TrackErr
	}
	f.wrong[userID]++
	return f.wrong[userID], nil
}

func (f *FakeModeration) ApplyTieredPunishment(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, count int) (*moderationtypes.AppliedPunishment, error) {
	return nil, nil
}

func (f *FakeModeration) Escalate(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, count int, cfg settingstypes.ModerationConfig) (*moderationtypes.AppliedPunishment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Escalated = append(f.Escalated, count)
	return nil, nil
}

func (f *FakeModeration) BanUser(ctx context.Context, req moderationtypes.BanRequest) (*moderationtypes.Ban, error) {
	return nil, errors.New("not implemented")
}

func (f *FakeModeration) UnbanUser(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID, unbannedBy sharedtypes.UserID) error {
	return nil
}

func (f *FakeModeration) SetTieredPunishment(ctx context.Context, tier moderationtypes.TieredPunishment) (*moderationtypes.TieredPunishment, error) {
	return &tier, nil
}

func (f *FakeModeration) RemoveTieredPunishment(ctx context.Context, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID, triggerCount int) error {
	return nil
}

func (f *FakeModeration) ListTieredPunishments(ctx context.Context, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID) ([]moderationtypes.TieredPunishment, error) {
	return nil, nil
}

func (f *FakeModeration) HandleNonNumber(ctx context.Context, msg moderationtypes.Message, cfg settingstypes.ModerationConfig) (moderationtypes.ViolationOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NonNumbers = append(f.NonNumbers, msg)
	return moderationtypes.ViolationOutcome{Deleted: cfg.DeleteNonNumber, Violation: cfg.DeleteNonNumber}, nil
}

func (f *FakeModeration) HandleEdit(ctx context.Context, msg moderationtypes.Message, cfg settingstypes.ModerationConfig, lastAccepted int64) (moderationtypes.ViolationOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, lastAccepted)
	return moderationtypes.ViolationOutcome{HintSent: cfg.EditHint}, nil
}

func (f *FakeModeration) GetViolationStats(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) (moderationtypes.ViolationStats, error) {
	return moderationtypes.ViolationStats{}, nil
}

func (f *FakeModeration) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]sharedtypes.UserID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Purged = append(f.Purged, channelID)
	var users []sharedtypes.UserID
	for u, banned := range f.Banned {
		if banned {
			users = append(users, u)
		}
	}
	f.Banned = map[sharedtypes.UserID]bool{}
	return users, nil
}

func (f *FakeModeration) InvalidateBans(ctx context.Context, channelID sharedtypes.ChannelID, userIDs ...sharedtypes.UserID) error {
	return nil
}

// ------------------------
// Fake Stats
// ------------------------

type FakeStats struct {
	mu          sync.Mutex
	users       map[sharedtypes.UserID]*statstypes.UserStats
	Invalidated []sharedtypes.UserID
	Purged      bool
}

func NewFakeStats() *FakeStats {
	return &FakeStats{users: map[sharedtypes.UserID]*statstypes.UserStats{}}
}

func (f *FakeStats) user(channelID sharedtypes.ChannelID, userID sharedtypes.UserID) *statstypes.UserStats {
	u, ok := f.users[userID]
	if !ok {
		u = &statstypes.UserStats{ChannelID: channelID, UserID: userID}
		f.users[userID] = u
	}
	return u
}

func (f *FakeStats) OnSuccess(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, increment int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user(channelID, userID).RecordSuccess(increment, at)
	return nil
}

func (f *FakeStats) OnError(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.user(channelID, userID)
	u.ErrorsCount++
	u.CurrentStreak = 0
	return nil
}

func (f *FakeStats) Invalidate(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Invalidated = append(f.Invalidated, userID)
	return nil
}

func (f *FakeStats) GetUserStats(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statstypes.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, errors.New("no stats")
	}
	out := *u
	return &out, nil
}

func (f *FakeStats) Leaderboard(ctx context.Context, channelID sharedtypes.ChannelID, metric statstypes.Metric, limit int) ([]statstypes.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statstypes.LeaderboardEntry, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, statstypes.LeaderboardEntry{UserID: u.UserID, Contributions: u.Contributions})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Contributions != out[j].Contributions {
			return out[i].Contributions > out[j].Contributions
		}
		return out[i].UserID < out[j].UserID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeStats) Rank(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error) {
	return 0, nil
}

func (f *FakeStats) Summary(ctx context.Context, channelID sharedtypes.ChannelID) (statstypes.ChannelSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s statstypes.ChannelSummary
	for _, u := range f.users {
		s.Participants++
		s.TotalContributions += u.Contributions
		s.TotalErrors += u.ErrorsCount
		if s.TopContributor == nil || u.Contributions > s.TopContributions ||
			(u.Contributions == s.TopContributions && u.UserID < *s.TopContributor) {
			id := u.UserID
			s.TopContributor = &id
			s.TopContributions = u.Contributions
		}
	}
	return s, nil
}

func (f *FakeStats) SnapshotLeaderboard(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error) {
	return nil, nil
}

func (f *FakeStats) SnapshotAll(ctx context.Context) (int, error) { return 0, nil }

func (f *FakeStats) LatestSnapshot(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error) {
	return nil, nil
}

func (f *FakeStats) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = map[sharedtypes.UserID]*statstypes.UserStats{}
	f.Purged = true
	return nil
}

// ------------------------
// Fake Event Log
// ------------------------

type FakeEventLog struct {
	mu     sync.Mutex
	events []eventlogtypes.Event
	Purged bool
}

func (f *FakeEventLog) Append(ctx context.Context, db bun.IDB, event eventlogtypes.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *FakeEventLog) List(ctx context.Context, channelID sharedtypes.ChannelID, filter eventlogtypes.Filter) ([]eventlogtypes.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]eventlogtypes.Event(nil), f.events...), nil
}

func (f *FakeEventLog) CountByKind(ctx context.Context, channelID sharedtypes.ChannelID, kinds []eventlogtypes.Kind, since *time.Time) (map[eventlogtypes.Kind]int64, error) {
	return map[eventlogtypes.Kind]int64{}, nil
}

func (f *FakeEventLog) TopViolators(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) ([]moderationtypes.ViolatorCount, error) {
	return nil, nil
}

func (f *FakeEventLog) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.Purged = true
	return nil
}

func (f *FakeEventLog) Kinds() []eventlogtypes.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]eventlogtypes.Kind, len(f.events))
	for i, e := range f.events {
		out[i] = e.Kind()
	}
	return out
}

func (f *FakeEventLog) Last() eventlogtypes.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

// ------------------------
// Fake collaborators
// ------------------------

type sentMessage struct {
	channelID sharedtypes.ChannelID
	content   string
}

type FakeMessenger struct {
	mu        sync.Mutex
	Reactions []string
	Deleted   []sharedtypes.MessageID
	Sent      []sentMessage
}

func (f *FakeMessenger) React(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, emoji)
	return nil
}

func (f *FakeMessenger) DeleteMessage(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *FakeMessenger) SendMessage(ctx context.Context, channelID sharedtypes.ChannelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, sentMessage{channelID: channelID, content: content})
	return nil
}

type enqueued struct {
	args river.JobArgs
	opts *river.InsertOpts
}

type FakeEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueued
}

func (f *FakeEnqueuer) Enqueue(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, enqueued{args: args, opts: opts})
	return nil
}
