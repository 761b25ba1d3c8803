package settingsservice

import (
	"context"

	settingsdb "github.com/Black-And-White-Club/counting-bot/app/modules/settings/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Settings Repo
// ------------------------

// FakeSettingsRepo keeps rows in maps unless a Func override is set.
type FakeSettingsRepo struct {
	trace []string

	Channels map[sharedtypes.ChannelID]*settingsdb.ChannelSettings
	Guilds   map[sharedtypes.GuildID]*settingsdb.GuildSettings

	GetChannelFunc  func(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*settingsdb.ChannelSettings, error)
	GetGuildFunc    func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (*settingsdb.GuildSettings, error)
	UpdateChannelFn func(ctx context.Context, db bun.IDB, row *settingsdb.ChannelSettings) error
}

func NewFakeSettingsRepo() *FakeSettingsRepo {
	return &FakeSettingsRepo{
		trace:    []string{},
		Channels: map[sharedtypes.ChannelID]*settingsdb.ChannelSettings{},
		Guilds:   map[sharedtypes.GuildID]*settingsdb.GuildSettings{},
	}
}

func (f *FakeSettingsRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeSettingsRepo) GetChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) (*settingsdb.ChannelSettings, error) {
	f.record("GetChannel")
	if f.GetChannelFunc != nil {
		return f.GetChannelFunc(ctx, db, channelID)
	}
	row, ok := f.Channels[channelID]
	if !ok {
		return nil, settingsdb.ErrNotFound
	}
	c := *row
	return &c, nil
}

func (f *FakeSettingsRepo) GetGuild(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (*settingsdb.GuildSettings, error) {
	f.record("GetGuild")
	if f.GetGuildFunc != nil {
		return f.GetGuildFunc(ctx, db, guildID)
	}
	row, ok := f.Guilds[guildID]
	if !ok {
		return nil, settingsdb.ErrNotFound
	}
	c := *row
	return &c, nil
}

func (f *FakeSettingsRepo) InsertChannel(ctx context.Context, db bun.IDB, row *settingsdb.ChannelSettings) (bool, error) {
	f.record("InsertChannel")
	if _, ok := f.Channels[row.ChannelID]; ok {
		return false, nil
	}
	c := *row
	f.Channels[row.ChannelID] = &c
	return true, nil
}

func (f *FakeSettingsRepo) UpdateChannel(ctx context.Context, db bun.IDB, row *settingsdb.ChannelSettings) error {
	f.record("UpdateChannel")
	if f.UpdateChannelFn != nil {
		return f.UpdateChannelFn(ctx, db, row)
	}
	if _, ok := f.Channels[row.ChannelID]; !ok {
		return settingsdb.ErrNotFound
	}
	c := *row
	f.Channels[row.ChannelID] = &c
	return nil
}

func (f *FakeSettingsRepo) DeleteChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	f.record("DeleteChannel")
	delete(f.Channels, channelID)
	return nil
}

func (f *FakeSettingsRepo) UpsertGuild(ctx context.Context, db bun.IDB, row *settingsdb.GuildSettings) error {
	f.record("UpsertGuild")
	c := *row
	f.Guilds[row.GuildID] = &c
	return nil
}

func (f *FakeSettingsRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ settingsdb.Repository = (*FakeSettingsRepo)(nil)
