package discord

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// FakeSession records every REST call as a short trace line.
type FakeSession struct {
	mu       sync.Mutex
	calls    []string
	handlers []interface{}
	Member   *discordgo.Member
	Err      error
	Until    *time.Time
	Opened   bool
	Closed   bool
	removed  int
}

func (f *FakeSession) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.Err
}

func (f *FakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeSession) Trace() string { return strings.Join(f.Calls(), "; ") }

func (f *FakeSession) AddHandler(handler interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
	return func() {
		f.mu.Lock()
		f.removed++
		f.mu.Unlock()
	}
}

func (f *FakeSession) Open() error {
	f.Opened = true
	return nil
}

func (f *FakeSession) Close() error {
	f.Closed = true
	return nil
}

func (f *FakeSession) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	return f.record("react %s/%s %s", channelID, messageID, emojiID)
}

func (f *FakeSession) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	return f.record("delete %s/%s", channelID, messageID)
}

func (f *FakeSession) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if err := f.record("send %s %q", channelID, content); err != nil {
		return nil, err
	}
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *FakeSession) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, _ ...discordgo.RequestOption) error {
	return f.record("overwrite %s %s type=%d allow=%d deny=%d", channelID, targetID, targetType, allow, deny)
}

func (f *FakeSession) ChannelPermissionDelete(channelID, targetID string, _ ...discordgo.RequestOption) error {
	return f.record("clear-overwrite %s %s", channelID, targetID)
}

func (f *FakeSession) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	if err := f.record("member %s/%s", guildID, userID); err != nil {
		return nil, err
	}
	return f.Member, nil
}

func (f *FakeSession) GuildMemberTimeout(guildID string, userID string, until *time.Time, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	f.Until = until
	f.mu.Unlock()
	return f.record("timeout %s/%s set=%t", guildID, userID, until != nil)
}

func (f *FakeSession) GuildMemberDeleteWithReason(guildID, userID, reason string, _ ...discordgo.RequestOption) error {
	return f.record("kick %s/%s %q", guildID, userID, reason)
}

func (f *FakeSession) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	return f.record("role+ %s/%s %s", guildID, userID, roleID)
}

func (f *FakeSession) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	return f.record("role- %s/%s %s", guildID, userID, roleID)
}

func (f *FakeSession) GuildBanCreateWithReason(guildID, userID, reason string, days int, _ ...discordgo.RequestOption) error {
	return f.record("ban %s/%s %q days=%d", guildID, userID, reason, days)
}

func (f *FakeSession) GuildBanDelete(guildID, userID string, _ ...discordgo.RequestOption) error {
	return f.record("unban %s/%s", guildID, userID)
}
