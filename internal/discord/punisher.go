package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
)

// ErrMuteNeedsChannel is returned for a mute without a channel to mute in.
var ErrMuteNeedsChannel = errors.New("mute requires a channel")

// Punisher executes moderation actions through the REST API. A mute denies
// the member Send Messages in the counting channel; a timeout is Discord's
// guild-wide communication timeout.
type Punisher struct {
	session Session
	clock   clockwork.Clock
}

var _ outbound.Punisher = (*Punisher)(nil)

func NewPunisher(session Session, clock clockwork.Clock) *Punisher {
	return &Punisher{session: session, clock: clock}
}

func (p *Punisher) Apply(ctx context.Context, req moderationtypes.PunishmentRequest) error {
	guild, user := string(req.GuildID), string(req.UserID)
	opt := discordgo.WithContext(ctx)

	var err error
	switch req.Action {
	case moderationtypes.ActionMute:
		if req.Channel == "" {
			return ErrMuteNeedsChannel
		}
		err = p.session.ChannelPermissionSet(string(req.Channel), user, discordgo.PermissionOverwriteTypeMember,
			0, discordgo.PermissionSendMessages, opt)
	case moderationtypes.ActionTimeout:
		until := p.clock.Now().Add(req.Duration)
		err = p.session.GuildMemberTimeout(guild, user, &until, opt)
	case moderationtypes.ActionKick:
		err = p.session.GuildMemberDeleteWithReason(guild, user, req.Reason, opt)
	case moderationtypes.ActionSoftban:
		if err = p.session.GuildBanCreateWithReason(guild, user, req.Reason, 1, opt); err == nil {
			err = p.session.GuildBanDelete(guild, user, opt)
		}
	case moderationtypes.ActionAddRole:
		err = p.session.GuildMemberRoleAdd(guild, user, string(req.RoleID), opt)
	case moderationtypes.ActionRemoveRoles:
		err = p.removeRoles(ctx, guild, user)
	default:
		return fmt.Errorf("unsupported punishment action %q", req.Action)
	}
	if err != nil {
		return fmt.Errorf("failed to apply %s: %w", req.Action, err)
	}
	return nil
}

// Lift reverses a timed punishment. Instantaneous actions have nothing to lift.
func (p *Punisher) Lift(ctx context.Context, req moderationtypes.PunishmentRequest) error {
	guild, user := string(req.GuildID), string(req.UserID)
	opt := discordgo.WithContext(ctx)

	var err error
	switch req.Action {
	case moderationtypes.ActionMute:
		if req.Channel == "" {
			return ErrMuteNeedsChannel
		}
		err = p.session.ChannelPermissionDelete(string(req.Channel), user, opt)
	case moderationtypes.ActionTimeout:
		err = p.session.GuildMemberTimeout(guild, user, nil, opt)
	case moderationtypes.ActionAddRole:
		err = p.session.GuildMemberRoleRemove(guild, user, string(req.RoleID), opt)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to lift %s: %w", req.Action, err)
	}
	return nil
}

func (p *Punisher) removeRoles(ctx context.Context, guild, user string) error {
	member, err := p.session.GuildMember(guild, user, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	var errs []error
	for _, role := range member.Roles {
		if err := p.session.GuildMemberRoleRemove(guild, user, role, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
