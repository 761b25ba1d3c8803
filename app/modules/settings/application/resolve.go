package settingsservice

import (
	"slices"

	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// DefaultMilestones is the milestone list used when no level sets one.
var DefaultMilestones = []int64{100, 250, 500, 1000, 2500, 5000, 10000}

// DefaultTemplates are the message templates used when no level sets one.
var DefaultTemplates = settingstypes.Templates{
	Success:    "",
	Error:      "{user} ruined it at {number}! The next number was {expected}.",
	Milestone:  "{user} reached {milestone}!",
	MaxReached: "The count has reached its maximum of {max}.",
	Failure:    "This channel has failed {failures} times in a row.",
}

// Fallback returns the hardcoded configuration that applies when neither
// the channel nor the guild sets a field.
func Fallback() settingstypes.EffectiveConfig {
	return settingstypes.EffectiveConfig{
		Counting: settingstypes.CountingConfig{
			Notation:        countingtypes.NotationNormal,
			Base:            10,
			Templates:       DefaultTemplates,
			Milestones:      slices.Clone(DefaultMilestones),
			SuccessReaction: "✅",
			ErrorReaction:   "❌",
		},
		Moderation: settingstypes.ModerationConfig{
			WindowHours:      24,
			PunishmentAction: moderationtypes.ActionNone,
			IgnoreRoles:      settingstypes.RoleSet{},
			RequiredRoles:    settingstypes.RoleSet{},
			BannedRoles:      settingstypes.RoleSet{},
			EditHint:         true,
		},
	}
}

// Resolve merges the two override levels over the fallback one field at a
// time: a channel value wins, then a guild value, then the fallback.
func Resolve(guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, channel, guild settingstypes.Overrides) settingstypes.EffectiveConfig {
	cfg := Fallback()
	cfg.GuildID = guildID
	cfg.ChannelID = channelID

	c := &cfg.Counting
	c.AllowRepeatUser = pick(channel.AllowRepeatUser, guild.AllowRepeatUser, c.AllowRepeatUser)
	c.CooldownSeconds = pick(channel.CooldownSeconds, guild.CooldownSeconds, c.CooldownSeconds)
	c.MaxNumber = pick(channel.MaxNumber, guild.MaxNumber, c.MaxNumber)
	c.ResetOnError = pick(channel.ResetOnError, guild.ResetOnError, c.ResetOnError)
	c.DeleteWrong = pick(channel.DeleteWrong, guild.DeleteWrong, c.DeleteWrong)
	c.Notation = pick(channel.Notation, guild.Notation, c.Notation)
	c.Base = pick(channel.Base, guild.Base, c.Base)
	c.Templates.Success = pick(channel.SuccessTemplate, guild.SuccessTemplate, c.Templates.Success)
	c.Templates.Error = pick(channel.ErrorTemplate, guild.ErrorTemplate, c.Templates.Error)
	c.Templates.Milestone = pick(channel.MilestoneTemplate, guild.MilestoneTemplate, c.Templates.Milestone)
	c.Templates.MaxReached = pick(channel.MaxReachedTemplate, guild.MaxReachedTemplate, c.Templates.MaxReached)
	c.Templates.Failure = pick(channel.FailureTemplate, guild.FailureTemplate, c.Templates.Failure)
	c.Milestones = pickSlice(channel.Milestones, guild.Milestones, c.Milestones)
	c.FailureThreshold = pick(channel.FailureThreshold, guild.FailureThreshold, c.FailureThreshold)
	c.SuccessReaction = pick(channel.SuccessReaction, guild.SuccessReaction, c.SuccessReaction)
	c.ErrorReaction = pick(channel.ErrorReaction, guild.ErrorReaction, c.ErrorReaction)
	c.NotificationChannelID = pick(channel.NotificationChannelID, guild.NotificationChannelID, c.NotificationChannelID)

	m := &cfg.Moderation
	m.Threshold = pick(channel.Threshold, guild.Threshold, m.Threshold)
	m.WindowHours = pick(channel.WindowHours, guild.WindowHours, m.WindowHours)
	m.PunishmentAction = pick(channel.PunishmentAction, guild.PunishmentAction, m.PunishmentAction)
	m.PunishmentDuration = pick(channel.PunishmentDuration, guild.PunishmentDuration, m.PunishmentDuration)
	m.PunishmentRoleID = pick(channel.PunishmentRoleID, guild.PunishmentRoleID, m.PunishmentRoleID)
	m.IgnoreRoles = pickSlice(channel.IgnoreRoles, guild.IgnoreRoles, m.IgnoreRoles)
	m.RequiredRoles = pickSlice(channel.RequiredRoles, guild.RequiredRoles, m.RequiredRoles)
	m.BannedRoles = pickSlice(channel.BannedRoles, guild.BannedRoles, m.BannedRoles)
	m.DeleteNonNumber = pick(channel.DeleteNonNumber, guild.DeleteNonNumber, m.DeleteNonNumber)
	m.PunishNonNumber = pick(channel.PunishNonNumber, guild.PunishNonNumber, m.PunishNonNumber)
	m.DeleteEdited = pick(channel.DeleteEdited, guild.DeleteEdited, m.DeleteEdited)
	m.PunishEdited = pick(channel.PunishEdited, guild.PunishEdited, m.PunishEdited)
	m.EditHint = pick(channel.EditHint, guild.EditHint, m.EditHint)

	return cfg
}

func pick[T any](channel, guild *T, fallback T) T {
	if channel != nil {
		return *channel
	}
	if guild != nil {
		return *guild
	}
	return fallback
}

// pickSlice treats a nil slice as unset; an empty non-nil slice is a value.
func pickSlice[S ~[]E, E any](channel, guild, fallback S) S {
	if channel != nil {
		return slices.Clone(channel)
	}
	if guild != nil {
		return slices.Clone(guild)
	}
	return fallback
}
