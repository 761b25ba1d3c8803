package settingsservice

import (
	"slices"

	settingsdb "github.com/Black-And-White-Club/counting-bot/app/modules/settings/infrastructure/repositories"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
)

func overridesFromColumns(c settingsdb.Columns) settingstypes.Overrides {
	return settingstypes.Overrides{
		AllowRepeatUser:       c.AllowRepeatUser,
		CooldownSeconds:       c.CooldownSeconds,
		MaxNumber:             c.MaxNumber,
		ResetOnError:          c.ResetOnError,
		DeleteWrong:           c.DeleteWrong,
		Notation:              c.Notation,
		Base:                  c.Base,
		SuccessTemplate:       c.SuccessTemplate,
		ErrorTemplate:         c.ErrorTemplate,
		MilestoneTemplate:     c.MilestoneTemplate,
		MaxReachedTemplate:    c.MaxReachedTemplate,
		FailureTemplate:       c.FailureTemplate,
		Milestones:            slices.Clone(c.Milestones),
		FailureThreshold:      c.FailureThreshold,
		SuccessReaction:       c.SuccessReaction,
		ErrorReaction:         c.ErrorReaction,
		NotificationChannelID: c.NotificationChannelID,
		Threshold:             c.Threshold,
		WindowHours:           c.WindowHours,
		PunishmentAction:      c.PunishmentAction,
		PunishmentDuration:    c.PunishmentDuration,
		PunishmentRoleID:      c.PunishmentRoleID,
		IgnoreRoles:           roleSet(c.IgnoreRoles),
		RequiredRoles:         roleSet(c.RequiredRoles),
		BannedRoles:           roleSet(c.BannedRoles),
		DeleteNonNumber:       c.DeleteNonNumber,
		PunishNonNumber:       c.PunishNonNumber,
		DeleteEdited:          c.DeleteEdited,
		PunishEdited:          c.PunishEdited,
		EditHint:              c.EditHint,
	}
}

func columnsFromOverrides(o settingstypes.Overrides) settingsdb.Columns {
	return settingsdb.Columns{
		AllowRepeatUser:       o.AllowRepeatUser,
		CooldownSeconds:       o.CooldownSeconds,
		MaxNumber:             o.MaxNumber,
		ResetOnError:          o.ResetOnError,
		DeleteWrong:           o.DeleteWrong,
		Notation:              o.Notation,
		Base:                  o.Base,
		SuccessTemplate:       o.SuccessTemplate,
		ErrorTemplate:         o.ErrorTemplate,
		MilestoneTemplate:     o.MilestoneTemplate,
		MaxReachedTemplate:    o.MaxReachedTemplate,
		FailureTemplate:       o.FailureTemplate,
		Milestones:            slices.Clone(o.Milestones),
		FailureThreshold:      o.FailureThreshold,
		SuccessReaction:       o.SuccessReaction,
		ErrorReaction:         o.ErrorReaction,
		NotificationChannelID: o.NotificationChannelID,
		Threshold:             o.Threshold,
		WindowHours:           o.WindowHours,
		PunishmentAction:      o.PunishmentAction,
		PunishmentDuration:    o.PunishmentDuration,
		PunishmentRoleID:      o.PunishmentRoleID,
		IgnoreRoles:           roleStrings(o.IgnoreRoles),
		RequiredRoles:         roleStrings(o.RequiredRoles),
		BannedRoles:           roleStrings(o.BannedRoles),
		DeleteNonNumber:       o.DeleteNonNumber,
		PunishNonNumber:       o.PunishNonNumber,
		DeleteEdited:          o.DeleteEdited,
		PunishEdited:          o.PunishEdited,
		EditHint:              o.EditHint,
	}
}

// roleSet keeps the nil/empty distinction of a stored array.
func roleSet(values []string) settingstypes.RoleSet {
	if values == nil {
		return nil
	}
	return settingstypes.RoleSetFromStrings(values)
}

func roleStrings(s settingstypes.RoleSet) []string {
	if s == nil {
		return nil
	}
	return s.Strings()
}
