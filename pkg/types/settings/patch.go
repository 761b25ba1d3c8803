package settingstypes

import (
	"fmt"
	"slices"
)

// Apply returns o with p applied. Fields named in p.Clear become unset.
func (o Overrides) Apply(p Patch) (Overrides, error) {
	s := p.Set
	setIf(&o.AllowRepeatUser, s.AllowRepeatUser)
	setIf(&o.CooldownSeconds, s.CooldownSeconds)
	setIf(&o.MaxNumber, s.MaxNumber)
	setIf(&o.ResetOnError, s.ResetOnError)
	setIf(&o.DeleteWrong, s.DeleteWrong)
	setIf(&o.Notation, s.Notation)
	setIf(&o.Base, s.Base)
	setIf(&o.SuccessTemplate, s.SuccessTemplate)
	setIf(&o.ErrorTemplate, s.ErrorTemplate)
	setIf(&o.MilestoneTemplate, s.MilestoneTemplate)
	setIf(&o.MaxReachedTemplate, s.MaxReachedTemplate)
	setIf(&o.FailureTemplate, s.FailureTemplate)
	if s.Milestones != nil {
		o.Milestones = slices.Clone(s.Milestones)
	}
	setIf(&o.FailureThreshold, s.FailureThreshold)
	setIf(&o.SuccessReaction, s.SuccessReaction)
	setIf(&o.ErrorReaction, s.ErrorReaction)
	setIf(&o.NotificationChannelID, s.NotificationChannelID)

	setIf(&o.Threshold, s.Threshold)
	setIf(&o.WindowHours, s.WindowHours)
	setIf(&o.PunishmentAction, s.PunishmentAction)
	setIf(&o.PunishmentDuration, s.PunishmentDuration)
	setIf(&o.PunishmentRoleID, s.PunishmentRoleID)
	if s.IgnoreRoles != nil {
		o.IgnoreRoles = NewRoleSet(s.IgnoreRoles...)
	}
	if s.RequiredRoles != nil {
		o.RequiredRoles = NewRoleSet(s.RequiredRoles...)
	}
	if s.BannedRoles != nil {
		o.BannedRoles = NewRoleSet(s.BannedRoles...)
	}
	setIf(&o.DeleteNonNumber, s.DeleteNonNumber)
	setIf(&o.PunishNonNumber, s.PunishNonNumber)
	setIf(&o.DeleteEdited, s.DeleteEdited)
	setIf(&o.PunishEdited, s.PunishEdited)
	setIf(&o.EditHint, s.EditHint)

	for _, f := range p.Clear {
		if err := o.clear(f); err != nil {
			return Overrides{}, err
		}
	}
	return o, nil
}

func (o *Overrides) clear(f Field) error {
	switch f {
	case FieldAllowRepeatUser:
		o.AllowRepeatUser = nil
	case FieldCooldownSeconds:
		o.CooldownSeconds = nil
	case FieldMaxNumber:
		o.MaxNumber = nil
	case FieldResetOnError:
		o.ResetOnError = nil
	case FieldDeleteWrong:
		o.DeleteWrong = nil
	case FieldNotation:
		o.Notation = nil
	case FieldBase:
		o.Base = nil
	case FieldSuccessTemplate:
		o.SuccessTemplate = nil
	case FieldErrorTemplate:
		o.ErrorTemplate = nil
	case FieldMilestoneTemplate:
		o.MilestoneTemplate = nil
	case FieldMaxReachedTemplate:
		o.MaxReachedTemplate = nil
	case FieldFailureTemplate:
		o.FailureTemplate = nil
	case FieldMilestones:
		o.Milestones = nil
	case FieldFailureThreshold:
		o.FailureThreshold = nil
	case FieldSuccessReaction:
		o.SuccessReaction = nil
	case FieldErrorReaction:
		o.ErrorReaction = nil
	case FieldNotificationChannelID:
		o.NotificationChannelID = nil
	case FieldThreshold:
		o.Threshold = nil
	case FieldWindowHours:
		o.WindowHours = nil
	case FieldPunishmentAction:
		o.PunishmentAction = nil
	case FieldPunishmentDuration:
		o.PunishmentDuration = nil
	case FieldPunishmentRoleID:
		o.PunishmentRoleID = nil
	case FieldIgnoreRoles:
		o.IgnoreRoles = nil
	case FieldRequiredRoles:
		o.RequiredRoles = nil
	case FieldBannedRoles:
		o.BannedRoles = nil
	case FieldDeleteNonNumber:
		o.DeleteNonNumber = nil
	case FieldPunishNonNumber:
		o.PunishNonNumber = nil
	case FieldDeleteEdited:
		o.DeleteEdited = nil
	case FieldPunishEdited:
		o.PunishEdited = nil
	case FieldEditHint:
		o.EditHint = nil
	default:
		return fmt.Errorf("unknown settings field %q", f)
	}
	return nil
}

func setIf[T any](dst **T, v *T) {
	if v != nil {
		c := *v
		*dst = &c
	}
}
