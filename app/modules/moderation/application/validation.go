package moderationservice

import (
	"fmt"

	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
)

// ValidationError rejects a tiered punishment before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid tiered punishment: %s %s", e.Field, e.Reason)
}

// ValidateTier checks a tiered punishment definition.
func ValidateTier(t moderationtypes.TieredPunishment) error {
	if t.GuildID == "" {
		return &ValidationError{Field: "guild_id", Reason: "is required"}
	}
	if t.TriggerCount <= 0 {
		return &ValidationError{Field: "trigger_count", Reason: "must be greater than zero"}
	}
	if !t.Action.Valid() {
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("%q is not a punishment", t.Action)}
	}
	if t.DurationMinutes < 0 {
		return &ValidationError{Field: "duration_minutes", Reason: "must not be negative"}
	}
	if t.DurationMinutes > moderationtypes.MaxPunishmentMinutes {
		return &ValidationError{Field: "duration_minutes", Reason: "must not exceed 49 days"}
	}
	if t.Action.Instantaneous() && t.DurationMinutes != 0 {
		return &ValidationError{Field: "duration_minutes", Reason: fmt.Sprintf("must be 0 for %s", t.Action)}
	}
	switch t.Action {
	case moderationtypes.ActionTimeout, moderationtypes.ActionMute:
		if t.DurationMinutes == 0 {
			return &ValidationError{Field: "duration_minutes", Reason: fmt.Sprintf("is required for %s", t.Action)}
		}
	case moderationtypes.ActionAddRole:
		if t.RoleID == "" {
			return &ValidationError{Field: "role_id", Reason: "is required for add_role"}
		}
	}
	return nil
}
