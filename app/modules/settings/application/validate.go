package settingsservice

import (
	"errors"
	"fmt"

	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
)

// ErrInvalidSetting wraps every rejected override value.
var ErrInvalidSetting = errors.New("invalid setting")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSetting, fmt.Sprintf(format, args...))
}

// validateOverrides checks the set fields of one level. Unset fields are
// always valid.
func validateOverrides(o settingstypes.Overrides) error {
	if o.CooldownSeconds != nil && *o.CooldownSeconds < 0 {
		return invalid("cooldown_seconds must not be negative")
	}
	if o.MaxNumber != nil && *o.MaxNumber < 0 {
		return invalid("max_number must not be negative")
	}
	if o.Notation != nil && !o.Notation.Valid() {
		return invalid("unknown notation %q", *o.Notation)
	}
	if o.Base != nil && (*o.Base < 2 || *o.Base > 36) {
		return invalid("base must be between 2 and 36")
	}
	for _, m := range o.Milestones {
		if m <= 0 {
			return invalid("milestones must be positive")
		}
	}
	if o.FailureThreshold != nil && *o.FailureThreshold < 0 {
		return invalid("failure_threshold must not be negative")
	}
	if o.Threshold != nil && *o.Threshold < 0 {
		return invalid("threshold must not be negative")
	}
	if o.WindowHours != nil && (*o.WindowHours <= 0 || *o.WindowHours > moderationtypes.MaxWindowHours) {
		return invalid("window_hours must be between 1 and %d", moderationtypes.MaxWindowHours)
	}
	if o.PunishmentAction != nil && *o.PunishmentAction != moderationtypes.ActionNone && !o.PunishmentAction.Valid() {
		return invalid("unknown punishment action %q", *o.PunishmentAction)
	}
	if o.PunishmentDuration != nil {
		if *o.PunishmentDuration < 0 {
			return invalid("punishment_duration must not be negative")
		}
		if *o.PunishmentDuration > moderationtypes.MaxPunishmentMinutes {
			return invalid("punishment_duration exceeds the maximum")
		}
	}
	return nil
}
