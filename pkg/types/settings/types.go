package settingstypes

import (
	"sort"
	"strings"
	"unicode"

	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// RoleSet is a sorted, duplicate-free set of role IDs.
type RoleSet []sharedtypes.RoleID

// NewRoleSet normalizes ids into a RoleSet.
func NewRoleSet(ids ...sharedtypes.RoleID) RoleSet {
	seen := make(map[sharedtypes.RoleID]struct{}, len(ids))
	out := make(RoleSet, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseRoleList splits a delimited list of role IDs. Tokens that are not
// purely numeric are dropped.
func ParseRoleList(s string) RoleSet {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	ids := make([]sharedtypes.RoleID, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(f, "<@&"), ">"))
		if f == "" || strings.IndexFunc(f, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			continue
		}
		ids = append(ids, sharedtypes.RoleID(f))
	}
	return NewRoleSet(ids...)
}

// String joins the set with commas.
func (s RoleSet) String() string {
	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// Contains reports membership.
func (s RoleSet) Contains(id sharedtypes.RoleID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Intersects reports whether any of roles is in s.
func (s RoleSet) Intersects(roles []sharedtypes.RoleID) bool {
	for _, r := range roles {
		if s.Contains(r) {
			return true
		}
	}
	return false
}

// Strings exposes the set for storage as a text array.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, id := range s {
		out[i] = string(id)
	}
	return out
}

// RoleSetFromStrings is the inverse of Strings.
func RoleSetFromStrings(values []string) RoleSet {
	ids := make([]sharedtypes.RoleID, len(values))
	for i, v := range values {
		ids[i] = sharedtypes.RoleID(v)
	}
	return NewRoleSet(ids...)
}

// Templates are the outbound message templates. Placeholders: {user},
// {number}, {expected}, {milestone}, {max}, {failures}.
type Templates struct {
	Success    string `json:"success"`
	Error      string `json:"error"`
	Milestone  string `json:"milestone"`
	MaxReached string `json:"max_reached"`
	Failure    string `json:"failure"`
}

// CountingConfig is the effective counting configuration of a channel.
type CountingConfig struct {
	AllowRepeatUser       bool                   `json:"allow_repeat_user"`
	CooldownSeconds       int                    `json:"cooldown_seconds"`
	MaxNumber             int64                  `json:"max_number"`
	ResetOnError          bool                   `json:"reset_on_error"`
	DeleteWrong           bool                   `json:"delete_wrong"`
	Notation              countingtypes.Notation `json:"notation"`
	Base                  int                    `json:"base"`
	Templates             Templates              `json:"templates"`
	Milestones            []int64                `json:"milestones"`
	FailureThreshold      int                    `json:"failure_threshold"`
	SuccessReaction       string                 `json:"success_reaction"`
	ErrorReaction         string                 `json:"error_reaction"`
	NotificationChannelID sharedtypes.ChannelID  `json:"notification_channel_id,omitempty"`
}

// IsMilestone reports whether n is in the milestone list.
func (c CountingConfig) IsMilestone(n int64) bool {
	for _, m := range c.Milestones {
		if m == n {
			return true
		}
	}
	return false
}

// ModerationConfig is the effective moderation configuration of a channel.
type ModerationConfig struct {
	Threshold          int                    `json:"threshold"`
	WindowHours        int                    `json:"window_hours"`
	PunishmentAction   moderationtypes.Action `json:"punishment_action"`
	PunishmentDuration int                    `json:"punishment_duration"`
	PunishmentRoleID   sharedtypes.RoleID     `json:"punishment_role_id,omitempty"`
	IgnoreRoles        RoleSet                `json:"ignore_roles"`
	RequiredRoles      RoleSet                `json:"required_roles"`
	BannedRoles        RoleSet                `json:"banned_roles"`
	DeleteNonNumber    bool                   `json:"delete_non_number"`
	PunishNonNumber    bool                   `json:"punish_non_number"`
	DeleteEdited       bool                   `json:"delete_edited"`
	PunishEdited       bool                   `json:"punish_edited"`
	EditHint           bool                   `json:"edit_hint"`
}

// EffectiveConfig is the merged configuration the engine runs with.
type EffectiveConfig struct {
	GuildID    sharedtypes.GuildID   `json:"guild_id"`
	ChannelID  sharedtypes.ChannelID `json:"channel_id"`
	Counting   CountingConfig        `json:"counting"`
	Moderation ModerationConfig      `json:"moderation"`
}

// Overrides holds one level of configuration. A nil field is unset and
// defers to the next level.
type Overrides struct {
	AllowRepeatUser       *bool                   `json:"allow_repeat_user,omitempty"`
	CooldownSeconds       *int                    `json:"cooldown_seconds,omitempty"`
	MaxNumber             *int64                  `json:"max_number,omitempty"`
	ResetOnError          *bool                   `json:"reset_on_error,omitempty"`
	DeleteWrong           *bool                   `json:"delete_wrong,omitempty"`
	Notation              *countingtypes.Notation `json:"notation,omitempty"`
	Base                  *int                    `json:"base,omitempty"`
	SuccessTemplate       *string                 `json:"success_template,omitempty"`
	ErrorTemplate         *string                 `json:"error_template,omitempty"`
	MilestoneTemplate     *string                 `json:"milestone_template,omitempty"`
	MaxReachedTemplate    *string                 `json:"max_reached_template,omitempty"`
	FailureTemplate       *string                 `json:"failure_template,omitempty"`
	Milestones            []int64                 `json:"milestones"`
	FailureThreshold      *int                    `json:"failure_threshold,omitempty"`
	SuccessReaction       *string                 `json:"success_reaction,omitempty"`
	ErrorReaction         *string                 `json:"error_reaction,omitempty"`
	NotificationChannelID *sharedtypes.ChannelID  `json:"notification_channel_id,omitempty"`

	Threshold          *int                    `json:"threshold,omitempty"`
	WindowHours        *int                    `json:"window_hours,omitempty"`
	PunishmentAction   *moderationtypes.Action `json:"punishment_action,omitempty"`
	PunishmentDuration *int                    `json:"punishment_duration,omitempty"`
	PunishmentRoleID   *sharedtypes.RoleID     `json:"punishment_role_id,omitempty"`
	IgnoreRoles        RoleSet                 `json:"ignore_roles"`
	RequiredRoles      RoleSet                 `json:"required_roles"`
	BannedRoles        RoleSet                 `json:"banned_roles"`
	DeleteNonNumber    *bool                   `json:"delete_non_number,omitempty"`
	PunishNonNumber    *bool                   `json:"punish_non_number,omitempty"`
	DeleteEdited       *bool                   `json:"delete_edited,omitempty"`
	PunishEdited       *bool                   `json:"punish_edited,omitempty"`
	EditHint           *bool                   `json:"edit_hint,omitempty"`
}

// Field names an overridable setting for Patch.Clear.
type Field string

const (
	FieldAllowRepeatUser       Field = "allow_repeat_user"
	FieldCooldownSeconds       Field = "cooldown_seconds"
	FieldMaxNumber             Field = "max_number"
	FieldResetOnError          Field = "reset_on_error"
	FieldDeleteWrong           Field = "delete_wrong"
	FieldNotation              Field = "notation"
	FieldBase                  Field = "base"
	FieldSuccessTemplate       Field = "success_template"
	FieldErrorTemplate         Field = "error_template"
	FieldMilestoneTemplate     Field = "milestone_template"
	FieldMaxReachedTemplate    Field = "max_reached_template"
	FieldFailureTemplate       Field = "failure_template"
	FieldMilestones            Field = "milestones"
	FieldFailureThreshold      Field = "failure_threshold"
	FieldSuccessReaction       Field = "success_reaction"
	FieldErrorReaction         Field = "error_reaction"
	FieldNotificationChannelID Field = "notification_channel_id"
	FieldThreshold             Field = "threshold"
	FieldWindowHours           Field = "window_hours"
	FieldPunishmentAction      Field = "punishment_action"
	FieldPunishmentDuration    Field = "punishment_duration"
	FieldPunishmentRoleID      Field = "punishment_role_id"
	FieldIgnoreRoles           Field = "ignore_roles"
	FieldRequiredRoles         Field = "required_roles"
	FieldBannedRoles           Field = "banned_roles"
	FieldDeleteNonNumber       Field = "delete_non_number"
	FieldPunishNonNumber       Field = "punish_non_number"
	FieldDeleteEdited          Field = "delete_edited"
	FieldPunishEdited          Field = "punish_edited"
	FieldEditHint              Field = "edit_hint"
)

// Patch sets the non-nil fields of Set and clears the fields named in Clear.
// A field both set and cleared is cleared.
type Patch struct {
	Set   Overrides `json:"set"`
	Clear []Field   `json:"clear,omitempty"`
}
