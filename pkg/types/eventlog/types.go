// Package eventlogtypes defines the audit event kinds. Each kind has exactly
// one payload type; the kind is never inferred from free text.
package eventlogtypes

import (
	"encoding/json"
	"fmt"
	"time"

	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/google/uuid"
)

// Kind tags an event record.
type Kind string

const (
	KindChannelSetup       Kind = "channel_setup"
	KindCountAccepted      Kind = "count_accepted"
	KindWrongNumber        Kind = "wrong_number"
	KindChannelReset       Kind = "channel_reset"
	KindMilestoneReached   Kind = "milestone_reached"
	KindMaxReached         Kind = "max_reached"
	KindSaveCreated        Kind = "save_created"
	KindSaveRestored       Kind = "save_restored"
	KindChannelDisabled    Kind = "channel_disabled"
	KindUserBanned         Kind = "user_banned"
	KindUserUnbanned       Kind = "user_unbanned"
	KindPunishmentApplied  Kind = "punishment_applied"
	KindNonNumberViolation Kind = "non_number_violation"
	KindEditViolation      Kind = "edit_violation"
)

// ViolationKinds are the kinds counted by violation reports.
var ViolationKinds = []Kind{KindWrongNumber, KindNonNumberViolation, KindEditViolation}

// Payload is the typed body of an event.
type Payload interface {
	Kind() Kind
}

type ChannelSetup struct {
	StartNumber int64 `json:"start_number"`
	Increment   int64 `json:"increment"`
}

type CountAccepted struct {
	Number      int64 `json:"number"`
	IsNewRecord bool  `json:"is_new_record"`
}

type WrongNumber struct {
	Expected   int64 `json:"expected"`
	Actual     int64 `json:"actual"`
	WrongCount int   `json:"wrong_count"`
}

// ResetReason says why a channel was reset.
type ResetReason string

const (
	ResetManual ResetReason = "manual"
	ResetError  ResetReason = "error"
)

type ChannelReset struct {
	Reason  ResetReason `json:"reason"`
	ResetTo int64       `json:"reset_to"`
}

type MilestoneReached struct {
	Milestone int64 `json:"milestone"`
}

type MaxReached struct {
	Max       int64 `json:"max"`
	Attempted int64 `json:"attempted"`
}

type SaveCreated struct {
	Name   string `json:"name"`
	Number int64  `json:"number"`
}

type SaveRestored struct {
	Name   string `json:"name"`
	Number int64  `json:"number"`
}

type ChannelDisabled struct{}

type UserBanned struct {
	Reason    string             `json:"reason"`
	BannedBy  sharedtypes.UserID `json:"banned_by"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

type UserUnbanned struct {
	UnbannedBy sharedtypes.UserID `json:"unbanned_by"`
}

type PunishmentApplied struct {
	Action          moderationtypes.Action `json:"action"`
	DurationMinutes int                    `json:"duration_minutes"`
	RoleID          sharedtypes.RoleID     `json:"role_id,omitempty"`
	TriggerCount    int                    `json:"trigger_count"`
	Tiered          bool                   `json:"tiered"`
}

type NonNumberViolation struct {
	Deleted    bool `json:"deleted"`
	WrongCount int  `json:"wrong_count"`
}

type EditViolation struct {
	Deleted    bool `json:"deleted"`
	WrongCount int  `json:"wrong_count"`
}

func (ChannelSetup) Kind() Kind       { return KindChannelSetup }
func (CountAccepted) Kind() Kind      { return KindCountAccepted }
func (WrongNumber) Kind() Kind        { return KindWrongNumber }
func (ChannelReset) Kind() Kind       { return KindChannelReset }
func (MilestoneReached) Kind() Kind   { return KindMilestoneReached }
func (MaxReached) Kind() Kind         { return KindMaxReached }
func (SaveCreated) Kind() Kind        { return KindSaveCreated }
func (SaveRestored) Kind() Kind       { return KindSaveRestored }
func (ChannelDisabled) Kind() Kind    { return KindChannelDisabled }
func (UserBanned) Kind() Kind         { return KindUserBanned }
func (UserUnbanned) Kind() Kind       { return KindUserUnbanned }
func (PunishmentApplied) Kind() Kind  { return KindPunishmentApplied }
func (NonNumberViolation) Kind() Kind { return KindNonNumberViolation }
func (EditViolation) Kind() Kind      { return KindEditViolation }

// Decode turns a stored payload back into its typed form.
func Decode(kind Kind, raw []byte) (Payload, error) {
	var p Payload
	switch kind {
	case KindChannelSetup:
		p = &ChannelSetup{}
	case KindCountAccepted:
		p = &CountAccepted{}
	case KindWrongNumber:
		p = &WrongNumber{}
	case KindChannelReset:
		p = &ChannelReset{}
	case KindMilestoneReached:
		p = &MilestoneReached{}
	case KindMaxReached:
		p = &MaxReached{}
	case KindSaveCreated:
		p = &SaveCreated{}
	case KindSaveRestored:
		p = &SaveRestored{}
	case KindChannelDisabled:
		p = &ChannelDisabled{}
	case KindUserBanned:
		p = &UserBanned{}
	case KindUserUnbanned:
		p = &UserUnbanned{}
	case KindPunishmentApplied:
		p = &PunishmentApplied{}
	case KindNonNumberViolation:
		p = &NonNumberViolation{}
	case KindEditViolation:
		p = &EditViolation{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	return p, nil
}

// Event is one entry in the audit log.
type Event struct {
	ID        uuid.UUID             `json:"id"`
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	UserID    sharedtypes.UserID    `json:"user_id,omitempty"`
	MessageID sharedtypes.MessageID `json:"message_id,omitempty"`
	OldNumber *int64                `json:"old_number,omitempty"`
	NewNumber *int64                `json:"new_number,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	Payload   Payload               `json:"-"`
}

// Kind is the kind of the payload.
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// Filter narrows List.
type Filter struct {
	Kinds  []Kind
	UserID sharedtypes.UserID
	Since  *time.Time
	Limit  int
}
