package countingtypes

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
)

// Notation is the textual encoding a counting channel accepts.
type Notation string

const (
	NotationNormal    Notation = "normal"
	NotationRoman     Notation = "roman"
	NotationBinary    Notation = "binary"
	NotationHex       Notation = "hex"
	NotationWords     Notation = "words"
	NotationFibonacci Notation = "fibonacci"
	NotationPrimes    Notation = "primes"
)

// Valid reports whether n is a known notation.
func (n Notation) Valid() bool {
	switch n {
	case NotationNormal, NotationRoman, NotationBinary, NotationHex,
		NotationWords, NotationFibonacci, NotationPrimes:
		return true
	}
	return false
}

// Outcome is the terminal state of one submission.
type Outcome string

const (
	OutcomeNotSetup       Outcome = "not_setup"
	OutcomeBanned         Outcome = "banned"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeCooldown       Outcome = "cooldown"
	OutcomeSameUserRepeat Outcome = "same_user_repeat"
	OutcomeInvalidFormat  Outcome = "invalid_format"
	OutcomeNonNumber      Outcome = "non_number"
	OutcomeWrongNumber    Outcome = "wrong_number"
	OutcomeMaxReached     Outcome = "max_reached"
	OutcomeAccepted       Outcome = "accepted"
)

// Submission is one chat message evaluated by the engine.
type Submission struct {
	GuildID     sharedtypes.GuildID
	ChannelID   sharedtypes.ChannelID
	UserID      sharedtypes.UserID
	MessageID   sharedtypes.MessageID
	Content     string
	MemberRoles []sharedtypes.RoleID
	SubmittedAt time.Time
}

// Result is the structured outcome of Submit. Expected and Actual are set
// whenever the engine got far enough to know them.
type Result struct {
	Outcome     Outcome `json:"outcome"`
	Expected    *int64  `json:"expected,omitempty"`
	Actual      *int64  `json:"actual,omitempty"`
	IsNewRecord bool    `json:"is_new_record,omitempty"`
	Milestone   *int64  `json:"milestone,omitempty"`
	// WrongCount is the user's violation count inside the rolling window.
	WrongCount int `json:"wrong_count,omitempty"`
	// ChannelReset is set when a wrong number reset the channel.
	ChannelReset bool `json:"channel_reset,omitempty"`
}

// SetupRequest creates or re-arms a counting channel. A zero Increment
// means 1.
type SetupRequest struct {
	GuildID     sharedtypes.GuildID   `json:"guild_id"`
	ChannelID   sharedtypes.ChannelID `json:"channel_id"`
	StartNumber int64                 `json:"start_number"`
	Increment   int64                 `json:"increment"`
	RequestedBy sharedtypes.UserID    `json:"requested_by"`
}

// ChannelState is a counting channel's progress.
type ChannelState struct {
	GuildID           sharedtypes.GuildID   `json:"guild_id"`
	ChannelID         sharedtypes.ChannelID `json:"channel_id"`
	CurrentNumber     int64                 `json:"current_number"`
	Increment         int64                 `json:"increment"`
	StartNumber       int64                 `json:"start_number"`
	LastContributorID sharedtypes.UserID    `json:"last_contributor_id,omitempty"`
	LastMessageID     sharedtypes.MessageID `json:"last_message_id,omitempty"`
	HighestNumber     int64                 `json:"highest_number"`
	HighestReachedAt  *time.Time            `json:"highest_reached_at,omitempty"`
	TotalCounts       int64                 `json:"total_counts"`
	IsActive          bool                  `json:"is_active"`
}

// Expected is the only value the next submission may carry.
func (c ChannelState) Expected() int64 { return c.CurrentNumber + c.Increment }

// ResetValue is the current number a fresh or reset channel holds, so that
// the next accepted submission is StartNumber.
func (c ChannelState) ResetValue() int64 { return c.StartNumber - c.Increment }

// SavePoint is a named snapshot of a channel's current number.
type SavePoint struct {
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	Name      string                `json:"name"`
	Number    int64                 `json:"number"`
	CreatedBy sharedtypes.UserID    `json:"created_by"`
	CreatedAt time.Time             `json:"created_at"`
}

// ChannelStats aggregates channel progress with participation totals.
type ChannelStats struct {
	State            ChannelState        `json:"state"`
	Participants     int                 `json:"participants"`
	TotalErrors      int64               `json:"total_errors"`
	TopContributor   *sharedtypes.UserID `json:"top_contributor,omitempty"`
	TopContributions int64               `json:"top_contributions"`
	SavePoints       int                 `json:"save_points"`
}
