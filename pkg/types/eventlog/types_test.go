package eventlogtypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoundTripsEveryKind(t *testing.T) {
	payloads := []Payload{
		ChannelSetup{StartNumber: 1, Increment: 1},
		CountAccepted{Number: 5, IsNewRecord: true},
		WrongNumber{Expected: 6, Actual: 7, WrongCount: 2},
		ChannelReset{Reason: ResetError, ResetTo: 0},
		MilestoneReached{Milestone: 100},
		MaxReached{Max: 10, Attempted: 11},
		SaveCreated{Name: "before-raid", Number: 42},
		SaveRestored{Name: "before-raid", Number: 42},
		ChannelDisabled{},
		UserBanned{Reason: "spam", BannedBy: "1"},
		UserUnbanned{UnbannedBy: "1"},
		PunishmentApplied{Action: "timeout", DurationMinutes: 5, TriggerCount: 3, Tiered: true},
		NonNumberViolation{Deleted: true, WrongCount: 1},
		EditViolation{WrongCount: 1},
	}

	for _, p := range payloads {
		t.Run(string(p.Kind()), func(t *testing.T) {
			raw, err := json.Marshal(p)
			require.NoError(t, err)

			got, err := Decode(p.Kind(), raw)
			require.NoError(t, err)
			assert.Equal(t, p.Kind(), got.Kind())
		})
	}
}

func TestDecode_BannedAndUnbannedAreDistinctKinds(t *testing.T) {
	banned, err := Decode(KindUserBanned, []byte(`{"reason":"spam"}`))
	require.NoError(t, err)
	unbanned, err := Decode(KindUserUnbanned, []byte(`{"unbanned_by":"9"}`))
	require.NoError(t, err)

	b, ok := banned.(*UserBanned)
	require.True(t, ok)
	assert.Equal(t, "spam", b.Reason)

	u, ok := unbanned.(*UserUnbanned)
	require.True(t, ok)
	assert.EqualValues(t, "9", u.UnbannedBy)
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode("mystery", nil)
	assert.Error(t, err)
}

func TestEvent_KindWithoutPayload(t *testing.T) {
	assert.Equal(t, Kind(""), Event{}.Kind())
}
