package countinghandlers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	countingevents "github.com/Black-And-White-Club/counting-bot/pkg/events/counting"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/handlerwrapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func newMessage() *countingevents.MessageCreatedPayloadV1 {
	return &countingevents.MessageCreatedPayloadV1{
		GuildID:   "100",
		ChannelID: "200",
		UserID:    "300",
		MessageID: "400",
		Content:   "7",
		SentAt:    time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleMessageCreated(t *testing.T) {
	tests := []struct {
		name   string
		result countingtypes.Result
		topics []string
	}{
		{
			name:   "accepted",
			result: countingtypes.Result{Outcome: countingtypes.OutcomeAccepted, Expected: int64Ptr(7), Actual: int64Ptr(7)},
			topics: []string{countingevents.CountAcceptedV1 + ".100"},
		},
		{
			name:   "accepted milestone",
			result: countingtypes.Result{Outcome: countingtypes.OutcomeAccepted, Expected: int64Ptr(7), Actual: int64Ptr(7), Milestone: int64Ptr(7)},
			topics: []string{countingevents.CountAcceptedV1 + ".100", countingevents.MilestoneReachedV1 + ".100"},
		},
		{
			name:   "wrong number",
			result: countingtypes.Result{Outcome: countingtypes.OutcomeWrongNumber, Expected: int64Ptr(6), Actual: int64Ptr(7), ChannelReset: true},
			topics: []string{countingevents.WrongNumberV1 + ".100"},
		},
		{
			name:   "cooldown emits nothing",
			result: countingtypes.Result{Outcome: countingtypes.OutcomeCooldown, Expected: int64Ptr(7)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeCountingService{Result: tt.result}
			h := NewCountingHandlers(svc, &FakeStatsService{}, slog.Default())

			results, err := h.HandleMessageCreated(context.Background(), newMessage())
			require.NoError(t, err)

			var topics []string
			for _, r := range results {
				topics = append(topics, r.Topic)
			}
			assert.Equal(t, tt.topics, topics)
			require.Len(t, svc.Submitted, 1)
			assert.Equal(t, "7", svc.Submitted[0].Content)
		})
	}
}

func TestHandleMessageCreated_WrongNumberPayload(t *testing.T) {
	svc := &FakeCountingService{Result: countingtypes.Result{
		Outcome: countingtypes.OutcomeWrongNumber, Expected: int64Ptr(6), Actual: int64Ptr(7), ChannelReset: true,
	}}
	h := NewCountingHandlers(svc, &FakeStatsService{}, slog.Default())

	results, err := h.HandleMessageCreated(context.Background(), newMessage())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, &countingevents.WrongNumberPayloadV1{
		GuildID: "100", ChannelID: "200", UserID: "300", Expected: 6, Actual: 7, ChannelReset: true,
	}, results[0].Payload)
}

func TestHandleMessageCreated_SkipsBots(t *testing.T) {
	svc := &FakeCountingService{}
	h := NewCountingHandlers(svc, &FakeStatsService{}, slog.Default())

	msg := newMessage()
	msg.IsBot = true
	results, err := h.HandleMessageCreated(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, svc.Submitted)
}

func TestHandleMessageCreated_ServiceErrorIsReturned(t *testing.T) {
	svc := &FakeCountingService{Err: errors.New("db down")}
	h := NewCountingHandlers(svc, &FakeStatsService{}, slog.Default())

	_, err := h.HandleMessageCreated(context.Background(), newMessage())
	assert.Error(t, err)
}

func TestHandleMessageUpdated(t *testing.T) {
	svc := &FakeCountingService{}
	h := NewCountingHandlers(svc, &FakeStatsService{}, slog.Default())

	results, err := h.HandleMessageUpdated(context.Background(), &countingevents.MessageUpdatedPayloadV1{
		GuildID: "100", ChannelID: "200", UserID: "300", MessageID: "400", Content: "8",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	require.Len(t, svc.Edited, 1)
	assert.Equal(t, "8", svc.Edited[0].Content)
}

func TestHandleChannelSetupRequested(t *testing.T) {
	state := &countingtypes.ChannelState{ChannelID: "200", CurrentNumber: 0, Increment: 1, StartNumber: 1, IsActive: true}

	t.Run("success uses reply_to", func(t *testing.T) {
		h := NewCountingHandlers(&FakeCountingService{State: state}, &FakeStatsService{}, slog.Default())
		ctx := context.WithValue(context.Background(), handlerwrapper.CtxKeyReplyTo, "_INBOX.abc")

		results, err := h.HandleChannelSetupRequested(ctx, &countingevents.ChannelSetupRequestedPayloadV1{
			GuildID: "100", ChannelID: "200", StartNumber: 1,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "_INBOX.abc", results[0].Topic)
		resp := results[0].Payload.(*countingevents.ChannelSetupResponsePayloadV1)
		assert.Equal(t, state, resp.State)
		assert.Empty(t, resp.Error)
	})

	t.Run("failure is reported in the response", func(t *testing.T) {
		h := NewCountingHandlers(&FakeCountingService{Err: errors.New("nope")}, &FakeStatsService{}, slog.Default())

		results, err := h.HandleChannelSetupRequested(context.Background(), &countingevents.ChannelSetupRequestedPayloadV1{
			GuildID: "100", ChannelID: "200",
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, countingevents.ChannelSetupResponseV1, results[0].Topic)
		resp := results[0].Payload.(*countingevents.ChannelSetupResponsePayloadV1)
		assert.Nil(t, resp.State)
		assert.Equal(t, "nope", resp.Error)
	})
}

func TestHandleChannelResetRequested(t *testing.T) {
	state := &countingtypes.ChannelState{ChannelID: "200", IsActive: true}
	h := NewCountingHandlers(&FakeCountingService{State: state}, &FakeStatsService{}, slog.Default())

	results, err := h.HandleChannelResetRequested(context.Background(), &countingevents.ChannelResetRequestedPayloadV1{
		GuildID: "100", ChannelID: "200", RequestedBy: "9",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, countingevents.ChannelResetResponseV1, results[0].Topic)
	assert.Equal(t, state, results[0].Payload.(*countingevents.ChannelResetResponsePayloadV1).State)
}

func TestHandleLeaderboardRequested_Defaults(t *testing.T) {
	stats := &FakeStatsService{Entries: []statstypes.LeaderboardEntry{{Rank: 1, UserID: "300", Contributions: 5}}}
	h := NewCountingHandlers(&FakeCountingService{}, stats, slog.Default())

	results, err := h.HandleLeaderboardRequested(context.Background(), &countingevents.LeaderboardRequestedPayloadV1{
		GuildID: "100", ChannelID: "200",
	})
	require.NoError(t, err)
	assert.Equal(t, statstypes.MetricContributions, stats.GotMetric)
	assert.Equal(t, DefaultLeaderboardLimit, stats.GotLimit)

	require.Len(t, results, 1)
	resp := results[0].Payload.(*countingevents.LeaderboardResponsePayloadV1)
	assert.Equal(t, stats.Entries, resp.Entries)
	assert.Equal(t, statstypes.MetricContributions, resp.Metric)
}
