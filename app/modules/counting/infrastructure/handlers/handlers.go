package countinghandlers

import (
	"context"
	"log/slog"

	countingservice "github.com/Black-And-White-Club/counting-bot/app/modules/counting/application"
	statsservice "github.com/Black-And-White-Club/counting-bot/app/modules/stats/application"
	"github.com/Black-And-White-Club/counting-bot/pkg/eventbus"
	countingevents "github.com/Black-And-White-Club/counting-bot/pkg/events/counting"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/handlerwrapper"
)

// DefaultLeaderboardLimit applies when a request does not set one.
const DefaultLeaderboardLimit = 10

// CountingHandlers handles counting-related events.
type CountingHandlers struct {
	service countingservice.Service
	stats   statsservice.Service
	logger  *slog.Logger
}

// NewCountingHandlers creates a new instance of CountingHandlers.
func NewCountingHandlers(service countingservice.Service, stats statsservice.Service, logger *slog.Logger) Handlers {
	return &CountingHandlers{
		service: service,
		stats:   stats,
		logger:  logger,
	}
}

// HandleMessageCreated evaluates a posted message. Bot messages are dropped.
func (h *CountingHandlers) HandleMessageCreated(
	ctx context.Context,
	payload *countingevents.MessageCreatedPayloadV1,
) ([]handlerwrapper.Result, error) {
	if payload.IsBot {
		return nil, nil
	}

	res, err := h.service.Submit(ctx, countingtypes.Submission{
		GuildID:     payload.GuildID,
		ChannelID:   payload.ChannelID,
		UserID:      payload.UserID,
		MessageID:   payload.MessageID,
		Content:     payload.Content,
		MemberRoles: payload.MemberRoles,
		SubmittedAt: payload.SentAt,
	})
	if err != nil {
		return nil, err
	}

	h.logger.DebugContext(ctx, "Submission evaluated",
		attr.ExtractCorrelationID(ctx),
		attr.ChannelID("channel_id", payload.ChannelID),
		attr.UserID("user_id", payload.UserID),
		attr.String("outcome", string(res.Outcome)),
	)

	return domainEvents(payload, res), nil
}

// domainEvents turns an evaluated submission into guild-scoped bus events.
func domainEvents(payload *countingevents.MessageCreatedPayloadV1, res countingtypes.Result) []handlerwrapper.Result {
	guild := string(payload.GuildID)
	switch res.Outcome {
	case countingtypes.OutcomeAccepted:
		out := []handlerwrapper.Result{{
			Topic: eventbus.FormatGuildScopedTopic(countingevents.CountAcceptedV1, guild),
			Payload: &countingevents.CountAcceptedPayloadV1{
				GuildID:     payload.GuildID,
				ChannelID:   payload.ChannelID,
				UserID:      payload.UserID,
				Number:      *res.Actual,
				IsNewRecord: res.IsNewRecord,
			},
		}}
		if res.Milestone != nil {
			out = append(out, handlerwrapper.Result{
				Topic: eventbus.FormatGuildScopedTopic(countingevents.MilestoneReachedV1, guild),
				Payload: &countingevents.MilestoneReachedPayloadV1{
					GuildID:   payload.GuildID,
					ChannelID: payload.ChannelID,
					UserID:    payload.UserID,
					Milestone: *res.Milestone,
				},
			})
		}
		return out
	case countingtypes.OutcomeWrongNumber:
		return []handlerwrapper.Result{{
			Topic: eventbus.FormatGuildScopedTopic(countingevents.WrongNumberV1, guild),
			Payload: &countingevents.WrongNumberPayloadV1{
				GuildID:      payload.GuildID,
				ChannelID:    payload.ChannelID,
				UserID:       payload.UserID,
				Expected:     *res.Expected,
				Actual:       *res.Actual,
				ChannelReset: res.ChannelReset,
			},
		}}
	}
	return nil
}

// HandleMessageUpdated applies the edit policy. It produces no events.
func (h *CountingHandlers) HandleMessageUpdated(
	ctx context.Context,
	payload *countingevents.MessageUpdatedPayloadV1,
) ([]handlerwrapper.Result, error) {
	if payload.IsBot {
		return nil, nil
	}
	_, err := h.service.SubmitEdit(ctx, countingtypes.Submission{
		GuildID:     payload.GuildID,
		ChannelID:   payload.ChannelID,
		UserID:      payload.UserID,
		MessageID:   payload.MessageID,
		Content:     payload.Content,
		MemberRoles: payload.MemberRoles,
		SubmittedAt: payload.EditedAt,
	})
	return nil, err
}

// HandleChannelSetupRequested sets up a channel and replies with its state.
func (h *CountingHandlers) HandleChannelSetupRequested(
	ctx context.Context,
	payload *countingevents.ChannelSetupRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	resp := &countingevents.ChannelSetupResponsePayloadV1{
		GuildID:   payload.GuildID,
		ChannelID: payload.ChannelID,
	}
	state, err := h.service.SetupChannel(ctx, countingtypes.SetupRequest{
		GuildID:     payload.GuildID,
		ChannelID:   payload.ChannelID,
		StartNumber: payload.StartNumber,
		Increment:   payload.Increment,
		RequestedBy: payload.RequestedBy,
	})
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.State = state
	}
	return []handlerwrapper.Result{{Topic: replyTopic(ctx, countingevents.ChannelSetupResponseV1), Payload: resp}}, nil
}

// HandleChannelResetRequested resets a channel and replies with its state.
func (h *CountingHandlers) HandleChannelResetRequested(
	ctx context.Context,
	payload *countingevents.ChannelResetRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	resp := &countingevents.ChannelResetResponsePayloadV1{
		GuildID:   payload.GuildID,
		ChannelID: payload.ChannelID,
	}
	state, err := h.service.ResetChannel(ctx, payload.ChannelID, payload.RequestedBy)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.State = state
	}
	return []handlerwrapper.Result{{Topic: replyTopic(ctx, countingevents.ChannelResetResponseV1), Payload: resp}}, nil
}

// HandleLeaderboardRequested returns the channel leaderboard.
func (h *CountingHandlers) HandleLeaderboardRequested(
	ctx context.Context,
	payload *countingevents.LeaderboardRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	metric := payload.Metric
	if metric == "" {
		metric = statstypes.MetricContributions
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	resp := &countingevents.LeaderboardResponsePayloadV1{
		GuildID:   payload.GuildID,
		ChannelID: payload.ChannelID,
		Metric:    metric,
	}
	entries, err := h.stats.Leaderboard(ctx, payload.ChannelID, metric, limit)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Entries = entries
	}
	return []handlerwrapper.Result{{Topic: replyTopic(ctx, countingevents.LeaderboardResponseV1), Payload: resp}}, nil
}

// replyTopic honours the sender's reply_to for request-reply callers.
func replyTopic(ctx context.Context, fallback string) string {
	if replyTo, ok := ctx.Value(handlerwrapper.CtxKeyReplyTo).(string); ok && replyTo != "" {
		return replyTo
	}
	return fallback
}
