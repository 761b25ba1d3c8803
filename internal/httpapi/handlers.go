package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	countingservice "github.com/Black-And-White-Club/counting-bot/app/modules/counting/application"
	statsservice "github.com/Black-And-White-Club/counting-bot/app/modules/stats/application"
	statsdb "github.com/Black-And-White-Club/counting-bot/app/modules/stats/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/go-chi/chi/v5"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ChannelReader is the read side of the counting engine.
type ChannelReader interface {
	GetChannelState(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelState, error)
	GetChannelStats(ctx context.Context, channelID sharedtypes.ChannelID) (*countingtypes.ChannelStats, error)
}

// StatsReader is the read side of the stats engine.
type StatsReader interface {
	GetUserStats(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statstypes.UserStats, error)
	Leaderboard(ctx context.Context, channelID sharedtypes.ChannelID, metric statstypes.Metric, limit int) ([]statstypes.LeaderboardEntry, error)
	Rank(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error)
	LatestSnapshot(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error)
}

// ViolationReader reports moderation activity.
type ViolationReader interface {
	GetViolationStats(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) (moderationtypes.ViolationStats, error)
}

// Handlers serves the operator API.
type Handlers struct {
	channels   ChannelReader
	stats      StatsReader
	violations ViolationReader
	logger     *slog.Logger
}

// NewHandlers creates the operator API handlers.
func NewHandlers(channels ChannelReader, stats StatsReader, violations ViolationReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		channels:   channels,
		stats:      stats,
		violations: violations,
		logger:     logger,
	}
}

type userStatsResponse struct {
	Stats *statstypes.UserStats `json:"stats"`
	Rank  int                   `json:"rank"`
}

// authorize loads the channel and checks the caller's guild scope. It writes
// the error response itself and returns nil when the request must stop.
func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request) *countingtypes.ChannelState {
	channelID := sharedtypes.ChannelID(chi.URLParam(r, "channelID"))
	state, err := h.channels.GetChannelState(r.Context(), channelID)
	if err != nil {
		h.fail(w, r, err)
		return nil
	}

	claims, ok := ClaimsFrom(r.Context())
	if !ok || !claims.CanRead(string(state.GuildID)) {
		writeError(w, http.StatusForbidden, "no access to this guild")
		return nil
	}
	return state
}

// HandleChannelStats serves GET /channels/{channelID}.
func (h *Handlers) HandleChannelStats(w http.ResponseWriter, r *http.Request) {
	state := h.authorize(w, r)
	if state == nil {
		return
	}

	stats, err := h.channels.GetChannelStats(r.Context(), state.ChannelID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleLeaderboard serves GET /channels/{channelID}/leaderboard.
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	state := h.authorize(w, r)
	if state == nil {
		return
	}

	metric := statstypes.MetricContributions
	if m := r.URL.Query().Get("metric"); m != "" {
		metric = statstypes.Metric(m)
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	entries, err := h.stats.Leaderboard(r.Context(), state.ChannelID, metric, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleSnapshot serves GET /channels/{channelID}/leaderboard/snapshot.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	state := h.authorize(w, r)
	if state == nil {
		return
	}

	snap, err := h.stats.LatestSnapshot(r.Context(), state.ChannelID)
	if errors.Is(err, statsdb.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no snapshot taken yet")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleUserStats serves GET /channels/{channelID}/users/{userID}.
func (h *Handlers) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	state := h.authorize(w, r)
	if state == nil {
		return
	}

	userID := sharedtypes.UserID(chi.URLParam(r, "userID"))
	stats, err := h.stats.GetUserStats(r.Context(), state.ChannelID, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rank, err := h.stats.Rank(r.Context(), state.ChannelID, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userStatsResponse{Stats: stats, Rank: rank})
}

// HandleViolations serves GET /channels/{channelID}/violations.
func (h *Handlers) HandleViolations(w http.ResponseWriter, r *http.Request) {
	state := h.authorize(w, r)
	if state == nil {
		return
	}

	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = &t
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	report, err := h.violations.GetViolationStats(r.Context(), state.ChannelID, since, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return 0, false
	}
	return n, true
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, countingservice.ErrNotSetup):
		writeError(w, http.StatusNotFound, "channel is not set up for counting")
	case errors.Is(err, statsservice.ErrNoStats):
		writeError(w, http.StatusNotFound, "no stats for user")
	case errors.Is(err, statsservice.ErrUnknownMetric):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Operator API request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
