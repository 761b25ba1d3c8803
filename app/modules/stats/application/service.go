package statsservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	statsdb "github.com/Black-And-White-Club/counting-bot/app/modules/stats/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	statstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/stats"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/results"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnknownMetric is returned for a leaderboard metric that does not exist.
	ErrUnknownMetric = errors.New("unknown leaderboard metric")

	// ErrNoStats means the user has never submitted in the channel.
	ErrNoStats = errors.New("no stats for user")
)

const (
	// DefaultCacheTTL applies when the service is built with a zero TTL.
	DefaultCacheTTL = 5 * time.Minute

	// SnapshotSize bounds the entries kept per snapshot.
	SnapshotSize = 25
)

var metricOrder = map[statstypes.Metric]string{
	statstypes.MetricContributions:       "contributions DESC",
	statstypes.MetricHighestStreak:       "highest_streak DESC",
	statstypes.MetricAccuracy:            "accuracy DESC",
	statstypes.MetricTotalNumbersCounted: "total_numbers_counted DESC",
}

func userKey(channelID sharedtypes.ChannelID, userID sharedtypes.UserID) string {
	return "stats:user:" + string(channelID) + ":" + string(userID)
}

// StatsService implements the Service interface.
type StatsService struct {
	repo    statsdb.Repository
	logger  *slog.Logger
	metrics operationmetrics.Metrics
	tracer  trace.Tracer
	db      *bun.DB
	clock   clockwork.Clock
	users   *cache.Loader[statstypes.UserStats]
}

var _ Service = (*StatsService)(nil)

// NewStatsService creates a new StatsService. A nil store disables caching.
func NewStatsService(
	repo statsdb.Repository,
	logger *slog.Logger,
	metrics operationmetrics.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
	clock clockwork.Clock,
	store cache.Store,
	ttl time.Duration,
) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &StatsService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		clock:   clock,
		users:   cache.NewLoader[statstypes.UserStats](store, ttl, logger),
	}
}

// OnSuccess credits an accepted submission.
func (s *StatsService) OnSuccess(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, increment int64, at time.Time) error {
	return s.mutate(ctx, db, "OnSuccess", guildID, channelID, userID, func(st *statstypes.UserStats) {
		st.RecordSuccess(increment, at)
	})
}

// OnError charges a wrong submission.
func (s *StatsService) OnError(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error {
	return s.mutate(ctx, db, "OnError", guildID, channelID, userID, func(st *statstypes.UserStats) {
		st.RecordError()
	})
}

// mutate is the shared read-lock-modify-write of OnSuccess and OnError.
func (s *StatsService) mutate(
	ctx context.Context,
	db bun.IDB,
	operationName string,
	guildID sharedtypes.GuildID,
	channelID sharedtypes.ChannelID,
	userID sharedtypes.UserID,
	apply func(*statstypes.UserStats),
) error {
	mutateTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		row, err := s.repo.GetForUpdate(ctx, db, channelID, userID)
		if err != nil {
			if !errors.Is(err, statsdb.ErrNotFound) {
				return results.OperationResult[bool, error]{}, err
			}
			row = &statsdb.UserStats{ChannelID: channelID, UserID: userID, GuildID: guildID}
		}

		st := toUserStats(row)
		apply(&st)
		if err := s.repo.Upsert(ctx, db, fromUserStats(st)); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	_, err := withTelemetry(s, ctx, operationName, string(channelID)+":"+string(userID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if db != nil {
			return mutateTx(ctx, db)
		}
		return runInTx(s, ctx, mutateTx)
	})
	if err != nil {
		return err
	}
	if db == nil {
		return s.Invalidate(ctx, channelID, userID)
	}
	return nil
}

// Invalidate drops a user's cached stats.
func (s *StatsService) Invalidate(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) error {
	return s.users.Invalidate(ctx, userKey(channelID, userID))
}

// GetUserStats returns a user's aggregates, read through the cache.
func (s *StatsService) GetUserStats(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (*statstypes.UserStats, error) {
	result, err := withTelemetry(s, ctx, "GetUserStats", string(channelID)+":"+string(userID), func(ctx context.Context) (results.OperationResult[statstypes.UserStats, error], error) {
		st, err := s.users.Get(ctx, userKey(channelID, userID), func(ctx context.Context) (statstypes.UserStats, error) {
			row, err := s.repo.Get(ctx, nil, channelID, userID)
			if err != nil {
				return statstypes.UserStats{}, err
			}
			return toUserStats(row), nil
		})
		if err != nil {
			if errors.Is(err, statsdb.ErrNotFound) {
				return results.FailureResult[statstypes.UserStats, error](ErrNoStats), nil
			}
			return results.OperationResult[statstypes.UserStats, error]{}, err
		}
		return results.SuccessResult[statstypes.UserStats, error](st), nil
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return result.Success, nil
}

// Leaderboard ranks a channel's users by metric, best first, with 1-based
// positional ranks.
func (s *StatsService) Leaderboard(ctx context.Context, channelID sharedtypes.ChannelID, metric statstypes.Metric, limit int) ([]statstypes.LeaderboardEntry, error) {
	order, ok := metricOrder[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	result, err := withTelemetry(s, ctx, "Leaderboard", string(channelID), func(ctx context.Context) (results.OperationResult[[]statstypes.LeaderboardEntry, error], error) {
		rows, err := s.repo.Leaderboard(ctx, s.idb(), channelID, order, limit)
		if err != nil {
			return results.OperationResult[[]statstypes.LeaderboardEntry, error]{}, err
		}
		entries := make([]statstypes.LeaderboardEntry, len(rows))
		for i, row := range rows {
			entries[i] = entryFromRow(i+1, row)
		}
		return results.SuccessResult[[]statstypes.LeaderboardEntry, error](entries), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// Rank is 1 plus the number of users strictly ahead of userID under
// (contributions, highest streak, accuracy) descending.
func (s *StatsService) Rank(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (int, error) {
	result, err := withTelemetry(s, ctx, "Rank", string(channelID)+":"+string(userID), func(ctx context.Context) (results.OperationResult[int, error], error) {
		row, err := s.repo.Get(ctx, s.idb(), channelID, userID)
		if err != nil {
			if errors.Is(err, statsdb.ErrNotFound) {
				return results.FailureResult[int, error](ErrNoStats), nil
			}
			return results.OperationResult[int, error]{}, err
		}
		ahead, err := s.repo.CountAhead(ctx, s.idb(), channelID, statsdb.RankKey{
			Contributions: row.Contributions,
			HighestStreak: row.HighestStreak,
			Accuracy:      row.Accuracy,
		})
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		return results.SuccessResult[int, error](ahead + 1), nil
	})
	if err != nil {
		return 0, err
	}
	if result.IsFailure() {
		return 0, *result.Failure
	}
	return *result.Success, nil
}

// Summary aggregates a channel's participation.
func (s *StatsService) Summary(ctx context.Context, channelID sharedtypes.ChannelID) (statstypes.ChannelSummary, error) {
	result, err := withTelemetry(s, ctx, "Summary", string(channelID), func(ctx context.Context) (results.OperationResult[statstypes.ChannelSummary, error], error) {
		agg, err := s.repo.Summary(ctx, s.idb(), channelID)
		if err != nil {
			return results.OperationResult[statstypes.ChannelSummary, error]{}, err
		}
		summary := statstypes.ChannelSummary{
			Participants:       agg.Participants,
			TotalContributions: agg.TotalContributions,
			TotalErrors:        agg.TotalErrors,
		}
		top, err := s.repo.Leaderboard(ctx, s.idb(), channelID, metricOrder[statstypes.MetricContributions], 1)
		if err != nil {
			return results.OperationResult[statstypes.ChannelSummary, error]{}, err
		}
		if len(top) > 0 {
			id := top[0].UserID
			summary.TopContributor = &id
			summary.TopContributions = top[0].Contributions
		}
		return results.SuccessResult[statstypes.ChannelSummary, error](summary), nil
	})
	if err != nil {
		return statstypes.ChannelSummary{}, err
	}
	return *result.Success, nil
}

// SnapshotLeaderboard persists the channel's leaderboard ordered by Score.
func (s *StatsService) SnapshotLeaderboard(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error) {
	snapshotTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[statstypes.Snapshot, error], error) {
		rows, err := s.repo.ListByChannel(ctx, db, channelID)
		if err != nil {
			return results.OperationResult[statstypes.Snapshot, error]{}, err
		}

		entries := RankByScore(rows, SnapshotSize)
		snap := &statsdb.LeaderboardSnapshot{
			ChannelID: channelID,
			TakenAt:   s.clock.Now().UTC(),
			Entries:   entries,
		}
		if err := s.repo.InsertSnapshot(ctx, db, snap); err != nil {
			return results.OperationResult[statstypes.Snapshot, error]{}, err
		}
		return results.SuccessResult[statstypes.Snapshot, error](snapshotFromRow(snap)), nil
	}

	result, err := withTelemetry(s, ctx, "SnapshotLeaderboard", string(channelID), func(ctx context.Context) (results.OperationResult[statstypes.Snapshot, error], error) {
		return runInTx(s, ctx, snapshotTx)
	})
	if err != nil {
		return nil, err
	}
	return result.Success, nil
}

// SnapshotAll snapshots every channel with stats and returns how many
// succeeded. A failing channel does not stop the others.
func (s *StatsService) SnapshotAll(ctx context.Context) (int, error) {
	channels, err := s.repo.ListChannels(ctx, s.idb())
	if err != nil {
		return 0, fmt.Errorf("failed to list channels for snapshot: %w", err)
	}

	var errs []error
	done := 0
	for _, ch := range channels {
		if _, err := s.SnapshotLeaderboard(ctx, ch); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	s.logger.InfoContext(ctx, "Leaderboard snapshots taken",
		attr.Int("channels", len(channels)),
		attr.Int("succeeded", done),
	)
	return done, errors.Join(errs...)
}

// LatestSnapshot returns the newest persisted snapshot.
func (s *StatsService) LatestSnapshot(ctx context.Context, channelID sharedtypes.ChannelID) (*statstypes.Snapshot, error) {
	row, err := s.repo.LatestSnapshot(ctx, s.idb(), channelID)
	if err != nil {
		return nil, err
	}
	snap := snapshotFromRow(row)
	return &snap, nil
}

// PurgeChannel deletes every stats row and snapshot of a channel.
func (s *StatsService) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	purgeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		if err := s.repo.DeleteByChannel(ctx, db, channelID); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}
	_, err := withTelemetry(s, ctx, "PurgeChannel", string(channelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if db != nil {
			return purgeTx(ctx, db)
		}
		return runInTx(s, ctx, purgeTx)
	})
	return err
}

// RankByScore orders rows by Score, then contributions, then user ID, and
// keeps the first limit.
func RankByScore(rows []statsdb.UserStats, limit int) []statstypes.LeaderboardEntry {
	entries := make([]statstypes.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = entryFromRow(0, row)
		entries[i].Score = statstypes.Score(row.Contributions, row.HighestStreak, row.Accuracy)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Contributions != entries[j].Contributions {
			return entries[i].Contributions > entries[j].Contributions
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *StatsService) idb() bun.IDB {
	if s.db == nil {
		return nil
	}
	return s.db
}

func toUserStats(row *statsdb.UserStats) statstypes.UserStats {
	return statstypes.UserStats{
		GuildID:             row.GuildID,
		ChannelID:           row.ChannelID,
		UserID:              row.UserID,
		Contributions:       row.Contributions,
		CurrentStreak:       row.CurrentStreak,
		HighestStreak:       row.HighestStreak,
		TotalNumbersCounted: row.TotalNumbersCounted,
		ErrorsCount:         row.ErrorsCount,
		Accuracy:            row.Accuracy,
		TotalTimeSpent:      time.Duration(row.TotalTimeSpentMS) * time.Millisecond,
		LastContribution:    row.LastContribution,
	}
}

func fromUserStats(st statstypes.UserStats) *statsdb.UserStats {
	return &statsdb.UserStats{
		ChannelID:           st.ChannelID,
		UserID:              st.UserID,
		GuildID:             st.GuildID,
		Contributions:       st.Contributions,
		CurrentStreak:       st.CurrentStreak,
		HighestStreak:       st.HighestStreak,
		TotalNumbersCounted: st.TotalNumbersCounted,
		ErrorsCount:         st.ErrorsCount,
		Accuracy:            st.Accuracy,
		TotalTimeSpentMS:    st.TotalTimeSpent.Milliseconds(),
		LastContribution:    st.LastContribution,
	}
}

func entryFromRow(rank int, row statsdb.UserStats) statstypes.LeaderboardEntry {
	return statstypes.LeaderboardEntry{
		Rank:                rank,
		UserID:              row.UserID,
		Contributions:       row.Contributions,
		HighestStreak:       row.HighestStreak,
		Accuracy:            row.Accuracy,
		TotalNumbersCounted: row.TotalNumbersCounted,
	}
}

func snapshotFromRow(row *statsdb.LeaderboardSnapshot) statstypes.Snapshot {
	return statstypes.Snapshot{
		ID:        row.ID,
		ChannelID: row.ChannelID,
		TakenAt:   row.TakenAt,
		Entries:   row.Entries,
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *StatsService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "StatsService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "StatsService", time.Since(startTime))
		}
	}()

	s.logger.DebugContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "StatsService")
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "StatsService")
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "StatsService")
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *StatsService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
