package countingservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	countingqueue "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/queue"
	countingdb "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/repositories"
	eventlogservice "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/application"
	moderationservice "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/application"
	settingsservice "github.com/Black-And-White-Club/counting-bot/app/modules/settings/application"
	statsservice "github.com/Black-And-White-Club/counting-bot/app/modules/stats/application"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	countingmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/counting"
	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	"github.com/Black-And-White-Club/counting-bot/pkg/queue"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/results"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrNotSetup is returned by administrative operations on a channel
	// that has no active counting state.
	ErrNotSetup = errors.New("channel is not set up for counting")

	// ErrSavePointNotFound is returned when restoring an unknown save point.
	ErrSavePointNotFound = errors.New("save point not found")

	// ErrInvalidSaveName rejects empty or overlong save point names.
	ErrInvalidSaveName = errors.New("invalid save point name")

	errStateMoved = errors.New("channel moved during evaluation")
)

const (
	DefaultLaneIdleTimeout = 10 * time.Minute
	MaxSaveNameLength      = 64

	maxEvaluateAttempts = 3
)

// Config carries the engine tunables.
type Config struct {
	StateCacheTTL   time.Duration
	DeleteDelay     time.Duration
	LaneIdleTimeout time.Duration
}

func cooldownKey(channelID sharedtypes.ChannelID, userID sharedtypes.UserID) string {
	return "counting:cooldown:" + string(channelID) + ":" + string(userID)
}

func failuresKey(channelID sharedtypes.ChannelID) string {
	return "counting:failures:" + string(channelID)
}

// CountingService implements the Service interface.
type CountingService struct {
	repo       countingdb.Repository
	states     *StateStore
	settings   settingsservice.Service
	moderation moderationservice.Service
	stats      statsservice.Service
	events     eventlogservice.Service
	messenger  outbound.Messenger
	jobs       queue.Enqueuer
	logger     *slog.Logger
	metrics    countingmetrics.CountingMetrics
	tracer     trace.Tracer
	db         *bun.DB
	clock      clockwork.Clock
	store      cache.Store
	lanes      *lanes
	cfg        Config
	printer    *message.Printer
}

var _ Service = (*CountingService)(nil)

// NewCountingService creates a new CountingService. jobs may be nil, in which
// case wrong numbers are deleted immediately instead of after DeleteDelay. A
// nil store disables state caching, cooldowns and the failure counter.
func NewCountingService(
	repo countingdb.Repository,
	settings settingsservice.Service,
	moderation moderationservice.Service,
	stats statsservice.Service,
	events eventlogservice.Service,
	messenger outbound.Messenger,
	jobs queue.Enqueuer,
	logger *slog.Logger,
	metrics countingmetrics.CountingMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	clock clockwork.Clock,
	store cache.Store,
	cfg Config,
) *CountingService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = countingmetrics.NewNoop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.DeleteDelay <= 0 {
		cfg.DeleteDelay = countingqueue.DefaultDeleteDelay
	}
	if cfg.LaneIdleTimeout <= 0 {
		cfg.LaneIdleTimeout = DefaultLaneIdleTimeout
	}
	return &CountingService{
		repo:       repo,
		states:     NewStateStore(repo, store, cfg.StateCacheTTL, logger),
		settings:   settings,
		moderation: moderation,
		stats:      stats,
		events:     events,
		messenger:  messenger,
		jobs:       jobs,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
		clock:      clock,
		store:      store,
		lanes:      newLanes(cfg.LaneIdleTimeout, clock, logger, metrics.RecordLaneCount),
		cfg:        cfg,
		printer:    message.NewPrinter(language.English),
	}
}

// Close stops every lane.
func (s *CountingService) Close() {
	s.lanes.Close()
}

// templateVars fills the {placeholders} of a message template.
type templateVars struct {
	User      sharedtypes.UserID
	Number    int64
	Expected  int64
	Milestone int64
	Max       int64
	Failures  int64
}

func (s *CountingService) render(tmpl string, v templateVars) string {
	if tmpl == "" {
		return ""
	}
	num := func(n int64) string { return s.printer.Sprintf("%d", n) }
	user := ""
	if v.User != "" {
		user = "<@" + string(v.User) + ">"
	}
	return strings.NewReplacer(
		"{user}", user,
		"{number}", num(v.Number),
		"{expected}", num(v.Expected),
		"{milestone}", num(v.Milestone),
		"{max}", num(v.Max),
		"{failures}", num(v.Failures),
	).Replace(tmpl)
}

func (s *CountingService) react(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID, emoji string) {
	if emoji == "" || messageID == "" {
		return
	}
	if err := s.messenger.React(ctx, channelID, messageID, emoji); err != nil {
		s.logger.WarnContext(ctx, "Failed to react to submission",
			attr.ChannelID("channel_id", channelID),
			attr.MessageID("message_id", messageID),
			attr.Error(err),
		)
	}
}

func (s *CountingService) send(ctx context.Context, channelID sharedtypes.ChannelID, content string) {
	if content == "" || channelID == "" {
		return
	}
	if err := s.messenger.SendMessage(ctx, channelID, content); err != nil {
		s.logger.WarnContext(ctx, "Failed to send counting message",
			attr.ChannelID("channel_id", channelID),
			attr.Error(err),
		)
	}
}

// scheduleDelete removes a message after DeleteDelay, or at once without a
// job queue.
func (s *CountingService) scheduleDelete(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) {
	if s.jobs == nil {
		if err := s.messenger.DeleteMessage(ctx, channelID, messageID); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete wrong number",
				attr.ChannelID("channel_id", channelID),
				attr.MessageID("message_id", messageID),
				attr.Error(err),
			)
		}
		return
	}
	err := s.jobs.Enqueue(ctx, countingqueue.DeleteMessageJob{ChannelID: channelID, MessageID: messageID}, &river.InsertOpts{
		ScheduledAt: s.clock.Now().Add(s.cfg.DeleteDelay),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule wrong number deletion",
			attr.ChannelID("channel_id", channelID),
			attr.MessageID("message_id", messageID),
			attr.Error(err),
		)
	}
}

// invalidateState must succeed for the next submission to see the write;
// failure is logged since the write itself is already committed.
func (s *CountingService) invalidateState(ctx context.Context, channelID sharedtypes.ChannelID) {
	if err := s.states.Invalidate(ctx, channelID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to invalidate channel state",
			attr.ChannelID("channel_id", channelID),
			attr.Error(err),
		)
	}
}

func (s *CountingService) idb() bun.IDB {
	if s.db == nil {
		return nil
	}
	return s.db
}

// operationFunc is the signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps an operation with tracing, metrics, logging and panic
// recovery.
func withTelemetry[S any, F any](
	s *CountingService,
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

	s.metrics.RecordOperationAttempt(ctx, operationName, "CountingService")

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, "CountingService", time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, "CountingService")
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	s.logger.DebugContext(ctx, "Operation triggered",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("identifier", identifier),
	)

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, "CountingService")
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

	s.metrics.RecordOperationSuccess(ctx, operationName, "CountingService")
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *CountingService,
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
		if txErr == nil && result.IsFailure() {
			// Domain failures detected mid-transaction must not commit
			// partial writes.
			return errRollback
		}
		return txErr
	})
	if errors.Is(err, errRollback) {
		return result, nil
	}
	return result, err
}

var errRollback = errors.New("rollback on failure result")
