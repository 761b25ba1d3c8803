package eventlogservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	eventlogdb "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/results"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrMissingPayload is returned when an event carries no typed payload.
var ErrMissingPayload = errors.New("event has no payload")

// EventLogService implements the Service interface.
type EventLogService struct {
	repo    eventlogdb.Repository
	logger  *slog.Logger
	metrics operationmetrics.Metrics
	tracer  trace.Tracer
	db      *bun.DB
	clock   clockwork.Clock
}

var _ Service = (*EventLogService)(nil)

// NewEventLogService creates a new EventLogService.
func NewEventLogService(
	repo eventlogdb.Repository,
	logger *slog.Logger,
	metrics operationmetrics.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
	clock clockwork.Clock,
) *EventLogService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventLogService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		clock:   clock,
	}
}

// Append records event. ID and CreatedAt are assigned when zero.
func (s *EventLogService) Append(ctx context.Context, db bun.IDB, event eventlogtypes.Event) error {
	if event.Payload == nil {
		return ErrMissingPayload
	}

	details, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event.Kind(), err)
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now().UTC()
	}

	row := &eventlogdb.Event{
		ID:        event.ID,
		GuildID:   event.GuildID,
		ChannelID: event.ChannelID,
		Kind:      string(event.Kind()),
		UserID:    event.UserID,
		MessageID: event.MessageID,
		OldNumber: event.OldNumber,
		NewNumber: event.NewNumber,
		Details:   details,
		CreatedAt: event.CreatedAt,
	}

	appendTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		if err := s.repo.Insert(ctx, db, row); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	_, err = withTelemetry(s, ctx, "Append", string(event.ChannelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if db != nil {
			return appendTx(ctx, db)
		}
		return runInTx(s, ctx, appendTx)
	})
	return err
}

// List returns decoded events, newest first. Rows whose payload no longer
// decodes are skipped and logged.
func (s *EventLogService) List(ctx context.Context, channelID sharedtypes.ChannelID, filter eventlogtypes.Filter) ([]eventlogtypes.Event, error) {
	result, err := withTelemetry(s, ctx, "List", string(channelID), func(ctx context.Context) (results.OperationResult[[]eventlogtypes.Event, error], error) {
		rows, err := s.repo.List(ctx, s.idb(), channelID, eventlogdb.ListFilter{
			Kinds:  kindStrings(filter.Kinds),
			UserID: filter.UserID,
			Since:  filter.Since,
			Limit:  filter.Limit,
		})
		if err != nil {
			return results.OperationResult[[]eventlogtypes.Event, error]{}, err
		}

		events := make([]eventlogtypes.Event, 0, len(rows))
		for _, row := range rows {
			payload, err := eventlogtypes.Decode(eventlogtypes.Kind(row.Kind), row.Details)
			if err != nil {
				s.logger.WarnContext(ctx, "Skipping undecodable event",
					attr.String("event_id", row.ID.String()),
					attr.Error(err),
				)
				continue
			}
			events = append(events, eventlogtypes.Event{
				ID:        row.ID,
				GuildID:   row.GuildID,
				ChannelID: row.ChannelID,
				UserID:    row.UserID,
				MessageID: row.MessageID,
				OldNumber: row.OldNumber,
				NewNumber: row.NewNumber,
				CreatedAt: row.CreatedAt,
				Payload:   payload,
			})
		}
		return results.SuccessResult[[]eventlogtypes.Event, error](events), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// CountByKind counts a channel's events of the given kinds since an optional
// instant. Every requested kind is present in the result.
func (s *EventLogService) CountByKind(ctx context.Context, channelID sharedtypes.ChannelID, kinds []eventlogtypes.Kind, since *time.Time) (map[eventlogtypes.Kind]int64, error) {
	result, err := withTelemetry(s, ctx, "CountByKind", string(channelID), func(ctx context.Context) (results.OperationResult[map[eventlogtypes.Kind]int64, error], error) {
		rows, err := s.repo.CountByKind(ctx, s.idb(), channelID, kindStrings(kinds), since)
		if err != nil {
			return results.OperationResult[map[eventlogtypes.Kind]int64, error]{}, err
		}
		counts := make(map[eventlogtypes.Kind]int64, len(kinds))
		for _, k := range kinds {
			counts[k] = 0
		}
		for _, row := range rows {
			counts[eventlogtypes.Kind(row.Kind)] = row.Count
		}
		return results.SuccessResult[map[eventlogtypes.Kind]int64, error](counts), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// TopViolators ranks users by violation events.
func (s *EventLogService) TopViolators(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) ([]moderationtypes.ViolatorCount, error) {
	result, err := withTelemetry(s, ctx, "TopViolators", string(channelID), func(ctx context.Context) (results.OperationResult[[]moderationtypes.ViolatorCount, error], error) {
		rows, err := s.repo.TopUsers(ctx, s.idb(), channelID, kindStrings(eventlogtypes.ViolationKinds), since, limit)
		if err != nil {
			return results.OperationResult[[]moderationtypes.ViolatorCount, error]{}, err
		}
		out := make([]moderationtypes.ViolatorCount, len(rows))
		for i, row := range rows {
			out[i] = moderationtypes.ViolatorCount{UserID: row.UserID, Count: row.Count}
		}
		return results.SuccessResult[[]moderationtypes.ViolatorCount, error](out), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// PurgeChannel deletes a channel's whole history. Only PurgeChannel of the
// counting module calls this.
func (s *EventLogService) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	purgeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		n, err := s.repo.DeleteByChannel(ctx, db, channelID)
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](n), nil
	}

	result, err := withTelemetry(s, ctx, "PurgeChannel", string(channelID), func(ctx context.Context) (results.OperationResult[int64, error], error) {
		if db != nil {
			return purgeTx(ctx, db)
		}
		return runInTx(s, ctx, purgeTx)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Purged channel events",
		attr.ChannelID("channel_id", channelID),
		attr.Int64("deleted", *result.Success),
	)
	return nil
}

// idb returns the service's handle as a bun.IDB, or nil when there is none.
func (s *EventLogService) idb() bun.IDB {
	if s.db == nil {
		return nil
	}
	return s.db
}

func kindStrings(kinds []eventlogtypes.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *EventLogService,
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
		s.metrics.RecordOperationAttempt(ctx, operationName, "EventLogService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "EventLogService", time.Since(startTime))
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
				s.metrics.RecordOperationFailure(ctx, operationName, "EventLogService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "EventLogService")
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.logger.DebugContext(ctx, "Operation completed successfully",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("identifier", identifier),
	)
	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "EventLogService")
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *EventLogService,
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
