package settingsservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	settingsdb "github.com/Black-And-White-Club/counting-bot/app/modules/settings/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrConfigNotResolvable means the channel has never been set up.
var ErrConfigNotResolvable = errors.New("channel configuration not resolvable")

// DefaultCacheTTL applies when the service is built with a zero TTL.
const DefaultCacheTTL = 10 * time.Minute

// channelEntry is the cached channel level.
type channelEntry struct {
	GuildID   sharedtypes.GuildID     `json:"guild_id"`
	Overrides settingstypes.Overrides `json:"overrides"`
}

func channelKey(id sharedtypes.ChannelID) string { return "settings:channel:" + string(id) }
func guildKey(id sharedtypes.GuildID) string     { return "settings:guild:" + string(id) }

// SettingsService implements the Service interface.
type SettingsService struct {
	repo     settingsdb.Repository
	logger   *slog.Logger
	metrics  operationmetrics.Metrics
	tracer   trace.Tracer
	db       *bun.DB
	channels *cache.Loader[channelEntry]
	guilds   *cache.Loader[settingstypes.Overrides]
}

var _ Service = (*SettingsService)(nil)

// NewSettingsService creates a new SettingsService. A nil store disables
// caching.
func NewSettingsService(
	repo settingsdb.Repository,
	logger *slog.Logger,
	metrics operationmetrics.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
	store cache.Store,
	ttl time.Duration,
) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SettingsService{
		repo:     repo,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		db:       db,
		channels: cache.NewLoader[channelEntry](store, ttl, logger),
		guilds:   cache.NewLoader[settingstypes.Overrides](store, ttl, logger),
	}
}

// GetEffectiveConfig resolves the configuration the engine runs with.
func (s *SettingsService) GetEffectiveConfig(ctx context.Context, channelID sharedtypes.ChannelID) (settingstypes.EffectiveConfig, error) {
	result, err := withTelemetry(s, ctx, "GetEffectiveConfig", string(channelID), func(ctx context.Context) (results.OperationResult[settingstypes.EffectiveConfig, error], error) {
		ch, err := s.loadChannel(ctx, channelID)
		if err != nil {
			if errors.Is(err, ErrConfigNotResolvable) {
				return results.FailureResult[settingstypes.EffectiveConfig, error](err), nil
			}
			return results.OperationResult[settingstypes.EffectiveConfig, error]{}, err
		}
		guild, err := s.loadGuild(ctx, ch.GuildID)
		if err != nil {
			return results.OperationResult[settingstypes.EffectiveConfig, error]{}, err
		}
		return results.SuccessResult[settingstypes.EffectiveConfig, error](Resolve(ch.GuildID, channelID, ch.Overrides, guild)), nil
	})
	if err != nil {
		return settingstypes.EffectiveConfig{}, err
	}
	if result.IsFailure() {
		return settingstypes.EffectiveConfig{}, *result.Failure
	}
	return *result.Success, nil
}

// GetChannelOverrides returns only the values set at channel level.
func (s *SettingsService) GetChannelOverrides(ctx context.Context, channelID sharedtypes.ChannelID) (settingstypes.Overrides, error) {
	ch, err := s.loadChannel(ctx, channelID)
	if err != nil {
		return settingstypes.Overrides{}, err
	}
	return ch.Overrides, nil
}

// UpdateChannelConfig applies patch to the channel level and returns the
// resulting effective configuration.
func (s *SettingsService) UpdateChannelConfig(ctx context.Context, channelID sharedtypes.ChannelID, patch settingstypes.Patch) (settingstypes.EffectiveConfig, error) {
	updateTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[settingstypes.EffectiveConfig, error], error) {
		row, err := s.repo.GetChannel(ctx, db, channelID)
		if err != nil {
			if errors.Is(err, settingsdb.ErrNotFound) {
				return results.FailureResult[settingstypes.EffectiveConfig, error](ErrConfigNotResolvable), nil
			}
			return results.OperationResult[settingstypes.EffectiveConfig, error]{}, err
		}

		updated, err := overridesFromColumns(row.Columns).Apply(patch)
		if err != nil {
			return results.FailureResult[settingstypes.EffectiveConfig, error](invalid("%v", err)), nil
		}
		if err := validateOverrides(updated); err != nil {
			return results.FailureResult[settingstypes.EffectiveConfig, error](err), nil
		}

		row.Columns = columnsFromOverrides(updated)
		if err := s.repo.UpdateChannel(ctx, db, row); err != nil {
			return results.OperationResult[settingstypes.EffectiveConfig, error]{}, err
		}

		guild, err := s.guildOverrides(ctx, db, row.GuildID)
		if err != nil {
			return results.OperationResult[settingstypes.EffectiveConfig, error]{}, err
		}
		return results.SuccessResult[settingstypes.EffectiveConfig, error](Resolve(row.GuildID, channelID, updated, guild)), nil
	}

	result, err := withTelemetry(s, ctx, "UpdateChannelConfig", string(channelID), func(ctx context.Context) (results.OperationResult[settingstypes.EffectiveConfig, error], error) {
		return runInTx(s, ctx, updateTx)
	})
	if err != nil {
		return settingstypes.EffectiveConfig{}, err
	}
	if result.IsFailure() {
		return settingstypes.EffectiveConfig{}, *result.Failure
	}
	if err := s.InvalidateChannel(ctx, channelID); err != nil {
		return settingstypes.EffectiveConfig{}, err
	}
	return *result.Success, nil
}

// UpdateGuildDefaults applies patch to the guild level, creating the row on
// first use.
func (s *SettingsService) UpdateGuildDefaults(ctx context.Context, guildID sharedtypes.GuildID, patch settingstypes.Patch) error {
	updateTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		current, err := s.guildOverrides(ctx, db, guildID)
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		updated, err := current.Apply(patch)
		if err != nil {
			return results.FailureResult[bool, error](invalid("%v", err)), nil
		}
		if err := validateOverrides(updated); err != nil {
			return results.FailureResult[bool, error](err), nil
		}
		row := &settingsdb.GuildSettings{GuildID: guildID, Columns: columnsFromOverrides(updated)}
		if err := s.repo.UpsertGuild(ctx, db, row); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	result, err := withTelemetry(s, ctx, "UpdateGuildDefaults", string(guildID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runInTx(s, ctx, updateTx)
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return s.guilds.Invalidate(ctx, guildKey(guildID))
}

// EnsureChannel creates an empty channel level so the channel resolves to
// guild defaults and fallbacks.
func (s *SettingsService) EnsureChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error {
	ensureTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		created, err := s.repo.InsertChannel(ctx, db, &settingsdb.ChannelSettings{ChannelID: channelID, GuildID: guildID})
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](created), nil
	}

	result, err := withTelemetry(s, ctx, "EnsureChannel", string(channelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if db != nil {
			return ensureTx(ctx, db)
		}
		return runInTx(s, ctx, ensureTx)
	})
	if err != nil {
		return err
	}
	if *result.Success {
		s.logger.InfoContext(ctx, "Created channel settings",
			attr.GuildID("guild_id", guildID),
			attr.ChannelID("channel_id", channelID),
		)
	}
	if db == nil {
		return s.InvalidateChannel(ctx, channelID)
	}
	return nil
}

// DeleteChannel removes the channel level.
func (s *SettingsService) DeleteChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) error {
	deleteTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		if err := s.repo.DeleteChannel(ctx, db, channelID); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	_, err := withTelemetry(s, ctx, "DeleteChannel", string(channelID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if db != nil {
			return deleteTx(ctx, db)
		}
		return runInTx(s, ctx, deleteTx)
	})
	if err != nil {
		return err
	}
	if db == nil {
		return s.InvalidateChannel(ctx, channelID)
	}
	return nil
}

// InvalidateChannel drops the cached channel level.
func (s *SettingsService) InvalidateChannel(ctx context.Context, channelID sharedtypes.ChannelID) error {
	return s.channels.Invalidate(ctx, channelKey(channelID))
}

func (s *SettingsService) loadChannel(ctx context.Context, channelID sharedtypes.ChannelID) (channelEntry, error) {
	return s.channels.Get(ctx, channelKey(channelID), func(ctx context.Context) (channelEntry, error) {
		row, err := s.repo.GetChannel(ctx, nil, channelID)
		if err != nil {
			if errors.Is(err, settingsdb.ErrNotFound) {
				return channelEntry{}, fmt.Errorf("%w: %s", ErrConfigNotResolvable, channelID)
			}
			return channelEntry{}, err
		}
		return channelEntry{GuildID: row.GuildID, Overrides: overridesFromColumns(row.Columns)}, nil
	})
}

func (s *SettingsService) loadGuild(ctx context.Context, guildID sharedtypes.GuildID) (settingstypes.Overrides, error) {
	return s.guilds.Get(ctx, guildKey(guildID), func(ctx context.Context) (settingstypes.Overrides, error) {
		return s.guildOverrides(ctx, nil, guildID)
	})
}

// guildOverrides reads the guild level; a missing row is an empty level.
func (s *SettingsService) guildOverrides(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (settingstypes.Overrides, error) {
	row, err := s.repo.GetGuild(ctx, db, guildID)
	if err != nil {
		if errors.Is(err, settingsdb.ErrNotFound) {
			return settingstypes.Overrides{}, nil
		}
		return settingstypes.Overrides{}, err
	}
	return overridesFromColumns(row.Columns), nil
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *SettingsService,
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
		s.metrics.RecordOperationAttempt(ctx, operationName, "SettingsService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "SettingsService", time.Since(startTime))
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
				s.metrics.RecordOperationFailure(ctx, operationName, "SettingsService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "SettingsService")
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

	if result.IsSuccess() {
		s.logger.DebugContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "SettingsService")
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *SettingsService,
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
