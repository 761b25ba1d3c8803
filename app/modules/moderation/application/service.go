package moderationservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	eventlogservice "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/application"
	moderationqueue "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/infrastructure/queue"
	moderationdb "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	moderationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/moderation"
	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	"github.com/Black-And-White-Club/counting-bot/pkg/queue"
	eventlogtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/eventlog"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	settingstypes "github.com/Black-And-White-Club/counting-bot/pkg/types/settings"
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
	// ErrNotBanned is returned by UnbanUser when no ban is active.
	ErrNotBanned = errors.New("user is not banned")

	// ErrTierNotFound is returned when removing a tier that does not exist.
	ErrTierNotFound = errors.New("tiered punishment not found")

	// ErrInvalidBan rejects a malformed ban request.
	ErrInvalidBan = errors.New("invalid ban request")
)

const (
	DefaultBanCacheTTL    = 5 * time.Minute
	DefaultEditHintWindow = 10 * time.Second
	DefaultWindowHours    = 24
	DefaultTopViolators   = 10
)

// Config carries the moderation tunables.
type Config struct {
	BanCacheTTL    time.Duration
	EditHintWindow time.Duration
}

func banKey(channelID sharedtypes.ChannelID, userID sharedtypes.UserID) string {
	return "moderation:ban:" + string(channelID) + ":" + string(userID)
}

func editHintKey(channelID sharedtypes.ChannelID) string {
	return "moderation:edit_hint:" + string(channelID)
}

// ModerationService implements the Service interface.
type ModerationService struct {
	repo      moderationdb.Repository
	events    eventlogservice.Service
	messenger outbound.Messenger
	punisher  outbound.Punisher
	jobs      queue.Enqueuer
	logger    *slog.Logger
	metrics   moderationmetrics.ModerationMetrics
	tracer    trace.Tracer
	db        *bun.DB
	clock     clockwork.Clock
	store     cache.Store
	bans      *cache.Loader[moderationtypes.BanStatus]
	cfg       Config
	printer   *message.Printer
}

var _ Service = (*ModerationService)(nil)

// NewModerationService creates a new ModerationService. jobs may be nil, in
// which case timed punishments are never lifted by the bot. A nil store
// disables ban caching and edit-hint suppression.
func NewModerationService(
	repo moderationdb.Repository,
	events eventlogservice.Service,
	messenger outbound.Messenger,
	punisher outbound.Punisher,
	jobs queue.Enqueuer,
	logger *slog.Logger,
	metrics moderationmetrics.ModerationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	clock clockwork.Clock,
	store cache.Store,
	cfg Config,
) *ModerationService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.BanCacheTTL <= 0 {
		cfg.BanCacheTTL = DefaultBanCacheTTL
	}
	if cfg.EditHintWindow <= 0 {
		cfg.EditHintWindow = DefaultEditHintWindow
	}
	return &ModerationService{
		repo:      repo,
		events:    events,
		messenger: messenger,
		punisher:  punisher,
		jobs:      jobs,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		clock:     clock,
		store:     store,
		bans:      cache.NewLoader[moderationtypes.BanStatus](store, cfg.BanCacheTTL, logger),
		cfg:       cfg,
		printer:   message.NewPrinter(language.English),
	}
}

// ShouldIgnore is true when the member holds a banned role, lacks every
// configured required role, or holds an ignore role.
func (s *ModerationService) ShouldIgnore(roles []sharedtypes.RoleID, cfg settingstypes.ModerationConfig) bool {
	if cfg.BannedRoles.Intersects(roles) {
		return true
	}
	if len(cfg.RequiredRoles) > 0 && !cfg.RequiredRoles.Intersects(roles) {
		return true
	}
	return cfg.IgnoreRoles.Intersects(roles)
}

// IsBanned consults the newest ban row. An expired ban is deactivated on
// read. Cached answers never outlive the ban's expiry.
func (s *ModerationService) IsBanned(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (bool, error) {
	result, err := withTelemetry(s, ctx, "IsBanned", string(channelID)+":"+string(userID), func(ctx context.Context) (results.OperationResult[moderationtypes.BanStatus, error], error) {
		status, err := s.bans.GetWithTTL(ctx, banKey(channelID, userID), s.banStatusTTL, func(ctx context.Context) (moderationtypes.BanStatus, error) {
			return s.loadBanStatus(ctx, channelID, userID)
		})
		if err != nil {
			return results.OperationResult[moderationtypes.BanStatus, error]{}, err
		}
		return results.SuccessResult[moderationtypes.BanStatus, error](status), nil
	})
	if err != nil {
		return false, err
	}
	return result.Success.Banned, nil
}

func (s *ModerationService) loadBanStatus(ctx context.Context, channelID sharedtypes.ChannelID, userID sharedtypes.UserID) (moderationtypes.BanStatus, error) {
	ban, err := s.repo.LatestBan(ctx, s.idb(), channelID, userID)
	if err != nil {
		if errors.Is(err, moderationdb.ErrNotFound) {
			return moderationtypes.BanStatus{}, nil
		}
		return moderationtypes.BanStatus{}, err
	}
	if !ban.Active {
		return moderationtypes.BanStatus{}, nil
	}
	if ban.ExpiresAt != nil && !s.clock.Now().Before(*ban.ExpiresAt) {
		if err := s.repo.DeactivateBan(ctx, s.idb(), ban.ID); err != nil {
			s.logger.WarnContext(ctx, "Failed to deactivate expired ban",
				attr.Int64("ban_id", ban.ID),
				attr.Error(err),
			)
		}
		return moderationtypes.BanStatus{}, nil
	}
	return moderationtypes.BanStatus{Banned: true, ExpiresAt: ban.ExpiresAt}, nil
}

func (s *ModerationService) banStatusTTL(status moderationtypes.BanStatus) time.Duration {
	ttl := s.cfg.BanCacheTTL
	if status.Banned && status.ExpiresAt != nil {
		if remaining := status.ExpiresAt.Sub(s.clock.Now()); remaining < ttl {
			return remaining
		}
	}
	return ttl
}

// TrackWrongCount adds a violation to the user's rolling window and returns
// the count inside it. A window stays open while its start is within
// windowHours; otherwise a new one is opened.
func (s *ModerationService) TrackWrongCount(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, windowHours int) (int, error) {
	trackTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
		count, err := s.trackWrongCount(ctx, db, channelID, userID, windowHours)
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		return results.SuccessResult[int, error](count), nil
	}

	result, err := withTelemetry(s, ctx, "TrackWrongCount", string(channelID)+":"+string(userID), func(ctx context.Context) (results.OperationResult[int, error], error) {
		if db != nil {
			return trackTx(ctx, db)
		}
		return runInTx(s, ctx, trackTx)
	})
	if err != nil {
		return 0, err
	}
	return *result.Success, nil
}

func (s *ModerationService) trackWrongCount(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, windowHours int) (int, error) {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	windowHours = min(windowHours, moderationtypes.MaxWindowHours)
	now := s.clock.Now().UTC()
	horizon := now.Add(-time.Duration(windowHours) * time.Hour)

	window, err := s.repo.FindOpenWindowForUpdate(ctx, db, channelID, userID, horizon)
	if err != nil {
		if !errors.Is(err, moderationdb.ErrNotFound) {
			return 0, err
		}
		window = &moderationdb.WrongCountWindow{
			ChannelID:   channelID,
			UserID:      userID,
			WindowStart: now,
			LastWrongAt: now,
			Count:       1,
		}
		if err := s.repo.InsertWindow(ctx, db, window); err != nil {
			return 0, err
		}
		return window.Count, nil
	}

	window.Count++
	window.LastWrongAt = now
	if err := s.repo.UpdateWindow(ctx, db, window); err != nil {
		return 0, err
	}
	return window.Count, nil
}

// ApplyTieredPunishment executes the tier configured for exactly count
// violations, preferring the channel's own tier over the guild-wide one. It
// returns nil when no tier matches.
func (s *ModerationService) ApplyTieredPunishment(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, count int) (*moderationtypes.AppliedPunishment, error) {
	tiers, err := s.repo.FindTiers(ctx, s.idb(), guildID, channelID, count)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tiered punishments: %w", err)
	}
	if len(tiers) == 0 {
		return nil, nil
	}

	tier := tiers[0]
	for _, t := range tiers {
		if t.ChannelID != nil {
			tier = t
			break
		}
	}

	return s.apply(ctx, moderationtypes.AppliedPunishment{
		GuildID:         guildID,
		ChannelID:       channelID,
		UserID:          userID,
		Action:          tier.Action,
		DurationMinutes: tier.DurationMinutes,
		RoleID:          derefRole(tier.RoleID),
		TriggerCount:    count,
		Tiered:          true,
		Reason:          fmt.Sprintf("Reached %d counting violations", count),
	})
}

// Escalate applies the tier for count, falling back to the channel's base
// punishment when count equals its threshold.
func (s *ModerationService) Escalate(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID sharedtypes.UserID, count int, cfg settingstypes.ModerationConfig) (*moderationtypes.AppliedPunishment, error) {
	applied, err := s.ApplyTieredPunishment(ctx, guildID, channelID, userID, count)
	if err != nil || applied != nil {
		return applied, err
	}
	if cfg.Threshold <= 0 || count != cfg.Threshold || !cfg.PunishmentAction.Valid() {
		return nil, nil
	}
	return s.apply(ctx, moderationtypes.AppliedPunishment{
		GuildID:         guildID,
		ChannelID:       channelID,
		UserID:          userID,
		Action:          cfg.PunishmentAction,
		DurationMinutes: cfg.PunishmentDuration,
		RoleID:          cfg.PunishmentRoleID,
		TriggerCount:    count,
		Reason:          fmt.Sprintf("%d counting violations within %d hours", count, cfg.WindowHours),
	})
}

// apply executes p through the punishment collaborator, then records it.
// Nothing is recorded when the collaborator fails.
func (s *ModerationService) apply(ctx context.Context, p moderationtypes.AppliedPunishment) (*moderationtypes.AppliedPunishment, error) {
	applyTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[moderationtypes.AppliedPunishment, error], error) {
		p.AppliedAt = s.clock.Now().UTC()
		if p.DurationMinutes > 0 {
			expires := p.AppliedAt.Add(moderationtypes.Minutes(p.DurationMinutes))
			p.ExpiresAt = &expires
		}

		row := appliedToRow(p)
		if err := s.repo.InsertApplied(ctx, db, row); err != nil {
			return results.OperationResult[moderationtypes.AppliedPunishment, error]{}, err
		}
		p.ID = row.ID

		if err := s.events.Append(ctx, db, eventlogtypes.Event{
			GuildID:   p.GuildID,
			ChannelID: p.ChannelID,
			UserID:    p.UserID,
			CreatedAt: p.AppliedAt,
			Payload: eventlogtypes.PunishmentApplied{
				Action:          p.Action,
				DurationMinutes: p.DurationMinutes,
				RoleID:          p.RoleID,
				TriggerCount:    p.TriggerCount,
				Tiered:          p.Tiered,
			},
		}); err != nil {
			return results.OperationResult[moderationtypes.AppliedPunishment, error]{}, err
		}
		return results.SuccessResult[moderationtypes.AppliedPunishment, error](p), nil
	}

	result, err := withTelemetry(s, ctx, "ApplyPunishment", string(p.ChannelID)+":"+string(p.UserID), func(ctx context.Context) (results.OperationResult[moderationtypes.AppliedPunishment, error], error) {
		req := moderationtypes.PunishmentRequest{
			GuildID:  p.GuildID,
			UserID:   p.UserID,
			Action:   p.Action,
			Duration: moderationtypes.Minutes(p.DurationMinutes),
			RoleID:   p.RoleID,
			Reason:   p.Reason,
			Channel:  p.ChannelID,
		}
		if err := s.punisher.Apply(ctx, req); err != nil {
			return results.OperationResult[moderationtypes.AppliedPunishment, error]{}, fmt.Errorf("punishment collaborator failed: %w", err)
		}
		return runInTx(s, ctx, applyTx)
	})
	if err != nil {
		return nil, err
	}

	applied := result.Success
	s.metrics.RecordPunishment(ctx, string(applied.Action))
	s.scheduleLift(ctx, *applied)
	return applied, nil
}

func (s *ModerationService) scheduleLift(ctx context.Context, p moderationtypes.AppliedPunishment) {
	if s.jobs == nil || p.ExpiresAt == nil || !moderationqueue.NeedsLift(p.Action) {
		return
	}
	job := moderationqueue.LiftPunishmentJob{
		AppliedID: p.ID,
		Request: moderationtypes.PunishmentRequest{
			GuildID: p.GuildID,
			UserID:  p.UserID,
			Action:  p.Action,
			RoleID:  p.RoleID,
			Reason:  "Punishment expired",
			Channel: p.ChannelID,
		},
	}
	if err := s.jobs.Enqueue(ctx, job, &river.InsertOpts{ScheduledAt: *p.ExpiresAt}); err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule punishment lift",
			attr.Int64("applied_id", p.ID),
			attr.Error(err),
		)
	}
}

// BanUser bans a user from counting in a channel, replacing any active ban.
func (s *ModerationService) BanUser(ctx context.Context, req moderationtypes.BanRequest) (*moderationtypes.Ban, error) {
	if req.UserID == "" || req.ChannelID == "" {
		return nil, fmt.Errorf("%w: channel and user are required", ErrInvalidBan)
	}
	if req.Duration < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidBan)
	}

	banTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[moderationtypes.Ban, error], error) {
		now := s.clock.Now().UTC()
		row := &moderationdb.UserBan{
			GuildID:   req.GuildID,
			ChannelID: req.ChannelID,
			UserID:    req.UserID,
			Reason:    req.Reason,
			BannedBy:  req.BannedBy,
			Active:    true,
			CreatedAt: now,
		}
		if req.Duration > 0 {
			expires := now.Add(req.Duration)
			row.ExpiresAt = &expires
		}

		if _, err := s.repo.DeactivateBans(ctx, db, req.ChannelID, req.UserID); err != nil {
			return results.OperationResult[moderationtypes.Ban, error]{}, err
		}
		if err := s.repo.InsertBan(ctx, db, row); err != nil {
			return results.OperationResult[moderationtypes.Ban, error]{}, err
		}
		if err := s.events.Append(ctx, db, eventlogtypes.Event{
			GuildID:   req.GuildID,
			ChannelID: req.ChannelID,
			UserID:    req.UserID,
			CreatedAt: now,
			Payload: eventlogtypes.UserBanned{
				Reason:    req.Reason,
				BannedBy:  req.BannedBy,
				ExpiresAt: row.ExpiresAt,
			},
		}); err != nil {
			return results.OperationResult[moderationtypes.Ban, error]{}, err
		}
		return results.SuccessResult[moderationtypes.Ban, error](banFromRow(row)), nil
	}

	result, err := withTelemetry(s, ctx, "BanUser", string(req.ChannelID)+":"+string(req.UserID), func(ctx context.Context) (results.OperationResult[moderationtypes.Ban, error], error) {
		return runInTx(s, ctx, banTx)
	})
	if err != nil {
		return nil, err
	}
	if err := s.InvalidateBans(ctx, req.ChannelID, req.UserID); err != nil {
		return nil, err
	}
	return result.Success, nil
}

// UnbanUser deactivates the user's bans in the channel.
func (s *ModerationService) UnbanUser(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID, userID, unbannedBy sharedtypes.UserID) error {
	unbanTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
		n, err := s.repo.DeactivateBans(ctx, db, channelID, userID)
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		if n == 0 {
			return results.FailureResult[bool, error](ErrNotBanned), nil
		}
		if err := s.events.Append(ctx, db, eventlogtypes.Event{
			GuildID:   guildID,
			ChannelID: channelID,
			UserID:    userID,
			Payload:   eventlogtypes.UserUnbanned{UnbannedBy: unbannedBy},
		}); err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}

	result, err := withTelemetry(s, ctx, "UnbanUser", string(channelID)+":"+string(userID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runInTx(s, ctx, unbanTx)
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return s.InvalidateBans(ctx, channelID, userID)
}

// SetTieredPunishment validates and stores a tier, replacing the tier at the
// same (guild, channel, trigger count).
func (s *ModerationService) SetTieredPunishment(ctx context.Context, tier moderationtypes.TieredPunishment) (*moderationtypes.TieredPunishment, error) {
	setTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[moderationtypes.TieredPunishment, error], error) {
		if err := ValidateTier(tier); err != nil {
			return results.FailureResult[moderationtypes.TieredPunishment, error](err), nil
		}
		row := tierToRow(tier)
		if err := s.repo.UpsertTier(ctx, db, row); err != nil {
			return results.OperationResult[moderationtypes.TieredPunishment, error]{}, err
		}
		return results.SuccessResult[moderationtypes.TieredPunishment, error](tierFromRow(*row)), nil
	}

	result, err := withTelemetry(s, ctx, "SetTieredPunishment", string(tier.GuildID), func(ctx context.Context) (results.OperationResult[moderationtypes.TieredPunishment, error], error) {
		return runInTx(s, ctx, setTx)
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return result.Success, nil
}

// RemoveTieredPunishment deletes one tier. A nil channelID addresses the
// guild-wide tier.
func (s *ModerationService) RemoveTieredPunishment(ctx context.Context, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID, triggerCount int) error {
	result, err := withTelemetry(s, ctx, "RemoveTieredPunishment", string(guildID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if err := s.repo.DeleteTier(ctx, s.idb(), guildID, channelID, triggerCount); err != nil {
			if errors.Is(err, moderationdb.ErrNotFound) {
				return results.FailureResult[bool, error](ErrTierNotFound), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}

// ListTieredPunishments lists every tier of the guild, or the tiers that can
// fire in one channel when channelID is set.
func (s *ModerationService) ListTieredPunishments(ctx context.Context, guildID sharedtypes.GuildID, channelID *sharedtypes.ChannelID) ([]moderationtypes.TieredPunishment, error) {
	rows, err := s.repo.ListTiers(ctx, s.idb(), guildID, channelID)
	if err != nil {
		return nil, err
	}
	out := make([]moderationtypes.TieredPunishment, len(rows))
	for i, row := range rows {
		out[i] = tierFromRow(row)
	}
	return out, nil
}

// HandleNonNumber applies the channel's non-number policy to a message that
// is not a counting attempt.
func (s *ModerationService) HandleNonNumber(ctx context.Context, msg moderationtypes.Message, cfg settingstypes.ModerationConfig) (moderationtypes.ViolationOutcome, error) {
	var out moderationtypes.ViolationOutcome
	if cfg.DeleteNonNumber {
		out.Deleted = s.deleteBestEffort(ctx, msg)
	}
	if !cfg.PunishNonNumber {
		return out, nil
	}

	deleted := out.Deleted
	count, applied, err := s.recordViolation(ctx, msg, cfg, func(count int) eventlogtypes.Payload {
		return eventlogtypes.NonNumberViolation{Deleted: deleted, WrongCount: count}
	})
	out.Violation = true
	out.WrongCount = count
	out.Punishment = applied
	return out, err
}

// HandleEdit applies the channel's edit policy. The hint naming lastAccepted
// is sent at most once per suppression window per channel.
func (s *ModerationService) HandleEdit(ctx context.Context, msg moderationtypes.Message, cfg settingstypes.ModerationConfig, lastAccepted int64) (moderationtypes.ViolationOutcome, error) {
	var out moderationtypes.ViolationOutcome
	if cfg.EditHint && s.claimEditHint(ctx, msg.ChannelID) {
		hint := s.printer.Sprintf("<@%s> edited a message. The last accepted number was %d.", msg.UserID, lastAccepted)
		if err := s.messenger.SendMessage(ctx, msg.ChannelID, hint); err != nil {
			s.logger.WarnContext(ctx, "Failed to send edit hint",
				attr.ChannelID("channel_id", msg.ChannelID),
				attr.Error(err),
			)
		} else {
			out.HintSent = true
		}
	}
	if cfg.DeleteEdited {
		out.Deleted = s.deleteBestEffort(ctx, msg)
	}
	if !cfg.PunishEdited {
		return out, nil
	}

	deleted := out.Deleted
	count, applied, err := s.recordViolation(ctx, msg, cfg, func(count int) eventlogtypes.Payload {
		return eventlogtypes.EditViolation{Deleted: deleted, WrongCount: count}
	})
	out.Violation = true
	out.WrongCount = count
	out.Punishment = applied
	return out, err
}

// recordViolation tracks the violation and logs it in one transaction, then
// escalates.
func (s *ModerationService) recordViolation(
	ctx context.Context,
	msg moderationtypes.Message,
	cfg settingstypes.ModerationConfig,
	payload func(count int) eventlogtypes.Payload,
) (int, *moderationtypes.AppliedPunishment, error) {
	var kind eventlogtypes.Kind
	violationTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
		count, err := s.trackWrongCount(ctx, db, msg.ChannelID, msg.UserID, cfg.WindowHours)
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		p := payload(count)
		kind = p.Kind()
		if err := s.events.Append(ctx, db, eventlogtypes.Event{
			GuildID:   msg.GuildID,
			ChannelID: msg.ChannelID,
			UserID:    msg.UserID,
			MessageID: msg.MessageID,
			Payload:   p,
		}); err != nil {
			return results.OperationResult[int, error]{}, err
		}
		return results.SuccessResult[int, error](count), nil
	}

	result, err := withTelemetry(s, ctx, "RecordViolation", string(msg.ChannelID)+":"+string(msg.UserID), func(ctx context.Context) (results.OperationResult[int, error], error) {
		return runInTx(s, ctx, violationTx)
	})
	if err != nil {
		return 0, nil, err
	}
	count := *result.Success
	s.metrics.RecordViolation(ctx, string(kind))

	applied, err := s.Escalate(ctx, msg.GuildID, msg.ChannelID, msg.UserID, count, cfg)
	return count, applied, err
}

func (s *ModerationService) deleteBestEffort(ctx context.Context, msg moderationtypes.Message) bool {
	if err := s.messenger.DeleteMessage(ctx, msg.ChannelID, msg.MessageID); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete message",
			attr.ChannelID("channel_id", msg.ChannelID),
			attr.String("message_id", string(msg.MessageID)),
			attr.Error(err),
		)
		return false
	}
	return true
}

// claimEditHint reports whether this caller may send the channel's edit
// hint. Without a working cache every caller may.
func (s *ModerationService) claimEditHint(ctx context.Context, channelID sharedtypes.ChannelID) bool {
	if s.store == nil {
		return true
	}
	ok, err := s.store.SetNX(ctx, editHintKey(channelID), []byte("1"), s.cfg.EditHintWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "Edit hint suppression unavailable", attr.Error(err))
		return true
	}
	return ok
}

// GetViolationStats reports violations, punishments and active bans in a
// channel, optionally since a point in time.
func (s *ModerationService) GetViolationStats(ctx context.Context, channelID sharedtypes.ChannelID, since *time.Time, limit int) (moderationtypes.ViolationStats, error) {
	if limit <= 0 {
		limit = DefaultTopViolators
	}
	result, err := withTelemetry(s, ctx, "GetViolationStats", string(channelID), func(ctx context.Context) (results.OperationResult[moderationtypes.ViolationStats, error], error) {
		stats := moderationtypes.ViolationStats{
			ChannelID: channelID,
			Since:     since,
			ByKind:    map[string]int64{},
		}

		counts, err := s.events.CountByKind(ctx, channelID, eventlogtypes.ViolationKinds, since)
		if err != nil {
			return results.OperationResult[moderationtypes.ViolationStats, error]{}, err
		}
		for kind, n := range counts {
			stats.ByKind[string(kind)] = n
			stats.Total += n
		}

		if stats.TopViolators, err = s.events.TopViolators(ctx, channelID, since, limit); err != nil {
			return results.OperationResult[moderationtypes.ViolationStats, error]{}, err
		}
		if stats.PunishmentsApplied, err = s.repo.CountApplied(ctx, s.idb(), channelID, since); err != nil {
			return results.OperationResult[moderationtypes.ViolationStats, error]{}, err
		}
		if stats.ActiveBans, err = s.repo.CountActiveBans(ctx, s.idb(), channelID, s.clock.Now().UTC()); err != nil {
			return results.OperationResult[moderationtypes.ViolationStats, error]{}, err
		}
		return results.SuccessResult[moderationtypes.ViolationStats, error](stats), nil
	})
	if err != nil {
		return moderationtypes.ViolationStats{}, err
	}
	return *result.Success, nil
}

// PurgeChannel deletes the channel's moderation rows.
func (s *ModerationService) PurgeChannel(ctx context.Context, db bun.IDB, channelID sharedtypes.ChannelID) ([]sharedtypes.UserID, error) {
	purgeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]sharedtypes.UserID, error], error) {
		users, err := s.repo.ListBannedUsers(ctx, db, channelID)
		if err != nil {
			return results.OperationResult[[]sharedtypes.UserID, error]{}, err
		}
		if err := s.repo.DeleteByChannel(ctx, db, channelID); err != nil {
			return results.OperationResult[[]sharedtypes.UserID, error]{}, err
		}
		return results.SuccessResult[[]sharedtypes.UserID, error](users), nil
	}

	result, err := withTelemetry(s, ctx, "PurgeChannel", string(channelID), func(ctx context.Context) (results.OperationResult[[]sharedtypes.UserID, error], error) {
		if db != nil {
			return purgeTx(ctx, db)
		}
		return runInTx(s, ctx, purgeTx)
	})
	if err != nil {
		return nil, err
	}
	users := *result.Success
	if db == nil {
		if err := s.InvalidateBans(ctx, channelID, users...); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// InvalidateBans drops cached ban answers.
func (s *ModerationService) InvalidateBans(ctx context.Context, channelID sharedtypes.ChannelID, userIDs ...sharedtypes.UserID) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, u := range userIDs {
		keys[i] = banKey(channelID, u)
	}
	return s.bans.Invalidate(ctx, keys...)
}

func (s *ModerationService) idb() bun.IDB {
	if s.db == nil {
		return nil
	}
	return s.db
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *ModerationService,
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
		s.metrics.RecordOperationAttempt(ctx, operationName, "ModerationService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "ModerationService", time.Since(startTime))
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
				s.metrics.RecordOperationFailure(ctx, operationName, "ModerationService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "ModerationService")
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
		s.metrics.RecordOperationSuccess(ctx, operationName, "ModerationService")
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *ModerationService,
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
