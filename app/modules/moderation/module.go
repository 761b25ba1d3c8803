package moderation

import (
	"context"

	eventlogservice "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/application"
	moderationservice "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/application"
	moderationqueue "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/infrastructure/queue"
	moderationdb "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability"
	moderationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/moderation"
	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	"github.com/Black-And-White-Club/counting-bot/pkg/queue"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// Module represents the moderation module.
type Module struct {
	ModerationService moderationservice.Service
	observability     observability.Observability
}

// NewModerationModule creates and initializes a new moderation module. When
// q is non-nil the punishment lift worker is registered on it and timed
// punishments are scheduled for lifting.
func NewModerationModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	clock clockwork.Clock,
	store cache.Store,
	events eventlogservice.Service,
	messenger outbound.Messenger,
	punisher outbound.Punisher,
	q *queue.Service,
	cfg moderationservice.Config,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "moderation.NewModerationModule initializing")

	var jobs queue.Enqueuer
	if q != nil {
		queue.AddWorker(q, moderationqueue.NewLiftPunishmentWorker(punisher, logger))
		jobs = q
	}

	repo := moderationdb.NewRepository(db)
	metrics := moderationmetrics.NewPrometheus(obs.Registry.Prometheus)
	service := moderationservice.NewModerationService(
		repo, events, messenger, punisher, jobs,
		logger, metrics, tracer, db, clock, store, cfg,
	)

	return &Module{
		ModerationService: service,
		observability:     obs,
	}, nil
}

// Close shuts down the moderation module.
func (m *Module) Close() error {
	m.observability.Provider.Logger.Info("Moderation module stopped")
	return nil
}
