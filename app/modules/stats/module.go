package stats

import (
	"context"
	"time"

	statsservice "github.com/Black-And-White-Club/counting-bot/app/modules/stats/application"
	statsqueue "github.com/Black-And-White-Club/counting-bot/app/modules/stats/infrastructure/queue"
	statsdb "github.com/Black-And-White-Club/counting-bot/app/modules/stats/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	"github.com/Black-And-White-Club/counting-bot/pkg/queue"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// Config carries the stats module's tunables.
type Config struct {
	CacheTTL         time.Duration
	SnapshotInterval time.Duration
}

// Module represents the stats module.
type Module struct {
	StatsService  statsservice.Service
	observability observability.Observability
}

// NewStatsModule creates and initializes a new stats module. When q is
// non-nil the leaderboard snapshot worker and its schedule are registered
// on it; q must not have been started yet.
func NewStatsModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	clock clockwork.Clock,
	store cache.Store,
	cfg Config,
	q *queue.Service,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "stats.NewStatsModule initializing")

	repo := statsdb.NewRepository(db)
	metrics := operationmetrics.NewPrometheus(obs.Registry.Prometheus, "stats")
	service := statsservice.NewStatsService(repo, logger, metrics, tracer, db, clock, store, cfg.CacheTTL)

	if q != nil {
		queue.AddWorker(q, statsqueue.NewSnapshotWorker(service, logger))
		q.AddPeriodicJob(statsqueue.PeriodicSnapshotJob(cfg.SnapshotInterval))
	}

	return &Module{
		StatsService:  service,
		observability: obs,
	}, nil
}

// Close shuts down the stats module.
func (m *Module) Close() error {
	m.observability.Provider.Logger.Info("Stats module stopped")
	return nil
}
