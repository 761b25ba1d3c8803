package eventlog

import (
	"context"

	eventlogservice "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/application"
	eventlogdb "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// Module represents the event log module. It has no subscriptions of its
// own; other modules append to it inside their transactions.
type Module struct {
	EventLogService eventlogservice.Service
	observability   observability.Observability
}

// NewEventLogModule creates and initializes a new event log module.
func NewEventLogModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	clock clockwork.Clock,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "eventlog.NewEventLogModule initializing")

	repo := eventlogdb.NewRepository(db)
	metrics := operationmetrics.NewPrometheus(obs.Registry.Prometheus, "eventlog")
	service := eventlogservice.NewEventLogService(repo, logger, metrics, tracer, db, clock)

	return &Module{
		EventLogService: service,
		observability:   obs,
	}, nil
}

// Close shuts down the event log module.
func (m *Module) Close() error {
	m.observability.Provider.Logger.Info("Event log module stopped")
	return nil
}
