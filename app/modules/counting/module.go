package counting

import (
	"context"
	"fmt"
	"sync"

	countingservice "github.com/Black-And-White-Club/counting-bot/app/modules/counting/application"
	countinghandlers "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/handlers"
	countingqueue "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/queue"
	countingdb "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/repositories"
	countingrouter "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/router"
	eventlogservice "github.com/Black-And-White-Club/counting-bot/app/modules/eventlog/application"
	moderationservice "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/application"
	settingsservice "github.com/Black-And-White-Club/counting-bot/app/modules/settings/application"
	statsservice "github.com/Black-And-White-Club/counting-bot/app/modules/stats/application"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/eventbus"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability"
	countingmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/counting"
	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	"github.com/Black-And-White-Club/counting-bot/pkg/queue"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// Module represents the counting module.
type Module struct {
	EventBus        eventbus.EventBus
	CountingService countingservice.Service
	CountingRouter  *countingrouter.CountingRouter
	cancelFunc      context.CancelFunc
	observability   observability.Observability
}

// Deps are the sibling services the counting engine coordinates.
type Deps struct {
	Settings   settingsservice.Service
	Moderation moderationservice.Service
	Stats      statsservice.Service
	Events     eventlogservice.Service
	Messenger  outbound.Messenger
}

// NewCountingModule creates and initializes a new counting module. When q is
// non-nil wrong numbers are deleted by a delayed job instead of at once.
func NewCountingModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	clock clockwork.Clock,
	store cache.Store,
	eventBus eventbus.EventBus,
	router *message.Router,
	deps Deps,
	q *queue.Service,
	cfg countingservice.Config,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "counting.NewCountingModule initializing")

	var jobs queue.Enqueuer
	if q != nil {
		queue.AddWorker(q, countingqueue.NewDeleteMessageWorker(deps.Messenger, logger))
		jobs = q
	}

	repo := countingdb.NewRepository(db)
	metrics := countingmetrics.NewPrometheus(obs.Registry.Prometheus)
	service := countingservice.NewCountingService(
		repo, deps.Settings, deps.Moderation, deps.Stats, deps.Events, deps.Messenger, jobs,
		logger, metrics, tracer, db, clock, store, cfg,
	)

	countingRouter := countingrouter.NewCountingRouter(logger, router, eventBus, eventBus, tracer, obs.Registry.Prometheus)
	handlers := countinghandlers.NewCountingHandlers(service, deps.Stats, logger)
	if err := countingRouter.Configure(ctx, handlers); err != nil {
		service.Close()
		return nil, fmt.Errorf("failed to configure counting router: %w", err)
	}

	return &Module{
		EventBus:        eventBus,
		CountingService: service,
		CountingRouter:  countingRouter,
		observability:   obs,
	}, nil
}

// Run blocks until ctx is cancelled or Close is called.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting counting module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Counting module goroutine stopped")
}

// Close stops every counting lane.
func (m *Module) Close() error {
	logger := m.observability.Provider.Logger
	logger.Info("Stopping counting module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.CountingService.Close()

	logger.Info("Counting module stopped")
	return nil
}
