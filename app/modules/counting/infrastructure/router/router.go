package countingrouter

import (
	"context"
	"log/slog"
	"os"
	"time"

	countinghandlers "github.com/Black-And-White-Club/counting-bot/app/modules/counting/infrastructure/handlers"
	"github.com/Black-And-White-Club/counting-bot/pkg/eventbus"
	countingevents "github.com/Black-And-White-Club/counting-bot/pkg/events/counting"
	"github.com/Black-And-White-Club/counting-bot/pkg/utils/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// CountingRouter binds counting topics to their handlers.
type CountingRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     eventbus.EventBus
	publisher      eventbus.EventBus
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewCountingRouter creates a new instance of the router. Router metrics are
// skipped in the test environment, where registries are shared across runs.
func NewCountingRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
) *CountingRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}

	return &CountingRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the middlewares and registers the counting handlers.
func (r *CountingRouter) Configure(routerCtx context.Context, handlers countinghandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.logger.Info("Adding Prometheus router metrics middleware for Counting")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Multiplier:      2,
			Logger:          watermill.NewSlogLogger(r.logger),
		}.Middleware,
	)

	return r.RegisterHandlers(routerCtx, handlers)
}

type handlerDeps struct {
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	logger     *slog.Logger
	tracer     trace.Tracer
}

func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "counting." + topic
	deps.router.AddNoPublisherHandler(
		handlerName,
		topic,
		deps.subscriber,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.publisher,
			handler,
		),
	)
}

// RegisterHandlers binds counting topics to their handler logic.
func (r *CountingRouter) RegisterHandlers(ctx context.Context, handlers countinghandlers.Handlers) error {
	r.logger.InfoContext(ctx, "Registering Counting Event Handlers")

	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	// CHAT TRAFFIC
	registerHandler(deps, countingevents.MessageCreatedV1, handlers.HandleMessageCreated)
	registerHandler(deps, countingevents.MessageUpdatedV1, handlers.HandleMessageUpdated)

	// ADMIN
	registerHandler(deps, countingevents.ChannelSetupRequestedV1, handlers.HandleChannelSetupRequested)
	registerHandler(deps, countingevents.ChannelResetRequestedV1, handlers.HandleChannelResetRequested)

	// READS
	registerHandler(deps, countingevents.LeaderboardRequestedV1, handlers.HandleLeaderboardRequested)

	return nil
}

// Close stops the router and cleans up resources.
func (r *CountingRouter) Close() error {
	return r.Router.Close()
}
