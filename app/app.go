package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Black-And-White-Club/counting-bot/app/modules/counting"
	countingservice "github.com/Black-And-White-Club/counting-bot/app/modules/counting/application"
	"github.com/Black-And-White-Club/counting-bot/app/modules/eventlog"
	"github.com/Black-And-White-Club/counting-bot/app/modules/moderation"
	moderationservice "github.com/Black-And-White-Club/counting-bot/app/modules/moderation/application"
	"github.com/Black-And-White-Club/counting-bot/app/modules/settings"
	"github.com/Black-And-White-Club/counting-bot/app/modules/stats"
	"github.com/Black-And-White-Club/counting-bot/config"
	"github.com/Black-And-White-Club/counting-bot/internal/discord"
	"github.com/Black-And-White-Club/counting-bot/internal/httpapi"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/eventbus"
	"github.com/Black-And-White-Club/counting-bot/pkg/jwt"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	"github.com/Black-And-White-Club/counting-bot/pkg/outbound"
	"github.com/Black-And-White-Club/counting-bot/pkg/queue"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/time/rate"
)

// App owns process-wide infrastructure and every module.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Router        *message.Router
	Queue         *queue.Service
	Modules       *Modules

	clock  clockwork.Clock
	redis  *goredis.Client
	bridge *discord.Bridge
	http   *httpapi.Server
}

// Modules holds the initialized modules.
type Modules struct {
	SettingsModule   *settings.Module
	EventLogModule   *eventlog.Module
	ModerationModule *moderation.Module
	StatsModule      *stats.Module
	CountingModule   *counting.Module
}

// NewApp connects infrastructure and builds every module. Nothing consumes
// messages or jobs until Run.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs := observability.Init(observability.Config{
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
	})
	app := &App{
		Config:        cfg,
		Observability: obs,
		clock:         clockwork.NewRealClock(),
	}
	if err := app.initialize(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) logger() *slog.Logger { return app.Observability.Provider.Logger }

func (app *App) initialize(ctx context.Context) error {
	cfg := app.Config
	logger := app.logger()

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	app.DB = bun.NewDB(pgdb, pgdialect.New())
	if err := app.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := MigrateAll(ctx, app.DB, logger); err != nil {
		return err
	}

	var store cache.Store
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		app.redis = rdb
		store = cache.NewRedisStore(rdb, cfg.Redis.KeyPrefix)
	} else {
		logger.InfoContext(ctx, "No Redis URL configured, using in-process cache")
		store = cache.NewMemoryStore(app.clock)
	}

	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewNATSEventBus(eventbus.NATSConfig{
			URL:        cfg.NATS.URL,
			QueueGroup: cfg.NATS.QueueGroup,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		app.EventBus = bus
	} else {
		logger.InfoContext(ctx, "No NATS URL configured, using in-process event bus")
		app.EventBus = eventbus.NewInMemoryEventBus(logger)
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create watermill router: %w", err)
	}
	app.Router = router

	if cfg.Queue.Enabled {
		q, err := queue.NewService(ctx, cfg.Postgres.DSN, logger,
			operationmetrics.NewPrometheus(app.Observability.Registry.Prometheus, "queue"))
		if err != nil {
			return err
		}
		if err := q.Migrate(ctx); err != nil {
			return err
		}
		app.Queue = q
	}

	messenger, punisher, err := app.outbound()
	if err != nil {
		return err
	}

	return app.initializeModules(ctx, store, messenger, punisher)
}

// outbound picks direct Discord execution when a token is configured and
// bus-published requests otherwise.
func (app *App) outbound() (outbound.Messenger, outbound.Punisher, error) {
	if app.Config.Discord.Token == "" {
		return outbound.NewBusMessenger(app.EventBus), outbound.NewBusPunisher(app.EventBus), nil
	}
	session, err := discord.NewSession(app.Config.Discord.Token)
	if err != nil {
		return nil, nil, err
	}
	app.bridge = discord.NewBridge(session, app.EventBus, app.logger())
	return discord.NewMessenger(session), discord.NewPunisher(session, app.clock), nil
}

func (app *App) initializeModules(ctx context.Context, store cache.Store, messenger outbound.Messenger, punisher outbound.Punisher) error {
	cfg := app.Config
	obs := app.Observability
	cc := cfg.Counting

	settingsModule, err := settings.NewSettingsModule(ctx, obs, app.DB, store, cc.SettingsCacheTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize settings module: %w", err)
	}
	eventLogModule, err := eventlog.NewEventLogModule(ctx, obs, app.DB, app.clock)
	if err != nil {
		return fmt.Errorf("failed to initialize event log module: %w", err)
	}
	moderationModule, err := moderation.NewModerationModule(ctx, obs, app.DB, app.clock, store,
		eventLogModule.EventLogService, messenger, punisher, app.Queue,
		moderationservice.Config{BanCacheTTL: cc.BanCacheTTL, EditHintWindow: cc.EditHintWindow},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize moderation module: %w", err)
	}
	statsModule, err := stats.NewStatsModule(ctx, obs, app.DB, app.clock, store,
		stats.Config{CacheTTL: cc.StatsCacheTTL, SnapshotInterval: cc.SnapshotInterval}, app.Queue)
	if err != nil {
		return fmt.Errorf("failed to initialize stats module: %w", err)
	}
	countingModule, err := counting.NewCountingModule(ctx, obs, app.DB, app.clock, store, app.EventBus, app.Router,
		counting.Deps{
			Settings:   settingsModule.SettingsService,
			Moderation: moderationModule.ModerationService,
			Stats:      statsModule.StatsService,
			Events:     eventLogModule.EventLogService,
			Messenger:  messenger,
		},
		app.Queue,
		countingservice.Config{
			StateCacheTTL:   cc.StateCacheTTL,
			DeleteDelay:     cc.DeleteDelay,
			LaneIdleTimeout: cc.LaneIdleTimeout,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize counting module: %w", err)
	}

	app.Modules = &Modules{
		SettingsModule:   settingsModule,
		EventLogModule:   eventLogModule,
		ModerationModule: moderationModule,
		StatsModule:      statsModule,
		CountingModule:   countingModule,
	}

	app.http = httpapi.NewServer(cfg.HTTP.Address, app.httpRouter(), app.logger())
	return nil
}

func (app *App) httpRouter() http.Handler {
	cfg := app.Config
	handlers := httpapi.NewHandlers(
		app.Modules.CountingModule.CountingService,
		app.Modules.StatsModule.StatsService,
		app.Modules.ModerationModule.ModerationService,
		app.logger(),
	)
	tokens := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.DefaultTTL, app.clock)
	limiter := httpapi.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst, app.clock)

	checks := map[string]httpapi.HealthCheck{
		"postgres": app.DB.PingContext,
	}
	if app.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}
	if app.Queue != nil {
		checks["queue"] = app.Queue.HealthCheck
	}
	return httpapi.NewRouter(handlers, tokens, limiter, app.Observability.Registry.Prometheus, checks, app.logger())
}

// Run starts the job queue, the watermill router, the gateway bridge and the
// operator API, and blocks until ctx is cancelled or one of them fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.logger()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if app.Queue != nil {
		if err := app.Queue.Start(ctx); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go app.Modules.CountingModule.Run(ctx, &wg)

	errCh := make(chan error, 2)
	go func() {
		if err := app.Router.Run(ctx); err != nil {
			errCh <- fmt.Errorf("watermill router stopped: %w", err)
		}
	}()
	select {
	case <-app.Router.Running():
	case err := <-errCh:
		cancel()
		wg.Wait()
		return err
	}

	if app.bridge != nil {
		if err := app.bridge.Start(ctx); err != nil {
			return err
		}
	}

	go func() {
		if err := app.http.Run(ctx); err != nil {
			errCh <- fmt.Errorf("operator API stopped: %w", err)
		}
	}()

	logger.InfoContext(ctx, "Counting bot running")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.ErrorContext(ctx, "Component failed", attr.Error(runErr))
	}
	cancel()
	wg.Wait()
	return runErr
}

// Close releases everything NewApp acquired. It is safe on a partially
// initialized App.
func (app *App) Close() {
	logger := app.logger()
	ctx := context.Background()
	var errs []error

	if app.bridge != nil {
		errs = append(errs, app.bridge.Close())
	}
	if app.Router != nil {
		errs = append(errs, app.Router.Close())
	}
	if app.Modules != nil {
		errs = append(errs,
			app.Modules.CountingModule.Close(),
			app.Modules.StatsModule.Close(),
			app.Modules.ModerationModule.Close(),
			app.Modules.EventLogModule.Close(),
			app.Modules.SettingsModule.Close(),
		)
	}
	if app.Queue != nil {
		errs = append(errs, app.Queue.Stop(ctx))
	}
	if app.EventBus != nil {
		errs = append(errs, app.EventBus.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.DB != nil {
		errs = append(errs, app.DB.Close())
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("Errors during shutdown", attr.Error(err))
		return
	}
	logger.Info("Application shut down gracefully")
}
