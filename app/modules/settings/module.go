package settings

import (
	"context"
	"time"

	settingsservice "github.com/Black-And-White-Club/counting-bot/app/modules/settings/application"
	settingsdb "github.com/Black-And-White-Club/counting-bot/app/modules/settings/infrastructure/repositories"
	"github.com/Black-And-White-Club/counting-bot/pkg/cache"
	"github.com/Black-And-White-Club/counting-bot/pkg/observability"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	"github.com/uptrace/bun"
)

// Module represents the settings module.
type Module struct {
	SettingsService settingsservice.Service
	observability   observability.Observability
}

// NewSettingsModule creates and initializes a new settings module.
func NewSettingsModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	store cache.Store,
	cacheTTL time.Duration,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "settings.NewSettingsModule initializing")

	repo := settingsdb.NewRepository(db)
	metrics := operationmetrics.NewPrometheus(obs.Registry.Prometheus, "settings")
	service := settingsservice.NewSettingsService(repo, logger, metrics, tracer, db, store, cacheTTL)

	return &Module{
		SettingsService: service,
		observability:   obs,
	}, nil
}

// Close shuts down the settings module.
func (m *Module) Close() error {
	m.observability.Provider.Logger.Info("Settings module stopped")
	return nil
}
