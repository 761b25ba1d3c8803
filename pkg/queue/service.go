package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// ErrNotStarted is returned by Enqueue before Start.
var ErrNotStarted = errors.New("queue service not started")

// Enqueuer inserts background jobs. Modules depend on this rather than on
// the River client.
type Enqueuer interface {
	Enqueue(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error
}

var _ Enqueuer = (*Service)(nil)

// Service owns the River client shared by every module. Modules register
// their workers, queues and periodic jobs before Start.
type Service struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	metrics  operationmetrics.Metrics
	workers  *river.Workers
	queues   map[string]river.QueueConfig
	periodic []*river.PeriodicJob

	mu     sync.RWMutex
	client *river.Client[pgx.Tx]
}

// NewService connects the pgx pool River runs on.
func NewService(ctx context.Context, dsn string, logger *slog.Logger, metrics operationmetrics.Metrics) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))
	ctxLogger.Info("Queue service initialized")

	return &Service{
		pool:    pool,
		logger:  ctxLogger,
		metrics: metrics,
		workers: river.NewWorkers(),
		queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 50},
		},
	}, nil
}

// AddWorker registers a worker. It must be called before Start.
func AddWorker[T river.JobArgs](s *Service, worker river.Worker[T]) {
	river.AddWorker(s.workers, worker)
}

// AddQueue declares a named queue.
func (s *Service) AddQueue(name string, maxWorkers int) {
	s.queues[name] = river.QueueConfig{MaxWorkers: maxWorkers}
}

// AddPeriodicJob schedules a recurring job.
func (s *Service) AddPeriodicJob(job *river.PeriodicJob) {
	s.periodic = append(s.periodic, job)
}

// Migrate brings River's own tables up to date.
func (s *Service) Migrate(ctx context.Context) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(s.pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("failed to migrate river tables: %w", err)
	}
	for _, v := range res.Versions {
		s.logger.Info("Applied river migration", attr.Int("version", v.Version))
	}
	return nil
}

// Start builds the River client from everything registered so far and
// starts working jobs.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")

	client, err := river.NewClient(riverpgxv5.New(s.pool), &river.Config{
		Queues:       s.queues,
		Workers:      s.workers,
		PeriodicJobs: s.periodic,
		Logger:       s.logger,
	})
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to create River client: %w", err)
	}

	if err := client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))
	s.logger.Info("Queue service started", attr.Int("queues", len(s.queues)), attr.Int("periodic_jobs", len(s.periodic)))
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	defer s.pool.Close()
	if client == nil {
		return nil
	}

	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")
	if err := client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.logger.Info("Queue service stopped")
	return nil
}

// Enqueue inserts a job.
func (s *Service) Enqueue(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ErrNotStarted
	}

	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_"+args.Kind(), "river")

	res, err := client.Insert(ctx, args, opts)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "enqueue_"+args.Kind(), "river")
		return fmt.Errorf("failed to enqueue %s job: %w", args.Kind(), err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_"+args.Kind(), "river")
	s.metrics.RecordOperationDuration(ctx, "enqueue_"+args.Kind(), "river", time.Since(start))
	s.logger.DebugContext(ctx, "Job enqueued",
		attr.String("kind", args.Kind()),
		attr.Int64("job_id", res.Job.ID),
		attr.Bool("skipped_as_duplicate", res.UniqueSkippedAsDuplicate),
	)
	return nil
}

// HealthCheck verifies the queue database is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
