package statsqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	"github.com/riverqueue/river"
)

// SnapshotInterval is how often every channel's leaderboard is persisted.
const SnapshotInterval = 24 * time.Hour

// SnapshotLeaderboardsJob persists a score-ordered leaderboard for every
// channel with stats.
type SnapshotLeaderboardsJob struct{}

// Kind returns the job type identifier for River.
func (SnapshotLeaderboardsJob) Kind() string { return "stats_snapshot_leaderboards" }

// Snapshotter is the slice of the stats service the worker needs.
type Snapshotter interface {
	SnapshotAll(ctx context.Context) (int, error)
}

// SnapshotWorker runs SnapshotLeaderboardsJob.
type SnapshotWorker struct {
	river.WorkerDefaults[SnapshotLeaderboardsJob]
	service Snapshotter
	logger  *slog.Logger
}

// NewSnapshotWorker creates a SnapshotWorker.
func NewSnapshotWorker(service Snapshotter, logger *slog.Logger) *SnapshotWorker {
	return &SnapshotWorker{service: service, logger: logger}
}

// Work snapshots every channel. Partial failures fail the job so River
// records them; the next period retries every channel anyway.
func (w *SnapshotWorker) Work(ctx context.Context, job *river.Job[SnapshotLeaderboardsJob]) error {
	n, err := w.service.SnapshotAll(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "Leaderboard snapshot run incomplete",
			attr.Int64("job_id", job.ID),
			attr.Int("succeeded", n),
			attr.Error(err),
		)
		return err
	}
	return nil
}

// PeriodicSnapshotJob schedules SnapshotLeaderboardsJob every interval.
func PeriodicSnapshotJob(interval time.Duration) *river.PeriodicJob {
	if interval <= 0 {
		interval = SnapshotInterval
	}
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return SnapshotLeaderboardsJob{}, &river.InsertOpts{MaxAttempts: 1}
		},
		nil,
	)
}
