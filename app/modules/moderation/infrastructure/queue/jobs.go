package moderationqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	moderationtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/moderation"
	"github.com/riverqueue/river"
)

// LiftPunishmentJob reverses a timed punishment once it expires.
type LiftPunishmentJob struct {
	AppliedID int64                             `json:"applied_id"`
	Request   moderationtypes.PunishmentRequest `json:"request"`
}

// Kind returns the job type identifier for River.
func (LiftPunishmentJob) Kind() string { return "moderation_lift_punishment" }

// InsertOpts limits lift retries; a punishment that cannot be lifted after
// a few attempts needs a human.
func (LiftPunishmentJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 3}
}

// Lifter is the punishment collaborator's reversing half.
type Lifter interface {
	Lift(ctx context.Context, req moderationtypes.PunishmentRequest) error
}

// LiftPunishmentWorker runs LiftPunishmentJob.
type LiftPunishmentWorker struct {
	river.WorkerDefaults[LiftPunishmentJob]
	lifter Lifter
	logger *slog.Logger
}

// NewLiftPunishmentWorker creates a LiftPunishmentWorker.
func NewLiftPunishmentWorker(lifter Lifter, logger *slog.Logger) *LiftPunishmentWorker {
	return &LiftPunishmentWorker{lifter: lifter, logger: logger}
}

func (w *LiftPunishmentWorker) Work(ctx context.Context, job *river.Job[LiftPunishmentJob]) error {
	req := job.Args.Request
	if err := w.lifter.Lift(ctx, req); err != nil {
		w.logger.WarnContext(ctx, "Failed to lift punishment",
			attr.Int64("job_id", job.ID),
			attr.Int64("applied_id", job.Args.AppliedID),
			attr.String("action", string(req.Action)),
			attr.UserID("user_id", req.UserID),
			attr.Error(err),
		)
		return fmt.Errorf("lift punishment %d: %w", job.Args.AppliedID, err)
	}
	w.logger.InfoContext(ctx, "Punishment lifted",
		attr.Int64("applied_id", job.Args.AppliedID),
		attr.String("action", string(req.Action)),
		attr.UserID("user_id", req.UserID),
	)
	return nil
}

// NeedsLift reports whether an action with a duration must be reversed by
// the bot. Discord expires timeouts on its own.
func NeedsLift(action moderationtypes.Action) bool {
	switch action {
	case moderationtypes.ActionMute, moderationtypes.ActionAddRole:
		return true
	}
	return false
}
