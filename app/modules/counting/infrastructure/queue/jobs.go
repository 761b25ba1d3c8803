package countingqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/riverqueue/river"
)

// DefaultDeleteDelay is how long a wrong number stays visible.
const DefaultDeleteDelay = 5 * time.Second

// DeleteMessageJob removes a wrong submission after a short delay.
type DeleteMessageJob struct {
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	MessageID sharedtypes.MessageID `json:"message_id"`
}

// Kind returns the job type identifier for River.
func (DeleteMessageJob) Kind() string { return "counting_delete_message" }

// InsertOpts makes the deletion a single attempt.
func (DeleteMessageJob) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

// Deleter is the messaging collaborator's delete request.
type Deleter interface {
	DeleteMessage(ctx context.Context, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error
}

// DeleteMessageWorker runs DeleteMessageJob.
type DeleteMessageWorker struct {
	river.WorkerDefaults[DeleteMessageJob]
	deleter Deleter
	logger  *slog.Logger
}

// NewDeleteMessageWorker creates a DeleteMessageWorker.
func NewDeleteMessageWorker(deleter Deleter, logger *slog.Logger) *DeleteMessageWorker {
	return &DeleteMessageWorker{deleter: deleter, logger: logger}
}

// Work deletes the message. Failures are logged and swallowed.
func (w *DeleteMessageWorker) Work(ctx context.Context, job *river.Job[DeleteMessageJob]) error {
	if err := w.deleter.DeleteMessage(ctx, job.Args.ChannelID, job.Args.MessageID); err != nil {
		w.logger.WarnContext(ctx, "Deferred message deletion failed",
			attr.Int64("job_id", job.ID),
			attr.ChannelID("channel_id", job.Args.ChannelID),
			attr.MessageID("message_id", job.Args.MessageID),
			attr.Error(err),
		)
	}
	return nil
}
