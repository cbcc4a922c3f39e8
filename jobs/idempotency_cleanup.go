package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/wardflow/wardflow/internal/jobs"
	"github.com/wardflow/wardflow/internal/shared"
)

// idempotencyRetention keeps day-completed markers well past the period in
// which a late retry for that ward-day could still arrive.
const idempotencyRetention = 90 * 24 * time.Hour

// IdempotencyCleanup prunes aged idempotency keys on a schedule.
type IdempotencyCleanup struct {
	store   *shared.IdempotencyStore
	tracker *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewIdempotencyCleanup constructs the cleanup job.
func NewIdempotencyCleanup(store *shared.IdempotencyStore, logger *slog.Logger) *IdempotencyCleanup {
	return &IdempotencyCleanup{store: store, logger: logger}
}

// WithTracker attaches job lifecycle instrumentation.
func (j *IdempotencyCleanup) WithTracker(t *jobmetrics.Metrics) *IdempotencyCleanup {
	j.tracker = t
	return j
}

// HandleTask processes TaskTypeIdempotencyCleanup tasks.
func (j *IdempotencyCleanup) HandleTask(ctx context.Context, t *asynq.Task) error {
	track := j.tracker.Track("idempotency_cleanup")
	if err := track.End(j.store.Cleanup(ctx, idempotencyRetention)); err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.InfoContext(ctx, "idempotency keys pruned", slog.String("job", "idempotency_cleanup"))
	}
	return nil
}
