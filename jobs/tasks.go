package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSummaryRecompute is the task type for deferred daily summary
	// aggregation. Enqueued when the inline pass after an approval fails.
	TaskTypeSummaryRecompute = "summary:recompute"
	// TaskTypeIdempotencyCleanup prunes aged idempotency keys on a schedule.
	TaskTypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SummaryRecomputePayload identifies the ward-day to re-aggregate.
type SummaryRecomputePayload struct {
	WardID string `json:"wardId"`
	Date   string `json:"date"`
}

// NewSummaryRecomputeTask constructs an Asynq task.
func NewSummaryRecomputeTask(payload SummaryRecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSummaryRecompute, data), nil
}

// NewIdempotencyCleanupTask constructs the scheduled cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}
