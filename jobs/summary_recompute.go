package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/wardflow/wardflow/internal/jobs"
	"github.com/wardflow/wardflow/internal/shared"
	"github.com/wardflow/wardflow/internal/summary"
)

// DayNotifier receives the one-shot signal that a ward-day is fully approved.
type DayNotifier interface {
	DayCompleted(ctx context.Context, wardID, date string)
}

// SummaryMetrics counts aggregation passes by outcome.
type SummaryMetrics interface {
	ObserveSummaryPass(outcome string)
}

// Recompute runs the daily summary aggregation. Both the inline pass after
// an approval and the queued retry go through it, so the day-completed
// notification has a single owner and fires at most once per ward-day.
type Recompute struct {
	aggregator  *summary.Aggregator
	summaries   summary.Repository
	idempotency *shared.IdempotencyStore
	notifier    DayNotifier
	metrics     SummaryMetrics
	tracker     *jobmetrics.Metrics
	logger      *slog.Logger
}

// NewRecompute constructs the runner. notifier may be nil.
func NewRecompute(aggregator *summary.Aggregator, summaries summary.Repository, idem *shared.IdempotencyStore, notifier DayNotifier, logger *slog.Logger) *Recompute {
	return &Recompute{aggregator: aggregator, summaries: summaries, idempotency: idem, notifier: notifier, logger: logger}
}

// WithMetrics attaches the pass counter.
func (r *Recompute) WithMetrics(m SummaryMetrics) *Recompute {
	r.metrics = m
	return r
}

// WithTracker attaches job lifecycle instrumentation for queued runs.
func (r *Recompute) WithTracker(t *jobmetrics.Metrics) *Recompute {
	r.tracker = t
	return r
}

// Upsert re-aggregates one ward-day and emits the completion signal when
// this pass left both shifts approved.
func (r *Recompute) Upsert(ctx context.Context, wardID, date string) error {
	if err := r.aggregator.Upsert(ctx, wardID, date); err != nil {
		if r.metrics != nil {
			r.metrics.ObserveSummaryPass("error")
		}
		return err
	}
	if r.metrics != nil {
		r.metrics.ObserveSummaryPass("ok")
	}
	r.notifyIfComplete(ctx, wardID, date)
	return nil
}

func (r *Recompute) notifyIfComplete(ctx context.Context, wardID, date string) {
	if r.notifier == nil {
		return
	}
	s, err := r.summaries.Get(ctx, wardID, date)
	if err != nil {
		if !errors.Is(err, summary.ErrNotFound) && r.logger != nil {
			r.logger.WarnContext(ctx, "day completion check failed", slog.String("ward", wardID), slog.String("date", date), slog.Any("error", err))
		}
		return
	}
	if !s.AllFormsApproved {
		return
	}
	// Recompute reruns on every approval and on retries; the key keeps the
	// signal from firing again for the same ward-day.
	if r.idempotency != nil {
		err := r.idempotency.CheckAndInsert(ctx, "day_completed:"+s.ID, "summary")
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return
		}
		if err != nil {
			if r.logger != nil {
				r.logger.WarnContext(ctx, "day completion dedupe failed", slog.String("ward", wardID), slog.Any("error", err))
			}
			return
		}
	}
	r.notifier.DayCompleted(ctx, wardID, date)
}

// HandleTask processes TaskTypeSummaryRecompute tasks.
func (r *Recompute) HandleTask(ctx context.Context, t *asynq.Task) error {
	track := r.tracker.Track("summary_recompute")
	var payload SummaryRecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return track.End(asynq.SkipRetry)
	}
	if err := track.End(r.Upsert(ctx, payload.WardID, payload.Date)); err != nil {
		var perr *shared.PersistenceError
		if errors.As(err, &perr) && !perr.Retriable {
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "summary recompute dropped", slog.String("ward", payload.WardID), slog.String("date", payload.Date), slog.Any("error", err))
			}
			return asynq.SkipRetry
		}
		return err
	}
	return nil
}
