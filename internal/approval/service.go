package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/wardflow/wardflow/internal/shared"
	"github.com/wardflow/wardflow/internal/wardform"
)

const maxReasonLength = 500

// AggregatorPort triggers the daily summary recompute. The implementation
// must be idempotent and safe to call once per shift approval.
type AggregatorPort interface {
	Upsert(ctx context.Context, wardID, date string) error
}

// RetryEnqueuer schedules a deferred summary recompute when the inline
// aggregation pass fails.
type RetryEnqueuer interface {
	EnqueueSummaryRecompute(ctx context.Context, wardID, date string) error
}

// NotifierPort receives fire-and-forget review events.
type NotifierPort interface {
	FormApproved(ctx context.Context, form wardform.ShiftForm)
	FormRejected(ctx context.Context, form wardform.ShiftForm, reason string)
}

// Service performs approve/reject transitions, writes the audit history and
// triggers summary aggregation.
type Service struct {
	forms      wardform.Repository
	history    HistoryStore
	aggregator AggregatorPort
	retry      RetryEnqueuer
	notifier   NotifierPort
	metrics    wardform.MetricsPort
	logger     *slog.Logger
}

// NewService constructs the approval service. retry and notifier may be nil.
func NewService(forms wardform.Repository, history HistoryStore, aggregator AggregatorPort, retry RetryEnqueuer, notifier NotifierPort, logger *slog.Logger) *Service {
	return &Service{forms: forms, history: history, aggregator: aggregator, retry: retry, notifier: notifier, logger: logger}
}

// WithMetrics attaches the transition counter.
func (s *Service) WithMetrics(m wardform.MetricsPort) *Service {
	s.metrics = m
	return s
}

func (s *Service) observe(to wardform.FormStatus) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(to))
	}
}

// Approve transitions a Final form to Approved. The check happens before
// any write; a form in any other state leaves the store untouched.
func (s *Service) Approve(ctx context.Context, formID string) (string, error) {
	actor := shared.ActorFromContext(ctx)
	form, err := s.forms.Get(ctx, formID)
	if err != nil {
		return "", err
	}
	if form.Status != wardform.StatusFinal {
		return "", fmt.Errorf("%w: cannot approve a %s form", wardform.ErrInvalidState, form.Status)
	}
	if !wardform.NextAllowedStates(form.Status, actor.Role, form.Shift, "").Has(wardform.StatusApproved) {
		return "", ErrNotPermitted
	}

	now := time.Now()
	err = s.forms.UpdateStatus(ctx, formID, wardform.StatusUpdate{
		Status:     wardform.StatusApproved,
		UpdatedBy:  actor.ID,
		ApprovedBy: actor.ID,
		At:         now,
	})
	if err != nil {
		return "", err
	}

	// Re-read the row after the write. A mismatch is surfaced, never
	// retried automatically; retrying would double the side effects.
	verified, err := s.forms.Get(ctx, formID)
	if err != nil {
		return "", shared.NewPersistenceError("approval.verify", false, err)
	}
	if verified.Status != wardform.StatusApproved {
		return "", shared.NewPersistenceError("approval.verify", false,
			fmt.Errorf("form %s reads back as %s after approval", formID, verified.Status))
	}

	s.observe(wardform.StatusApproved)
	s.appendHistory(ctx, verified, ActionApproved, "", actor, now)

	if s.notifier != nil {
		s.notifier.FormApproved(ctx, verified)
	}

	// The approval stands regardless of what happens to the summary; a
	// stale summary is repaired by retrying the recompute, which is safe
	// to run any number of times.
	if err := s.aggregator.Upsert(ctx, form.WardID, form.Date); err != nil {
		s.logf(ctx, "summary aggregation failed", err,
			slog.String("ward", form.WardID), slog.String("date", form.Date))
		if s.retry != nil {
			enqErr := s.retry.EnqueueSummaryRecompute(ctx, form.WardID, form.Date)
			if enqErr == nil {
				return formID, nil
			}
			s.logf(ctx, "summary recompute enqueue failed", enqErr)
		}
		return formID, fmt.Errorf("approval recorded, summary aggregation pending retry: %w", err)
	}
	return formID, nil
}

// Reject transitions a Final form to Rejected with a mandatory reason. The
// daily summary is never touched by a rejection.
func (s *Service) Reject(ctx context.Context, formID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return ErrReasonTooLong
	}
	actor := shared.ActorFromContext(ctx)
	form, err := s.forms.Get(ctx, formID)
	if err != nil {
		return err
	}
	if form.Status != wardform.StatusFinal {
		return fmt.Errorf("%w: cannot reject a %s form", wardform.ErrInvalidState, form.Status)
	}
	if !wardform.NextAllowedStates(form.Status, actor.Role, form.Shift, "").Has(wardform.StatusRejected) {
		return ErrNotPermitted
	}

	now := time.Now()
	err = s.forms.UpdateStatus(ctx, formID, wardform.StatusUpdate{
		Status:          wardform.StatusRejected,
		UpdatedBy:       actor.ID,
		RejectionReason: reason,
		At:              now,
	})
	if err != nil {
		return err
	}

	s.observe(wardform.StatusRejected)
	s.appendHistory(ctx, form, ActionRejected, reason, actor, now)

	if s.notifier != nil {
		s.notifier.FormRejected(ctx, form, reason)
	}
	return nil
}

// History returns the review trail for one form.
func (s *Service) History(ctx context.Context, formID string) ([]HistoryRecord, error) {
	return s.history.ListByForm(ctx, formID)
}

// appendHistory writes the audit record. History is best-effort: a failure
// is logged and never rolls back the review action itself.
func (s *Service) appendHistory(ctx context.Context, form wardform.ShiftForm, action Action, reason string, actor shared.Actor, at time.Time) {
	rec := HistoryRecord{
		ID:        historyID(actor.Role, form.ID, form.Date, at),
		FormID:    form.ID,
		WardID:    form.WardID,
		Date:      form.Date,
		Shift:     form.Shift,
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Timestamp: at,
		Reason:    reason,
	}
	if err := s.history.Append(ctx, rec); err != nil {
		s.logf(ctx, "approval history append failed", err, slog.String("form", form.ID))
	}
}

func (s *Service) logf(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.Any("error", err))
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.ErrorContext(ctx, msg, args...)
}
