// Package notify emits fire-and-forget workflow events towards the
// notification sink. Delivery failures are logged and must never block or
// fail the save/approve/reject that produced them.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wardflow/wardflow/internal/wardform"
)

// TaskTypeDispatch is the asynq task type carrying one notification event.
const TaskTypeDispatch = "notify:dispatch"

// Event kinds.
const (
	EventFormSaved     = "form_saved"
	EventFormFinalized = "form_finalized"
	EventFormApproved  = "form_approved"
	EventFormRejected  = "form_rejected"
	EventDayCompleted  = "day_completed"
)

// Event is the payload delivered to the notification sink.
type Event struct {
	Kind   string    `json:"kind"`
	FormID string    `json:"formId,omitempty"`
	WardID string    `json:"wardId"`
	Date   string    `json:"date"`
	Shift  string    `json:"shift,omitempty"`
	Status string    `json:"status,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// NewDispatchTask constructs the asynq task for an event.
func NewDispatchTask(event Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDispatch, data), nil
}

// HandleDispatchTask processes TaskTypeDispatch tasks. Delivery is a log
// line for now; the surrounding application owns the real sink.
func HandleDispatchTask(ctx context.Context, t *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().InfoContext(ctx, "notification dispatched",
		slog.String("kind", event.Kind),
		slog.String("ward", event.WardID),
		slog.String("date", event.Date),
		slog.String("form", event.FormID))
	return nil
}

// Dispatcher enqueues events onto the worker queue. A nil client degrades
// to logging only.
type Dispatcher struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(client *asynq.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

func (d *Dispatcher) emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	event.At = time.Now()
	if d.client == nil {
		if d.logger != nil {
			d.logger.InfoContext(ctx, "notification (no queue)", slog.String("kind", event.Kind), slog.String("ward", event.WardID))
		}
		return
	}
	task, err := NewDispatchTask(event)
	if err == nil {
		_, err = d.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	}
	if err != nil && d.logger != nil {
		d.logger.WarnContext(ctx, "notification enqueue failed", slog.String("kind", event.Kind), slog.Any("error", err))
	}
}

// FormSaved reports a draft save.
func (d *Dispatcher) FormSaved(ctx context.Context, form wardform.ShiftForm) {
	d.emit(ctx, Event{Kind: EventFormSaved, FormID: form.ID, WardID: form.WardID, Date: form.Date, Shift: string(form.Shift), Status: string(form.Status)})
}

// FormFinalized reports a finalize.
func (d *Dispatcher) FormFinalized(ctx context.Context, form wardform.ShiftForm) {
	d.emit(ctx, Event{Kind: EventFormFinalized, FormID: form.ID, WardID: form.WardID, Date: form.Date, Shift: string(form.Shift), Status: string(form.Status)})
}

// FormApproved reports an approval.
func (d *Dispatcher) FormApproved(ctx context.Context, form wardform.ShiftForm) {
	d.emit(ctx, Event{Kind: EventFormApproved, FormID: form.ID, WardID: form.WardID, Date: form.Date, Shift: string(form.Shift), Status: string(wardform.StatusApproved)})
}

// FormRejected reports a rejection with its reason.
func (d *Dispatcher) FormRejected(ctx context.Context, form wardform.ShiftForm, reason string) {
	d.emit(ctx, Event{Kind: EventFormRejected, FormID: form.ID, WardID: form.WardID, Date: form.Date, Shift: string(form.Shift), Status: string(wardform.StatusRejected), Reason: reason})
}

// DayCompleted reports that both shifts of a day reached Approved.
func (d *Dispatcher) DayCompleted(ctx context.Context, wardID, date string) {
	d.emit(ctx, Event{Kind: EventDayCompleted, WardID: wardID, Date: date})
}
