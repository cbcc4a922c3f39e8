package approval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardflow/wardflow/internal/census"
	"github.com/wardflow/wardflow/internal/shared"
	"github.com/wardflow/wardflow/internal/wardform"
)

// HistoryStore persists approval history records. Records are append-only;
// there is deliberately no update or delete surface.
type HistoryStore interface {
	Append(ctx context.Context, rec HistoryRecord) error
	ListByForm(ctx context.Context, formID string) ([]HistoryRecord, error)
}

// HistoryRecorder is the Postgres-backed HistoryStore.
type HistoryRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewHistoryRecorder constructs HistoryRecorder.
func NewHistoryRecorder(pool *pgxpool.Pool, logger *slog.Logger) *HistoryRecorder {
	return &HistoryRecorder{pool: pool, logger: logger}
}

// Append writes one history entry.
func (r *HistoryRecorder) Append(ctx context.Context, rec HistoryRecord) error {
	if r == nil {
		return errors.New("approval: history recorder not initialised")
	}
	if rec.FormID == "" {
		return errors.New("approval: history form id required")
	}
	if rec.ActorID == "" {
		return errors.New("approval: history actor required")
	}
	if rec.Action == "" {
		return errors.New("approval: history action required")
	}
	day, err := census.ParseDay(rec.Date)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO approval_history
(id, form_id, ward_id, form_date, shift, action, actor_id, actor_name, actor_role, reason, at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.ID, rec.FormID, rec.WardID, day, rec.Shift, rec.Action,
		rec.ActorID, rec.ActorName, rec.ActorRole, rec.Reason, rec.Timestamp)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("append approval history", slog.Any("error", err))
		}
		return shared.ClassifyStoreError("approval.history_append", err)
	}
	return nil
}

// ListByForm returns history for one form, oldest first.
func (r *HistoryRecorder) ListByForm(ctx context.Context, formID string) ([]HistoryRecord, error) {
	if r == nil {
		return nil, errors.New("approval: history recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, form_id, ward_id, form_date, shift, action, actor_id, actor_name, actor_role, reason, at
FROM approval_history WHERE form_id=$1 ORDER BY at ASC`, formID)
	if err != nil {
		return nil, shared.ClassifyStoreError("approval.history_list", err)
	}
	defer rows.Close()
	var records []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var day time.Time
		var shift string
		if err := rows.Scan(&rec.ID, &rec.FormID, &rec.WardID, &day, &shift, &rec.Action,
			&rec.ActorID, &rec.ActorName, &rec.ActorRole, &rec.Reason, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Date = day.Format("2006-01-02")
		rec.Shift = wardform.Shift(shift)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
