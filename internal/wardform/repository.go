package wardform

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardflow/wardflow/internal/census"
	"github.com/wardflow/wardflow/internal/platform/db"
	"github.com/wardflow/wardflow/internal/shared"
)

// StatusUpdate carries the fields written alongside a status transition.
type StatusUpdate struct {
	Status          FormStatus
	UpdatedBy       string
	ApprovedBy      string
	RejectionReason string
	At              time.Time
}

// Repository encapsulates store operations for shift forms.
type Repository interface {
	// Find returns the current record for ward+date+shift. Multiple rows
	// may exist for one combination (finalize creates new identities); the
	// highest-precedence one wins, ties broken by most recent update.
	Find(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error)
	// FindDraft returns only the live draft, if any.
	FindDraft(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error)
	// FindLatestFinalized returns the most recent Final or Approved record,
	// used for census carry-over.
	FindLatestFinalized(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error)
	// FindLatestApproved returns the most recent Approved record, used by
	// the daily summary aggregator.
	FindLatestApproved(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error)
	Get(ctx context.Context, formID string) (ShiftForm, error)
	// SaveDraft upserts the draft for ward+date+shift, merging into an
	// existing draft without touching created_by/created_at.
	SaveDraft(ctx context.Context, form ShiftForm) (string, error)
	// Finalize writes a new Final record under a fresh identity and removes
	// the superseded draft in the same transaction.
	Finalize(ctx context.Context, form ShiftForm) (string, error)
	UpdateStatus(ctx context.Context, formID string, update StatusUpdate) error
}

type repository struct {
	db    *pgxpool.Pool
	cache *FormCache
}

// NewRepository constructs the Postgres-backed repository. cache may be nil.
func NewRepository(pool *pgxpool.Pool, cache *FormCache) Repository {
	return &repository{db: pool, cache: cache}
}

const formColumns = `id, ward_id, form_date, shift, status,
starting_census, new_admits, transfers_in, refers_in,
discharges, transfers_out, refers_out, deaths,
computed_census, patient_census,
nurses, practical_nurses, nurse_aides, available_beds, unavailable_beds,
recorder_name, charge_nurse_name, remarks, rejection_reason,
created_by, updated_by, approved_by, created_at, updated_at, finalized_at, approved_at`

const statusPrecedenceSQL = `CASE status
WHEN 'approved' THEN 3 WHEN 'final' THEN 2 WHEN 'rejected' THEN 1 ELSE 0 END`

func scanForm(row pgx.Row) (ShiftForm, error) {
	var f ShiftForm
	var formDate time.Time
	err := row.Scan(&f.ID, &f.WardID, &formDate, &f.Shift, &f.Status,
		&f.StartingCensus, &f.NewAdmits, &f.TransfersIn, &f.RefersIn,
		&f.Discharges, &f.TransfersOut, &f.RefersOut, &f.Deaths,
		&f.ComputedCensus, &f.PatientCensus,
		&f.Nurses, &f.PracticalNurses, &f.NurseAides, &f.AvailableBeds, &f.UnavailableBeds,
		&f.RecorderName, &f.ChargeNurseName, &f.Remarks, &f.RejectionReason,
		&f.CreatedBy, &f.UpdatedBy, &f.ApprovedBy, &f.CreatedAt, &f.UpdatedAt, &f.FinalizedAt, &f.ApprovedAt)
	if err != nil {
		return ShiftForm{}, err
	}
	f.Date = formDate.Format("2006-01-02")
	return f, nil
}

func (r *repository) findOne(ctx context.Context, op, where string, args ...any) (ShiftForm, error) {
	query := `SELECT ` + formColumns + ` FROM ward_forms WHERE ` + where +
		` ORDER BY ` + statusPrecedenceSQL + ` DESC, updated_at DESC LIMIT 1`
	form, err := scanForm(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ShiftForm{}, ErrNotFound
		}
		return ShiftForm{}, shared.ClassifyStoreError(op, err)
	}
	return form, nil
}

func (r *repository) Find(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	if form, ok := r.cache.Get(ctx, wardID, date, shift); ok {
		return form, nil
	}
	form, err := r.findOne(ctx, "wardform.find",
		`ward_id=$1 AND form_date=$2 AND shift=$3`, wardID, date, shift)
	if err != nil {
		return ShiftForm{}, err
	}
	r.cache.Set(ctx, form)
	return form, nil
}

func (r *repository) FindDraft(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	return r.findOne(ctx, "wardform.find_draft",
		`ward_id=$1 AND form_date=$2 AND shift=$3 AND status='draft'`, wardID, date, shift)
}

func (r *repository) FindLatestFinalized(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	return r.findOne(ctx, "wardform.find_finalized",
		`ward_id=$1 AND form_date=$2 AND shift=$3 AND status IN ('final','approved')`, wardID, date, shift)
}

func (r *repository) FindLatestApproved(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	return r.findOne(ctx, "wardform.find_approved",
		`ward_id=$1 AND form_date=$2 AND shift=$3 AND status='approved'`, wardID, date, shift)
}

func (r *repository) Get(ctx context.Context, formID string) (ShiftForm, error) {
	query := `SELECT ` + formColumns + ` FROM ward_forms WHERE id=$1`
	form, err := scanForm(r.db.QueryRow(ctx, query, formID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ShiftForm{}, ErrNotFound
		}
		return ShiftForm{}, shared.ClassifyStoreError("wardform.get", err)
	}
	return form, nil
}

const insertFormSQL = `INSERT INTO ward_forms (` + formColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31)`

func formArgs(f ShiftForm, day time.Time) []any {
	return []any{f.ID, f.WardID, day, f.Shift, f.Status,
		f.StartingCensus, f.NewAdmits, f.TransfersIn, f.RefersIn,
		f.Discharges, f.TransfersOut, f.RefersOut, f.Deaths,
		f.ComputedCensus, f.PatientCensus,
		f.Nurses, f.PracticalNurses, f.NurseAides, f.AvailableBeds, f.UnavailableBeds,
		f.RecorderName, f.ChargeNurseName, f.Remarks, f.RejectionReason,
		f.CreatedBy, f.UpdatedBy, f.ApprovedBy, f.CreatedAt, f.UpdatedAt, f.FinalizedAt, f.ApprovedAt}
}

func (r *repository) SaveDraft(ctx context.Context, form ShiftForm) (string, error) {
	day, err := census.ParseDay(form.Date)
	if err != nil {
		return "", err
	}
	form.Status = StatusDraft
	id, err := FormKey{WardID: form.WardID, Shift: form.Shift, Status: StatusDraft, Date: form.Date}.Encode()
	if err != nil {
		return "", err
	}
	form.ID = id
	now := time.Now()
	form.CreatedAt = now
	form.UpdatedAt = now

	// Merge, not replace: an existing draft keeps its created_by/created_at.
	query := insertFormSQL + ` ON CONFLICT (id) DO UPDATE SET
starting_census=EXCLUDED.starting_census, new_admits=EXCLUDED.new_admits,
transfers_in=EXCLUDED.transfers_in, refers_in=EXCLUDED.refers_in,
discharges=EXCLUDED.discharges, transfers_out=EXCLUDED.transfers_out,
refers_out=EXCLUDED.refers_out, deaths=EXCLUDED.deaths,
computed_census=EXCLUDED.computed_census, patient_census=EXCLUDED.patient_census,
nurses=EXCLUDED.nurses, practical_nurses=EXCLUDED.practical_nurses,
nurse_aides=EXCLUDED.nurse_aides, available_beds=EXCLUDED.available_beds,
unavailable_beds=EXCLUDED.unavailable_beds,
recorder_name=EXCLUDED.recorder_name, charge_nurse_name=EXCLUDED.charge_nurse_name,
remarks=EXCLUDED.remarks, rejection_reason=EXCLUDED.rejection_reason,
updated_by=EXCLUDED.updated_by, updated_at=NOW()`
	if _, err := r.db.Exec(ctx, query, formArgs(form, day)...); err != nil {
		return "", shared.ClassifyStoreError("wardform.save_draft", err)
	}
	if err := r.cache.Invalidate(ctx, form.WardID, form.Date, form.Shift); err != nil {
		return "", shared.ClassifyStoreError("wardform.cache_invalidate", err)
	}
	return id, nil
}

func (r *repository) Finalize(ctx context.Context, form ShiftForm) (string, error) {
	day, err := census.ParseDay(form.Date)
	if err != nil {
		return "", err
	}
	now := time.Now()
	form.Status = StatusFinal
	form.FinalizedAt = &now
	form.UpdatedAt = now
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	// A fresh identity per finalization keeps the finalize timestamp
	// auditable and repeated finalizations collision-free.
	id, err := NewFinalID(form.WardID, form.Shift, form.Date, now)
	if err != nil {
		return "", err
	}
	form.ID = id

	draftID, err := FormKey{WardID: form.WardID, Shift: form.Shift, Status: StatusDraft, Date: form.Date}.Encode()
	if err != nil {
		return "", err
	}
	err = db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertFormSQL, formArgs(form, day)...); err != nil {
			return err
		}
		// The superseded draft must not remain a live record for the shift.
		if _, err := tx.Exec(ctx, `DELETE FROM ward_forms WHERE id=$1`, draftID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", shared.ClassifyStoreError("wardform.finalize", err)
	}
	if err := r.cache.Invalidate(ctx, form.WardID, form.Date, form.Shift); err != nil {
		return "", shared.ClassifyStoreError("wardform.cache_invalidate", err)
	}
	return id, nil
}

func (r *repository) UpdateStatus(ctx context.Context, formID string, update StatusUpdate) error {
	at := update.At
	if at.IsZero() {
		at = time.Now()
	}
	var approvedAt *time.Time
	if update.Status == StatusApproved {
		approvedAt = &at
	}
	cmd, err := r.db.Exec(ctx, `UPDATE ward_forms
SET status=$2, updated_by=$3, approved_by=$4, approved_at=$5, rejection_reason=$6, updated_at=$7
WHERE id=$1`, formID, update.Status, update.UpdatedBy, update.ApprovedBy, approvedAt, update.RejectionReason, at)
	if err != nil {
		return shared.ClassifyStoreError("wardform.update_status", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	if key, err := ParseFormKey(formID); err == nil {
		if err := r.cache.Invalidate(ctx, key.WardID, key.Date, key.Shift); err != nil {
			return shared.ClassifyStoreError("wardform.cache_invalidate", err)
		}
	}
	return nil
}
