package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardflow/wardflow/internal/census"
	"github.com/wardflow/wardflow/internal/shared"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed summary repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// snapshotFields is the column order shared by reads and writes; both shift
// prefixes and the scan/args helpers derive from it.
var snapshotFields = []string{
	"approved",
	"starting_census", "new_admits", "transfers_in", "refers_in",
	"discharges", "transfers_out", "refers_out", "deaths",
	"computed_census", "patient_census",
	"nurses", "practical_nurses", "nurse_aides",
	"available_beds", "unavailable_beds",
}

func snapshotColumns(prefix string) string {
	cols := make([]string, len(snapshotFields))
	for i, f := range snapshotFields {
		cols[i] = prefix + "_" + f
	}
	return strings.Join(cols, ", ")
}

func (s *ShiftSnapshot) fieldPtrs() []any {
	return []any{
		&s.Approved,
		&s.StartingCensus, &s.NewAdmits, &s.TransfersIn, &s.RefersIn,
		&s.Discharges, &s.TransfersOut, &s.RefersOut, &s.Deaths,
		&s.ComputedCensus, &s.PatientCensus,
		&s.Nurses, &s.PracticalNurses, &s.NurseAides,
		&s.AvailableBeds, &s.UnavailableBeds,
	}
}

func (s ShiftSnapshot) fieldArgs() []any {
	return []any{
		s.Approved,
		s.StartingCensus, s.NewAdmits, s.TransfersIn, s.RefersIn,
		s.Discharges, s.TransfersOut, s.RefersOut, s.Deaths,
		s.ComputedCensus, s.PatientCensus,
		s.Nurses, s.PracticalNurses, s.NurseAides,
		s.AvailableBeds, s.UnavailableBeds,
	}
}

func summaryColumns() string {
	return "id, ward_id, summary_date, " +
		snapshotColumns("morning") + ", " + snapshotColumns("night") +
		", total_admissions, total_departures, total_staff, patient_census, nurse_patient_ratio, all_forms_approved, created_at, updated_at"
}

func (r *repository) Get(ctx context.Context, wardID, date string) (DailySummary, error) {
	id, err := SummaryID(wardID, date)
	if err != nil {
		return DailySummary{}, err
	}
	query := `SELECT ` + summaryColumns() + ` FROM daily_summaries WHERE id=$1`
	var s DailySummary
	var summaryDate time.Time
	ptrs := []any{&s.ID, &s.WardID, &summaryDate}
	ptrs = append(ptrs, s.Morning.fieldPtrs()...)
	ptrs = append(ptrs, s.Night.fieldPtrs()...)
	ptrs = append(ptrs, &s.TotalAdmissions, &s.TotalDepartures, &s.TotalStaff,
		&s.PatientCensus, &s.NurseToPatientRatio, &s.AllFormsApproved, &s.CreatedAt, &s.UpdatedAt)
	if err := r.db.QueryRow(ctx, query, id).Scan(ptrs...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DailySummary{}, ErrNotFound
		}
		return DailySummary{}, shared.ClassifyStoreError("summary.get", err)
	}
	s.Date = summaryDate.Format("2006-01-02")
	return s, nil
}

func (r *repository) Upsert(ctx context.Context, s DailySummary) error {
	day, err := census.ParseDay(s.Date)
	if err != nil {
		return err
	}
	cols := summaryColumns()
	n := len(strings.Split(cols, ","))
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	// Merge by the deterministic key so concurrent aggregation passes
	// converge on one row; created_at survives, everything derived is
	// replaced wholesale.
	var updates []string
	for _, prefix := range []string{"morning", "night"} {
		for _, f := range snapshotFields {
			col := prefix + "_" + f
			updates = append(updates, col+"=EXCLUDED."+col)
		}
	}
	for _, col := range []string{"total_admissions", "total_departures", "total_staff",
		"patient_census", "nurse_patient_ratio", "all_forms_approved", "updated_at"} {
		updates = append(updates, col+"=EXCLUDED."+col)
	}

	query := `INSERT INTO daily_summaries (` + cols + `) VALUES (` +
		strings.Join(placeholders, ",") + `) ON CONFLICT (id) DO UPDATE SET ` +
		strings.Join(updates, ", ")

	now := time.Now()
	args := []any{s.ID, s.WardID, day}
	args = append(args, s.Morning.fieldArgs()...)
	args = append(args, s.Night.fieldArgs()...)
	args = append(args, s.TotalAdmissions, s.TotalDepartures, s.TotalStaff,
		s.PatientCensus, s.NurseToPatientRatio, s.AllFormsApproved, now, now)

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return shared.ClassifyStoreError("summary.upsert", err)
	}
	return nil
}
