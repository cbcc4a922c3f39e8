package summary

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wardflow/wardflow/internal/wardform"
)

// FormSource supplies the approved shift forms the aggregator derives from.
// Satisfied by wardform.Repository.
type FormSource interface {
	FindLatestApproved(ctx context.Context, wardID, date string, shift wardform.Shift) (wardform.ShiftForm, error)
}

// Repository persists daily summaries.
type Repository interface {
	Get(ctx context.Context, wardID, date string) (DailySummary, error)
	// Upsert merges by the deterministic summary key; created_at of an
	// existing row is preserved.
	Upsert(ctx context.Context, s DailySummary) error
}

// Aggregator rebuilds the daily record from its source forms. Every pass is
// a full recompute, so running it N times with the same sources yields an
// identical record after the first call; it is safe to trigger once per
// shift approval for the same day.
type Aggregator struct {
	forms  FormSource
	repo   Repository
	logger *slog.Logger
}

// NewAggregator constructs the aggregator.
func NewAggregator(forms FormSource, repo Repository, logger *slog.Logger) *Aggregator {
	return &Aggregator{forms: forms, repo: repo, logger: logger}
}

// Upsert recomputes and writes the summary for ward+date. Either shift form
// may be absent; derived totals always come from the sources, never from
// the previously stored record.
func (a *Aggregator) Upsert(ctx context.Context, wardID, date string) error {
	id, err := SummaryID(wardID, date)
	if err != nil {
		return err
	}

	s := DailySummary{ID: id, WardID: wardID, Date: date}

	morning, morningErr := a.forms.FindLatestApproved(ctx, wardID, date, wardform.ShiftMorning)
	if morningErr != nil && !errors.Is(morningErr, wardform.ErrNotFound) {
		return morningErr
	}
	night, nightErr := a.forms.FindLatestApproved(ctx, wardID, date, wardform.ShiftNight)
	if nightErr != nil && !errors.Is(nightErr, wardform.ErrNotFound) {
		return nightErr
	}

	if morningErr == nil {
		s.Morning = snapshotFrom(morning)
	}
	if nightErr == nil {
		s.Night = snapshotFrom(night)
	}

	s.TotalAdmissions = s.Morning.admissions() + s.Night.admissions()
	s.TotalDepartures = s.Morning.departures() + s.Night.departures()
	s.TotalStaff = s.Morning.totalStaff() + s.Night.totalStaff()
	s.PatientCensus = s.Night.PatientCensus
	s.NurseToPatientRatio = nurseToPatientRatio(s.TotalStaff, s.Morning.PatientCensus, s.Night.PatientCensus)
	// Re-derived from the source forms' actual statuses every pass, never
	// flipped blindly.
	s.AllFormsApproved = s.Morning.Approved && s.Night.Approved

	if err := a.repo.Upsert(ctx, s); err != nil {
		return err
	}
	if a.logger != nil {
		a.logger.Info("daily summary recomputed",
			slog.String("ward", wardID), slog.String("date", date),
			slog.Bool("all_approved", s.AllFormsApproved))
	}
	return nil
}

func nurseToPatientRatio(totalStaff, morningCensus, nightCensus int) float64 {
	avg := (float64(morningCensus) + float64(nightCensus)) / 2
	if avg == 0 {
		return 0
	}
	return float64(totalStaff) / avg
}
