// Package summary maintains the merged daily record combining one ward's
// morning and night shift data for one calendar day.
package summary

import (
	"errors"
	"fmt"
	"time"

	"github.com/wardflow/wardflow/internal/census"
	"github.com/wardflow/wardflow/internal/wardform"
)

// ErrNotFound indicates no summary exists for ward+date.
var ErrNotFound = errors.New("summary: not found")

// ShiftSnapshot mirrors one shift's census and staffing fields inside the
// daily record. Snapshots are derived data, recomputed in full from the
// source forms on every aggregation pass.
type ShiftSnapshot struct {
	Approved bool `json:"approved"`

	StartingCensus int `json:"startingCensus"`
	NewAdmits      int `json:"newAdmits"`
	TransfersIn    int `json:"transfersIn"`
	RefersIn       int `json:"refersIn"`
	Discharges     int `json:"discharges"`
	TransfersOut   int `json:"transfersOut"`
	RefersOut      int `json:"refersOut"`
	Deaths         int `json:"deaths"`
	ComputedCensus int `json:"computedCensus"`
	PatientCensus  int `json:"patientCensus"`

	Nurses          int `json:"nurses"`
	PracticalNurses int `json:"practicalNurses"`
	NurseAides      int `json:"nurseAides"`
	AvailableBeds   int `json:"availableBeds"`
	UnavailableBeds int `json:"unavailableBeds"`
}

func (s ShiftSnapshot) admissions() int {
	return s.NewAdmits + s.TransfersIn + s.RefersIn
}

func (s ShiftSnapshot) departures() int {
	return s.Discharges + s.TransfersOut + s.RefersOut + s.Deaths
}

func (s ShiftSnapshot) totalStaff() int {
	return s.Nurses + s.PracticalNurses + s.NurseAides
}

func snapshotFrom(f wardform.ShiftForm) ShiftSnapshot {
	return ShiftSnapshot{
		Approved:        f.Status == wardform.StatusApproved,
		StartingCensus:  f.StartingCensus,
		NewAdmits:       f.NewAdmits,
		TransfersIn:     f.TransfersIn,
		RefersIn:        f.RefersIn,
		Discharges:      f.Discharges,
		TransfersOut:    f.TransfersOut,
		RefersOut:       f.RefersOut,
		Deaths:          f.Deaths,
		ComputedCensus:  f.ComputedCensus,
		PatientCensus:   f.PatientCensus,
		Nurses:          f.Nurses,
		PracticalNurses: f.PracticalNurses,
		NurseAides:      f.NurseAides,
		AvailableBeds:   f.AvailableBeds,
		UnavailableBeds: f.UnavailableBeds,
	}
}

// DailySummary is one merged record per ward+date.
//
// Grain: (ward_id, summary_date). Every derived field is rebuilt from the
// latest approved shift forms; the record can always be reconstructed.
type DailySummary struct {
	ID     string `json:"id"`
	WardID string `json:"wardId"`
	Date   string `json:"date"`

	Morning ShiftSnapshot `json:"morning"`
	Night   ShiftSnapshot `json:"night"`

	TotalAdmissions int `json:"totalAdmissions"`
	TotalDepartures int `json:"totalDepartures"`
	TotalStaff      int `json:"totalStaff"`

	// PatientCensus is the day's value: the night shift's final census,
	// the latest chronological reading.
	PatientCensus       int     `json:"patientCensus"`
	NurseToPatientRatio float64 `json:"nurseToPatientRatio"`
	AllFormsApproved    bool    `json:"allFormsApproved"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TotalsBreakdown sums each movement and staffing counter across both
// shifts. It is derived from the stored snapshots, never persisted.
type TotalsBreakdown struct {
	NewAdmits    int `json:"newAdmits"`
	TransfersIn  int `json:"transfersIn"`
	RefersIn     int `json:"refersIn"`
	Discharges   int `json:"discharges"`
	TransfersOut int `json:"transfersOut"`
	RefersOut    int `json:"refersOut"`
	Deaths       int `json:"deaths"`

	Nurses          int `json:"nurses"`
	PracticalNurses int `json:"practicalNurses"`
	NurseAides      int `json:"nurseAides"`
}

// Breakdown returns the per-field 24-hour totals for dashboard consumers.
func (s DailySummary) Breakdown() TotalsBreakdown {
	return TotalsBreakdown{
		NewAdmits:       s.Morning.NewAdmits + s.Night.NewAdmits,
		TransfersIn:     s.Morning.TransfersIn + s.Night.TransfersIn,
		RefersIn:        s.Morning.RefersIn + s.Night.RefersIn,
		Discharges:      s.Morning.Discharges + s.Night.Discharges,
		TransfersOut:    s.Morning.TransfersOut + s.Night.TransfersOut,
		RefersOut:       s.Morning.RefersOut + s.Night.RefersOut,
		Deaths:          s.Morning.Deaths + s.Night.Deaths,
		Nurses:          s.Morning.Nurses + s.Night.Nurses,
		PracticalNurses: s.Morning.PracticalNurses + s.Night.PracticalNurses,
		NurseAides:      s.Morning.NurseAides + s.Night.NurseAides,
	}
}

// SummaryID renders the deterministic record key, e.g. WARD1_d20250101.
// Concurrent aggregation passes converge on the same row through it.
func SummaryID(wardID, date string) (string, error) {
	if wardID == "" {
		return "", fmt.Errorf("summary: ward id required")
	}
	compact, err := census.CompactDay(date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_d%s", wardID, compact), nil
}
