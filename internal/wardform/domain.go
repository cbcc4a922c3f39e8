// Package wardform implements per-ward, per-shift census and staffing
// submissions and their draft/final/approved lifecycle.
package wardform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardflow/wardflow/internal/census"
)

// Shift enumerates the two daily recording windows.
type Shift string

const (
	ShiftMorning Shift = "m"
	ShiftNight   Shift = "n"
)

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	return s == ShiftMorning || s == ShiftNight
}

// FormStatus enumerates shift form lifecycle values.
type FormStatus string

const (
	StatusDraft    FormStatus = "draft"
	StatusFinal    FormStatus = "final"
	StatusApproved FormStatus = "approved"
	StatusRejected FormStatus = "rejected"
)

// StatusPrecedence ranks statuses for record lookup: the most authoritative
// record wins when multiple rows exist for one ward+date+shift.
func StatusPrecedence(s FormStatus) int {
	switch s {
	case StatusApproved:
		return 3
	case StatusFinal:
		return 2
	case StatusRejected:
		return 1
	default:
		return 0
	}
}

var (
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = errors.New("wardform: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("wardform: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("wardform: invalid input")
	// ErrOverwriteConfirm indicates a draft already exists and the caller
	// did not confirm overwriting it.
	ErrOverwriteConfirm = errors.New("wardform: existing draft requires overwrite confirmation")
	// ErrZeroConfirm indicates an all-zero submission that the caller has
	// not explicitly confirmed.
	ErrZeroConfirm = errors.New("wardform: all-zero counts require confirmation")
)

// ValidationError lists every offending field at once so the user can fix
// the whole form in one pass.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "wardform: invalid input: " + strings.Join(e.Fields, ", ")
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FormKey is the typed composite identity of a shift form record. The string
// encoding (wardId, shift letter, status, compact date, optional time
// suffix) lives here and nowhere else.
type FormKey struct {
	WardID string
	Shift  Shift
	Status FormStatus
	Date   string // calendar day, 2006-01-02
	Suffix string // HHMMSS plus a random tail, set on finalize so repeated finalizations never collide
}

// Encode renders the key, e.g. WARD1_m_final_d20250101_t143201.
func (k FormKey) Encode() (string, error) {
	if k.WardID == "" {
		return "", fmt.Errorf("wardform: key ward id required")
	}
	if !k.Shift.Valid() {
		return "", fmt.Errorf("wardform: key shift invalid")
	}
	compact, err := census.CompactDay(k.Date)
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("%s_%s_%s_d%s", k.WardID, k.Shift, k.Status, compact)
	if k.Suffix != "" {
		id += "_t" + k.Suffix
	}
	return id, nil
}

// NewFinalID mints the record identity for one finalization. The suffix
// carries the finalize time plus a random tail, so two finalizations of the
// same ward+date+shift inside one second still get distinct identities.
func NewFinalID(wardID string, shift Shift, date string, at time.Time) (string, error) {
	return FormKey{
		WardID: wardID,
		Shift:  shift,
		Status: StatusFinal,
		Date:   date,
		Suffix: at.Format("150405") + uuid.NewString()[:8],
	}.Encode()
}

// ParseFormKey decodes an encoded record identity.
func ParseFormKey(id string) (FormKey, error) {
	parts := strings.Split(id, "_")
	if len(parts) < 4 {
		return FormKey{}, fmt.Errorf("wardform: malformed form id %q", id)
	}
	var key FormKey
	rest := parts[len(parts)-1]
	if strings.HasPrefix(rest, "t") && len(parts) >= 5 {
		key.Suffix = strings.TrimPrefix(rest, "t")
		parts = parts[:len(parts)-1]
	}
	datePart := parts[len(parts)-1]
	if !strings.HasPrefix(datePart, "d") || len(datePart) != 9 {
		return FormKey{}, fmt.Errorf("wardform: malformed form id %q", id)
	}
	compact := strings.TrimPrefix(datePart, "d")
	day, err := time.Parse("20060102", compact)
	if err != nil {
		return FormKey{}, fmt.Errorf("wardform: malformed form id %q: %w", id, err)
	}
	key.Date = day.Format("2006-01-02")
	key.Status = FormStatus(parts[len(parts)-2])
	key.Shift = Shift(parts[len(parts)-3])
	if !key.Shift.Valid() {
		return FormKey{}, fmt.Errorf("wardform: malformed form id %q", id)
	}
	key.WardID = strings.Join(parts[:len(parts)-3], "_")
	if key.WardID == "" {
		return FormKey{}, fmt.Errorf("wardform: malformed form id %q", id)
	}
	return key, nil
}

// ShiftForm is one ward+date+shift submission. Every numeric field is a
// plain non-negative int defaulted to zero; the store never receives an
// absent value.
type ShiftForm struct {
	ID     string
	WardID string
	Date   string // calendar day, ward-local
	Shift  Shift
	Status FormStatus

	StartingCensus int
	NewAdmits      int
	TransfersIn    int
	RefersIn       int
	Discharges     int
	TransfersOut   int
	RefersOut      int
	Deaths         int
	ComputedCensus int
	PatientCensus  int

	Nurses          int
	PracticalNurses int
	NurseAides      int
	AvailableBeds   int
	UnavailableBeds int

	RecorderName    string
	ChargeNurseName string
	Remarks         string
	RejectionReason string

	CreatedBy   string
	UpdatedBy   string
	ApprovedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
	ApprovedAt  *time.Time
}

// Admissions sums every inbound movement.
func (f *ShiftForm) Admissions() int {
	return f.NewAdmits + f.TransfersIn + f.RefersIn
}

// Departures sums every outbound movement.
func (f *ShiftForm) Departures() int {
	return f.Discharges + f.TransfersOut + f.RefersOut + f.Deaths
}

// TotalStaff sums staffing counts.
func (f *ShiftForm) TotalStaff() int {
	return f.Nurses + f.PracticalNurses + f.NurseAides
}

// AllCountsZero reports whether every census and staffing input is zero,
// which triggers the zero-value confirmation step.
func (f *ShiftForm) AllCountsZero() bool {
	return f.Admissions() == 0 && f.Departures() == 0 && f.TotalStaff() == 0 &&
		f.StartingCensus == 0 && f.AvailableBeds == 0 && f.UnavailableBeds == 0
}

// Key returns the typed identity of the form's current row.
func (f *ShiftForm) Key() FormKey {
	return FormKey{WardID: f.WardID, Shift: f.Shift, Status: f.Status, Date: f.Date}
}
