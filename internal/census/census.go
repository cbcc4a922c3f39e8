// Package census implements the patient census arithmetic and the
// carry-over rules linking consecutive shifts and days.
package census

import (
	"errors"
	"fmt"
	"time"
)

// ErrMorningMissing occurs when the night shift starting census is requested
// but no finalized same-day morning record exists.
var ErrMorningMissing = errors.New("census: morning shift not finalized")

// Compute returns the resulting patient count for a shift.
// The result is clamped at zero; negative inputs are rejected by validation
// upstream, never here.
func Compute(starting, admissions, departures int) int {
	result := starting + admissions - departures
	if result < 0 {
		return 0
	}
	return result
}

// CarrySource carries the census values of a prior shift record used to
// resolve the next record's starting census.
type CarrySource struct {
	Found          bool
	PatientCensus  int
	ComputedCensus int
}

// StartingForMorning resolves the morning starting census from the previous
// night's record. When no prior record exists the user-supplied value wins;
// the system never invents history.
func StartingForMorning(prevNight CarrySource, userValue int) int {
	if !prevNight.Found {
		return userValue
	}
	return prevNight.PatientCensus
}

// StartingForNight resolves the night starting census from the same-day
// morning record. A missing morning record is a hard error, not a silent
// zero.
func StartingForNight(morning CarrySource) (int, error) {
	if !morning.Found {
		return 0, ErrMorningMissing
	}
	// Records written before the computed field existed carry it as zero
	// while patientCensus holds the finalized value.
	if morning.ComputedCensus == 0 && morning.PatientCensus > 0 {
		return morning.PatientCensus, nil
	}
	return morning.ComputedCensus, nil
}

const (
	dayLayout     = "2006-01-02"
	compactLayout = "20060102"
)

// ParseDay validates a ward-local calendar day string.
func ParseDay(value string) (time.Time, error) {
	day, err := time.Parse(dayLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("census: invalid day %q: %w", value, err)
	}
	return day, nil
}

// CompactDay converts a calendar day string to its record-key form
// (YYYYMMDD). Invalid input returns an error rather than a partial key.
func CompactDay(value string) (string, error) {
	day, err := ParseDay(value)
	if err != nil {
		return "", err
	}
	return day.Format(compactLayout), nil
}

// PrevDay returns the previous calendar day in the same string form.
func PrevDay(value string) (string, error) {
	day, err := ParseDay(value)
	if err != nil {
		return "", err
	}
	return day.AddDate(0, 0, -1).Format(dayLayout), nil
}
