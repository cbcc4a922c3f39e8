// Package approval performs the approve/reject review actions on finalized
// shift forms and keeps the append-only approval history.
package approval

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wardflow/wardflow/internal/census"
	"github.com/wardflow/wardflow/internal/shared"
	"github.com/wardflow/wardflow/internal/wardform"
)

// Action enumerates review outcomes.
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

var (
	// ErrNotPermitted occurs when the actor's role may not review forms.
	ErrNotPermitted = errors.New("approval: actor not permitted")
	// ErrReasonRequired occurs when a rejection carries no reason.
	ErrReasonRequired = errors.New("approval: rejection reason required")
	// ErrReasonTooLong occurs when a rejection reason exceeds the limit.
	ErrReasonTooLong = errors.New("approval: rejection reason exceeds 500 characters")
)

// HistoryRecord is one append-only review action. Records are write-once;
// they are never mutated or deleted by the workflow.
type HistoryRecord struct {
	ID        string         `json:"id"`
	FormID    string         `json:"formId"`
	WardID    string         `json:"wardId"`
	Date      string         `json:"date"`
	Shift     wardform.Shift `json:"shift"`
	Action    Action         `json:"action"`
	ActorID   string         `json:"actorId"`
	ActorName string         `json:"actorName"`
	ActorRole shared.Role    `json:"actorRole"`
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason,omitempty"`
}

// historyID builds the synthetic key: actor role, form id, date and time,
// plus a short random tail so rapid repeated actions stay unique.
func historyID(role shared.Role, formID, date string, at time.Time) string {
	compact, err := census.CompactDay(date)
	if err != nil {
		compact = date
	}
	return fmt.Sprintf("%s_%s_%s_%s_%s",
		role, formID, compact, at.Format("150405"), uuid.NewString()[:8])
}
