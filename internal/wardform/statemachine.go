package wardform

import "github.com/wardflow/wardflow/internal/shared"

// StatusSet is a set of reachable statuses.
type StatusSet map[FormStatus]struct{}

// Has reports membership.
func (s StatusSet) Has(status FormStatus) bool {
	_, ok := s[status]
	return ok
}

func setOf(statuses ...FormStatus) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, status := range statuses {
		set[status] = struct{}{}
	}
	return set
}

// NextAllowedStates returns the statuses a form may legally transition to.
// The night shift may only finalize once the same-day morning form is Final
// or Approved; otherShiftStatus carries the morning status when shift is
// night (zero value means the morning form does not exist yet). This is a
// deliberately looser gate than SelectorEnabled: the engine lets the night
// recorder finalize as soon as the morning numbers are locked at Final,
// while the UI selector keeps the night tab closed until the morning form
// is Approved.
func NextAllowedStates(current FormStatus, role shared.Role, shift Shift, otherShiftStatus FormStatus) StatusSet {
	nightGateOpen := shift != ShiftNight ||
		otherShiftStatus == StatusFinal || otherShiftStatus == StatusApproved

	switch current {
	case StatusDraft:
		if nightGateOpen {
			return setOf(StatusFinal)
		}
		return setOf()
	case StatusFinal:
		switch role {
		case shared.RoleSupervisor:
			return setOf(StatusApproved, StatusRejected)
		case shared.RoleAdmin:
			return setOf(StatusApproved, StatusRejected, StatusDraft)
		default:
			return setOf()
		}
	case StatusApproved:
		// Terminal except for administrative override, which re-opens
		// editing and requires an explicit re-approval afterwards.
		if role == shared.RoleAdmin {
			return setOf(StatusDraft)
		}
		return setOf()
	case StatusRejected:
		if nightGateOpen {
			return setOf(StatusDraft, StatusFinal)
		}
		return setOf(StatusDraft)
	default:
		return setOf()
	}
}

// SelectorEnabled reports whether the UI may offer a shift for editing at
// all. The night selector stays disabled until the morning form is fully
// Approved, a stricter gate than the finalize precondition.
func SelectorEnabled(shift Shift, otherShiftStatus FormStatus) bool {
	if shift != ShiftNight {
		return true
	}
	return otherShiftStatus == StatusApproved
}

// CanEdit reports whether role may edit a form in the given status through
// the ordinary draft-editing path.
func CanEdit(status FormStatus, role shared.Role) bool {
	switch status {
	case StatusDraft, StatusRejected:
		return true
	case StatusFinal, StatusApproved:
		return role == shared.RoleAdmin
	default:
		return false
	}
}
