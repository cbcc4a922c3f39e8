package wardform

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/wardflow/wardflow/internal/census"
	"github.com/wardflow/wardflow/internal/shared"
)

// AuditPort records workflow actions, best-effort.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NotifierPort receives fire-and-forget form events. Failures never block
// the underlying save.
type NotifierPort interface {
	FormSaved(ctx context.Context, form ShiftForm)
	FormFinalized(ctx context.Context, form ShiftForm)
}

// SaveInput is the user-facing submission payload. Absent numeric fields
// decode to zero, so the store never sees a missing value.
type SaveInput struct {
	WardID string `validate:"required"`
	Date   string `validate:"required"`
	Shift  Shift  `validate:"required"`

	StartingCensus int `validate:"gte=0"`
	NewAdmits      int `validate:"gte=0"`
	TransfersIn    int `validate:"gte=0"`
	RefersIn       int `validate:"gte=0"`
	Discharges     int `validate:"gte=0"`
	TransfersOut   int `validate:"gte=0"`
	RefersOut      int `validate:"gte=0"`
	Deaths         int `validate:"gte=0"`

	Nurses          int `validate:"gte=0"`
	PracticalNurses int `validate:"gte=0"`
	NurseAides      int `validate:"gte=0"`
	AvailableBeds   int `validate:"gte=0"`
	UnavailableBeds int `validate:"gte=0"`

	RecorderName    string `validate:"max=120"`
	ChargeNurseName string `validate:"max=120"`
	Remarks         string `validate:"max=500"`

	// ConfirmZero acknowledges an all-zero submission; ConfirmOverwrite
	// acknowledges replacing another actor's draft.
	ConfirmZero      bool
	ConfirmOverwrite bool
}

// MetricsPort counts status transitions.
type MetricsPort interface {
	ObserveTransition(to string)
}

// Service is the persistence orchestrator: it sequences validation,
// zero-value confirmation, overwrite confirmation, census derivation and
// repository writes.
type Service struct {
	repo     Repository
	audit    AuditPort
	notifier NotifierPort
	metrics  MetricsPort
	validate *validator.Validate
}

// NewService constructs the orchestrator. audit and notifier may be nil.
func NewService(repo Repository, audit AuditPort, notifier NotifierPort) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier, validate: validator.New()}
}

// WithMetrics attaches the transition counter.
func (s *Service) WithMetrics(m MetricsPort) *Service {
	s.metrics = m
	return s
}

func (s *Service) observe(to FormStatus) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(to))
	}
}

// Load returns the current record for ward+date+shift.
func (s *Service) Load(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	if _, err := census.ParseDay(date); err != nil {
		return ShiftForm{}, &ValidationError{Fields: []string{"date"}}
	}
	return s.repo.Find(ctx, wardID, date, shift)
}

// AllowedTransitions mirrors the state machine for UI gating: which
// statuses the form at ward+date+shift may move to for the given role.
func (s *Service) AllowedTransitions(ctx context.Context, wardID, date string, shift Shift, role shared.Role) (StatusSet, error) {
	current := StatusDraft
	if form, err := s.repo.Find(ctx, wardID, date, shift); err == nil {
		current = form.Status
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	other, err := s.otherShiftStatus(ctx, wardID, date, shift)
	if err != nil {
		return nil, err
	}
	return NextAllowedStates(current, role, shift, other), nil
}

// SaveDraft validates and upserts a draft, deriving the census fields. An
// existing draft is merged; another actor's draft requires an explicit
// overwrite confirmation before it is replaced.
func (s *Service) SaveDraft(ctx context.Context, input SaveInput) (string, error) {
	if err := s.validateInput(input, false); err != nil {
		return "", err
	}
	actor := shared.ActorFromContext(ctx)

	current, err := s.repo.Find(ctx, input.WardID, input.Date, input.Shift)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if exists && !CanEdit(current.Status, actor.Role) {
		return "", fmt.Errorf("%w: %s form is not editable", ErrInvalidState, current.Status)
	}

	form := formFromInput(input, actor)
	if form.AllCountsZero() && !input.ConfirmZero {
		return "", ErrZeroConfirm
	}

	// Pre-save overwrite check: replacing a draft someone else has been
	// editing needs an explicit confirmation, not a silent last-write-wins.
	if draft, err := s.repo.FindDraft(ctx, input.WardID, input.Date, input.Shift); err == nil {
		if draft.UpdatedBy != actor.ID && !input.ConfirmOverwrite {
			return "", ErrOverwriteConfirm
		}
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	if err := s.deriveCensus(ctx, &form, false); err != nil {
		return "", err
	}

	id, err := s.repo.SaveDraft(ctx, form)
	if err != nil {
		return "", err
	}
	s.observe(StatusDraft)
	s.recordAudit(ctx, "FORM_DRAFT_SAVE", id, map[string]any{"ward": form.WardID, "date": form.Date, "shift": form.Shift})
	if s.notifier != nil {
		form.ID = id
		s.notifier.FormSaved(ctx, form)
	}
	return id, nil
}

// Finalize validates, enforces the shift gating, derives the census fields
// and writes a new Final record. A failed finalize leaves the prior state
// untouched; the caller may retry the whole operation.
func (s *Service) Finalize(ctx context.Context, input SaveInput) (string, error) {
	if err := s.validateInput(input, true); err != nil {
		return "", err
	}
	actor := shared.ActorFromContext(ctx)

	current, err := s.repo.Find(ctx, input.WardID, input.Date, input.Shift)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	currentStatus := StatusDraft
	if exists {
		currentStatus = current.Status
	}
	// An administrative override leaves the Approved row in place while the
	// admin edits a fresh draft. The transition is judged on that draft, so
	// the override can reach Final again and be reaffirmed; the old Approved
	// row is superseded once the new record is re-approved.
	if exists && currentStatus == StatusApproved && CanEdit(StatusApproved, actor.Role) {
		if draft, derr := s.repo.FindDraft(ctx, input.WardID, input.Date, input.Shift); derr == nil {
			currentStatus = draft.Status
		} else if !errors.Is(derr, ErrNotFound) {
			return "", derr
		}
	}

	other, err := s.otherShiftStatus(ctx, input.WardID, input.Date, input.Shift)
	if err != nil {
		return "", err
	}
	allowed := NextAllowedStates(currentStatus, actor.Role, input.Shift, other)
	if !allowed.Has(StatusFinal) {
		if input.Shift == ShiftNight && other != StatusFinal && other != StatusApproved {
			return "", fmt.Errorf("%w: morning shift must be finalized first", ErrInvalidState)
		}
		return "", fmt.Errorf("%w: cannot finalize a %s form", ErrInvalidState, currentStatus)
	}

	form := formFromInput(input, actor)
	if form.AllCountsZero() && !input.ConfirmZero {
		return "", ErrZeroConfirm
	}
	if exists {
		form.CreatedBy = current.CreatedBy
		form.CreatedAt = current.CreatedAt
	}

	if err := s.deriveCensus(ctx, &form, true); err != nil {
		return "", err
	}

	id, err := s.repo.Finalize(ctx, form)
	if err != nil {
		return "", err
	}
	s.observe(StatusFinal)
	s.recordAudit(ctx, "FORM_FINALIZE", id, map[string]any{"ward": form.WardID, "date": form.Date, "shift": form.Shift, "census": form.ComputedCensus})
	if s.notifier != nil {
		form.ID = id
		form.Status = StatusFinal
		s.notifier.FormFinalized(ctx, form)
	}
	return id, nil
}

// otherShiftStatus returns the status of the gating counterpart shift: the
// same-day morning form when shift is night. Morning has no gate.
func (s *Service) otherShiftStatus(ctx context.Context, wardID, date string, shift Shift) (FormStatus, error) {
	if shift != ShiftNight {
		return "", nil
	}
	morning, err := s.repo.Find(ctx, wardID, date, ShiftMorning)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return morning.Status, nil
}

// deriveCensus resolves the starting census via the carry-over chain and
// computes the resulting census. For drafts an unresolved night carry-over
// keeps the user value; at finalize it is a hard error.
func (s *Service) deriveCensus(ctx context.Context, form *ShiftForm, finalizing bool) error {
	switch form.Shift {
	case ShiftMorning:
		prevDay, err := census.PrevDay(form.Date)
		if err != nil {
			return err
		}
		carry, err := s.carrySource(ctx, form.WardID, prevDay, ShiftNight)
		if err != nil {
			return err
		}
		form.StartingCensus = census.StartingForMorning(carry, form.StartingCensus)
	case ShiftNight:
		carry, err := s.carrySource(ctx, form.WardID, form.Date, ShiftMorning)
		if err != nil {
			return err
		}
		starting, err := census.StartingForNight(carry)
		if err != nil {
			if !finalizing && errors.Is(err, census.ErrMorningMissing) {
				break
			}
			return fmt.Errorf("%w: morning shift must be finalized first", ErrInvalidState)
		}
		form.StartingCensus = starting
	}
	form.ComputedCensus = census.Compute(form.StartingCensus, form.Admissions(), form.Departures())
	form.PatientCensus = form.ComputedCensus
	return nil
}

func (s *Service) carrySource(ctx context.Context, wardID, date string, shift Shift) (census.CarrySource, error) {
	source, err := s.repo.FindLatestFinalized(ctx, wardID, date, shift)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return census.CarrySource{}, nil
		}
		return census.CarrySource{}, err
	}
	return census.CarrySource{
		Found:          true,
		PatientCensus:  source.PatientCensus,
		ComputedCensus: source.ComputedCensus,
	}, nil
}

// validateInput reports every offending field at once. Finalization
// additionally requires both recorder name fields.
func (s *Service) validateInput(input SaveInput, finalizing bool) error {
	var fields []string
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		} else {
			return err
		}
	}
	if input.Date != "" {
		if _, err := census.ParseDay(input.Date); err != nil {
			fields = append(fields, "Date")
		}
	}
	if input.Shift != "" && !input.Shift.Valid() {
		fields = append(fields, "Shift")
	}
	if finalizing {
		if input.RecorderName == "" {
			fields = append(fields, "RecorderName")
		}
		if input.ChargeNurseName == "" {
			fields = append(fields, "ChargeNurseName")
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func formFromInput(input SaveInput, actor shared.Actor) ShiftForm {
	return ShiftForm{
		WardID:          input.WardID,
		Date:            input.Date,
		Shift:           input.Shift,
		Status:          StatusDraft,
		StartingCensus:  input.StartingCensus,
		NewAdmits:       input.NewAdmits,
		TransfersIn:     input.TransfersIn,
		RefersIn:        input.RefersIn,
		Discharges:      input.Discharges,
		TransfersOut:    input.TransfersOut,
		RefersOut:       input.RefersOut,
		Deaths:          input.Deaths,
		Nurses:          input.Nurses,
		PracticalNurses: input.PracticalNurses,
		NurseAides:      input.NurseAides,
		AvailableBeds:   input.AvailableBeds,
		UnavailableBeds: input.UnavailableBeds,
		RecorderName:    input.RecorderName,
		ChargeNurseName: input.ChargeNurseName,
		Remarks:         input.Remarks,
		CreatedBy:       actor.ID,
		UpdatedBy:       actor.ID,
	}
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "ward_form", EntityID: entityID, Meta: meta})
}
