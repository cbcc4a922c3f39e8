package wardform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wardflow/wardflow/internal/shared"
)

type memoryFormRepo struct {
	forms map[string]ShiftForm
}

func newMemoryFormRepo() *memoryFormRepo {
	return &memoryFormRepo{forms: make(map[string]ShiftForm)}
}

func (r *memoryFormRepo) pick(wardID, date string, shift Shift, statuses ...FormStatus) (ShiftForm, error) {
	var best ShiftForm
	found := false
	for _, f := range r.forms {
		if f.WardID != wardID || f.Date != date || f.Shift != shift {
			continue
		}
		if len(statuses) > 0 {
			ok := false
			for _, status := range statuses {
				if f.Status == status {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if !found ||
			StatusPrecedence(f.Status) > StatusPrecedence(best.Status) ||
			(StatusPrecedence(f.Status) == StatusPrecedence(best.Status) && f.UpdatedAt.After(best.UpdatedAt)) {
			best = f
			found = true
		}
	}
	if !found {
		return ShiftForm{}, ErrNotFound
	}
	return best, nil
}

func (r *memoryFormRepo) Find(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	return r.pick(wardID, date, shift)
}

func (r *memoryFormRepo) FindDraft(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	return r.pick(wardID, date, shift, StatusDraft)
}

func (r *memoryFormRepo) FindLatestFinalized(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	return r.pick(wardID, date, shift, StatusFinal, StatusApproved)
}

func (r *memoryFormRepo) FindLatestApproved(ctx context.Context, wardID, date string, shift Shift) (ShiftForm, error) {
	return r.pick(wardID, date, shift, StatusApproved)
}

func (r *memoryFormRepo) Get(ctx context.Context, formID string) (ShiftForm, error) {
	form, ok := r.forms[formID]
	if !ok {
		return ShiftForm{}, ErrNotFound
	}
	return form, nil
}

func (r *memoryFormRepo) SaveDraft(ctx context.Context, form ShiftForm) (string, error) {
	form.Status = StatusDraft
	id, err := FormKey{WardID: form.WardID, Shift: form.Shift, Status: StatusDraft, Date: form.Date}.Encode()
	if err != nil {
		return "", err
	}
	now := time.Now()
	if existing, ok := r.forms[id]; ok {
		form.CreatedBy = existing.CreatedBy
		form.CreatedAt = existing.CreatedAt
	} else {
		form.CreatedAt = now
	}
	form.ID = id
	form.UpdatedAt = now
	r.forms[id] = form
	return id, nil
}

func (r *memoryFormRepo) Finalize(ctx context.Context, form ShiftForm) (string, error) {
	now := time.Now()
	form.Status = StatusFinal
	form.FinalizedAt = &now
	form.UpdatedAt = now
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	id, err := NewFinalID(form.WardID, form.Shift, form.Date, now)
	if err != nil {
		return "", err
	}
	form.ID = id
	draftID, err := FormKey{WardID: form.WardID, Shift: form.Shift, Status: StatusDraft, Date: form.Date}.Encode()
	if err != nil {
		return "", err
	}
	delete(r.forms, draftID)
	r.forms[id] = form
	return id, nil
}

func (r *memoryFormRepo) UpdateStatus(ctx context.Context, formID string, update StatusUpdate) error {
	form, ok := r.forms[formID]
	if !ok {
		return ErrNotFound
	}
	at := update.At
	if at.IsZero() {
		at = time.Now()
	}
	form.Status = update.Status
	form.UpdatedBy = update.UpdatedBy
	form.ApprovedBy = update.ApprovedBy
	form.RejectionReason = update.RejectionReason
	form.UpdatedAt = at
	if update.Status == StatusApproved {
		form.ApprovedAt = &at
	}
	r.forms[formID] = form
	return nil
}

type recordingNotifier struct {
	saved     []ShiftForm
	finalized []ShiftForm
}

func (n *recordingNotifier) FormSaved(ctx context.Context, form ShiftForm)     { n.saved = append(n.saved, form) }
func (n *recordingNotifier) FormFinalized(ctx context.Context, form ShiftForm) { n.finalized = append(n.finalized, form) }

func actorCtx(id string, role shared.Role) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{ID: id, Name: id, Role: role})
}

func validInput(wardID, date string, shift Shift) SaveInput {
	return SaveInput{
		WardID: wardID, Date: date, Shift: shift,
		StartingCensus: 10, NewAdmits: 3, Discharges: 2,
		Nurses: 4, PracticalNurses: 1, NurseAides: 1,
		AvailableBeds: 20, UnavailableBeds: 2,
		RecorderName: "R. Recorder", ChargeNurseName: "C. Nurse",
	}
}

func TestSaveDraftComputesCensus(t *testing.T) {
	repo := newMemoryFormRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, nil, notifier)

	id, err := svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	require.Equal(t, "WARD1_m_draft_d20250102", id)

	draft, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 11, draft.ComputedCensus)
	require.Equal(t, 11, draft.PatientCensus)
	require.Equal(t, "u1", draft.CreatedBy)
	require.Len(t, notifier.saved, 1)
	require.Equal(t, id, notifier.saved[0].ID)
}

func TestSaveDraftCensusNeverNegative(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	input := validInput("WARD1", "2025-01-02", ShiftMorning)
	input.StartingCensus = 1
	input.NewAdmits = 0
	input.Discharges = 9
	id, err := svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), input)
	require.NoError(t, err)

	draft, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 0, draft.ComputedCensus)
}

func TestSaveDraftRequiresZeroConfirmation(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorCtx("u1", shared.RoleRecorder)

	input := SaveInput{WardID: "WARD1", Date: "2025-01-02", Shift: ShiftMorning}
	_, err := svc.SaveDraft(ctx, input)
	require.ErrorIs(t, err, ErrZeroConfirm)

	input.ConfirmZero = true
	_, err = svc.SaveDraft(ctx, input)
	require.NoError(t, err)
}

func TestSaveDraftOverwriteNeedsConfirmation(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.SaveDraft(actorCtx("alice", shared.RoleRecorder), validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)

	input := validInput("WARD1", "2025-01-02", ShiftMorning)
	_, err = svc.SaveDraft(actorCtx("bob", shared.RoleRecorder), input)
	require.ErrorIs(t, err, ErrOverwriteConfirm)

	input.ConfirmOverwrite = true
	id, err := svc.SaveDraft(actorCtx("bob", shared.RoleRecorder), input)
	require.NoError(t, err)

	draft, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "bob", draft.UpdatedBy)
	require.Equal(t, "alice", draft.CreatedBy)
}

func TestSaveDraftRejectsFinalizedFormForRecorder(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	_, err = svc.Finalize(actorCtx("u1", shared.RoleRecorder), validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)

	_, err = svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), validInput("WARD1", "2025-01-02", ShiftMorning))
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.SaveDraft(actorCtx("boss", shared.RoleAdmin), validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
}

func TestSaveDraftCollectsAllInvalidFields(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	input := validInput("", "2025-01-02", ShiftMorning)
	input.NewAdmits = -1
	input.Deaths = -3
	_, err := svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), input)
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "WardID")
	require.Contains(t, verr.Fields, "NewAdmits")
	require.Contains(t, verr.Fields, "Deaths")
}

func TestFinalizeRequiresNames(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	input := validInput("WARD1", "2025-01-02", ShiftMorning)
	input.RecorderName = ""
	input.ChargeNurseName = ""
	_, err := svc.Finalize(actorCtx("u1", shared.RoleRecorder), input)
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "RecorderName")
	require.Contains(t, verr.Fields, "ChargeNurseName")
}

func TestFinalizeReplacesDraftWithNewIdentity(t *testing.T) {
	repo := newMemoryFormRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, nil, notifier)
	ctx := actorCtx("u1", shared.RoleRecorder)

	draftID, err := svc.SaveDraft(ctx, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	draft, err := repo.Get(context.Background(), draftID)
	require.NoError(t, err)

	finalID, err := svc.Finalize(ctx, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	require.NotEqual(t, draftID, finalID)

	key, err := ParseFormKey(finalID)
	require.NoError(t, err)
	require.Equal(t, StatusFinal, key.Status)
	require.NotEmpty(t, key.Suffix)

	_, err = repo.FindDraft(context.Background(), "WARD1", "2025-01-02", ShiftMorning)
	require.ErrorIs(t, err, ErrNotFound)

	final, err := repo.Get(context.Background(), finalID)
	require.NoError(t, err)
	require.Equal(t, draft.CreatedBy, final.CreatedBy)
	require.Equal(t, draft.CreatedAt, final.CreatedAt)
	require.NotNil(t, final.FinalizedAt)
	require.Len(t, notifier.finalized, 1)
}

func TestAdminReopensApprovedFormAndFinalizesAgain(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)
	recorder := actorCtx("rec1", shared.RoleRecorder)
	admin := actorCtx("adm1", shared.RoleAdmin)

	_, err := svc.SaveDraft(recorder, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	finalID, err := svc.Finalize(recorder, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), finalID, StatusUpdate{
		Status: StatusApproved, UpdatedBy: "sup1", ApprovedBy: "sup1", At: time.Now(),
	}))

	// Approved stays terminal for the recorder.
	_, err = svc.SaveDraft(recorder, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Finalize(recorder, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.ErrorIs(t, err, ErrInvalidState)

	// The admin reopens editing while the approved row stays in place.
	input := validInput("WARD1", "2025-01-02", ShiftMorning)
	input.NewAdmits = 5
	_, err = svc.SaveDraft(admin, input)
	require.NoError(t, err)
	current, err := repo.Find(context.Background(), "WARD1", "2025-01-02", ShiftMorning)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, current.Status)

	// The override draft reaches Final again under a fresh identity.
	refinalID, err := svc.Finalize(admin, input)
	require.NoError(t, err)
	require.NotEqual(t, finalID, refinalID)
	refinal, err := repo.Get(context.Background(), refinalID)
	require.NoError(t, err)
	require.Equal(t, StatusFinal, refinal.Status)
	require.Equal(t, 13, refinal.ComputedCensus)
	_, err = repo.FindDraft(context.Background(), "WARD1", "2025-01-02", ShiftMorning)
	require.ErrorIs(t, err, ErrNotFound)

	// Reaffirmation supersedes the earlier approval for lookups.
	require.NoError(t, repo.UpdateStatus(context.Background(), refinalID, StatusUpdate{
		Status: StatusApproved, UpdatedBy: "sup1", ApprovedBy: "sup1", At: time.Now().Add(time.Second),
	}))
	current, err = repo.Find(context.Background(), "WARD1", "2025-01-02", ShiftMorning)
	require.NoError(t, err)
	require.Equal(t, refinalID, current.ID)
}

func TestFinalizeNightRequiresFinalizedMorning(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorCtx("u1", shared.RoleRecorder)

	_, err := svc.Finalize(ctx, validInput("WARD1", "2025-01-02", ShiftNight))
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorContains(t, err, "morning shift must be finalized first")

	// The failed finalize must not leave any night record behind.
	_, err = repo.Find(context.Background(), "WARD1", "2025-01-02", ShiftNight)
	require.ErrorIs(t, err, ErrNotFound)

	// A morning draft alone does not open the gate.
	_, err = svc.SaveDraft(ctx, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, validInput("WARD1", "2025-01-02", ShiftNight))
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Finalize(ctx, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, validInput("WARD1", "2025-01-02", ShiftNight))
	require.NoError(t, err)
}

func TestNightCarriesMorningComputedCensus(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorCtx("u1", shared.RoleRecorder)

	// Morning: 10 + 3 - 2 = 11.
	_, err := svc.Finalize(ctx, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)

	input := validInput("WARD1", "2025-01-02", ShiftNight)
	input.StartingCensus = 99 // user value is overridden by the carry-over
	input.NewAdmits = 1
	input.Discharges = 0
	id, err := svc.Finalize(ctx, input)
	require.NoError(t, err)

	night, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 11, night.StartingCensus)
	require.Equal(t, 12, night.ComputedCensus)
}

func TestMorningCarriesPreviousNightPatientCensus(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	prevNight := ShiftForm{
		ID: "WARD1_n_final_d20250101_t210000", WardID: "WARD1",
		Date: "2025-01-01", Shift: ShiftNight, Status: StatusFinal,
		ComputedCensus: 17, PatientCensus: 17, UpdatedAt: time.Now(),
	}
	repo.forms[prevNight.ID] = prevNight

	input := validInput("WARD1", "2025-01-02", ShiftMorning)
	input.StartingCensus = 5
	id, err := svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), input)
	require.NoError(t, err)

	draft, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 17, draft.StartingCensus)
}

func TestMorningWithoutPreviousNightKeepsUserValue(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	input := validInput("WARD1", "2025-01-02", ShiftMorning)
	input.StartingCensus = 8
	id, err := svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), input)
	require.NoError(t, err)

	draft, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 8, draft.StartingCensus)
}

func TestNightDraftToleratesMissingMorning(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)

	input := validInput("WARD1", "2025-01-02", ShiftNight)
	input.StartingCensus = 6
	id, err := svc.SaveDraft(actorCtx("u1", shared.RoleRecorder), input)
	require.NoError(t, err)

	draft, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 6, draft.StartingCensus)
	require.Equal(t, 7, draft.ComputedCensus)
}

func TestAllowedTransitionsMirrorsStateMachine(t *testing.T) {
	repo := newMemoryFormRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorCtx("u1", shared.RoleRecorder)

	_, err := svc.Finalize(ctx, validInput("WARD1", "2025-01-02", ShiftMorning))
	require.NoError(t, err)

	next, err := svc.AllowedTransitions(context.Background(), "WARD1", "2025-01-02", ShiftMorning, shared.RoleSupervisor)
	require.NoError(t, err)
	require.True(t, next.Has(StatusApproved))
	require.True(t, next.Has(StatusRejected))

	next, err = svc.AllowedTransitions(context.Background(), "WARD1", "2025-01-02", ShiftMorning, shared.RoleRecorder)
	require.NoError(t, err)
	require.Empty(t, next)
}
