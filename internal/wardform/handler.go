package wardform

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wardflow/wardflow/internal/platform/httpx"
	"github.com/wardflow/wardflow/internal/shared"
)

// Handler exposes the shift form API.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func formParams(r *http.Request) (wardID, date string, shift Shift) {
	return chi.URLParam(r, "wardID"), chi.URLParam(r, "date"), Shift(chi.URLParam(r, "shift"))
}

// Get returns the current record for ward+date+shift.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	wardID, date, shift := formParams(r)
	form, err := h.service.Load(r.Context(), wardID, date, shift)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewFormResponse(form))
}

// SaveDraft upserts a draft submission.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	wardID, date, shift := formParams(r)
	var req SaveFormRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "invalid JSON body")
		return
	}
	id, err := h.service.SaveDraft(r.Context(), req.toInput(wardID, date, shift))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"formId": id, "status": string(StatusDraft)})
}

// Finalize submits the form for approval under a new record identity.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	wardID, date, shift := formParams(r)
	var req SaveFormRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "invalid JSON body")
		return
	}
	id, err := h.service.Finalize(r.Context(), req.toInput(wardID, date, shift))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"formId": id, "status": string(StatusFinal)})
}

// Transitions reports the legal next statuses plus the UI selector gate.
func (h *Handler) Transitions(w http.ResponseWriter, r *http.Request) {
	wardID, date, shift := formParams(r)
	actor := shared.ActorFromContext(r.Context())
	allowed, err := h.service.AllowedTransitions(r.Context(), wardID, date, shift, actor.Role)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	other, err := h.service.otherShiftStatus(r.Context(), wardID, date, shift)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	statuses := make([]FormStatus, 0, len(allowed))
	for status := range allowed {
		statuses = append(statuses, status)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"next":            statuses,
		"selectorEnabled": SelectorEnabled(shift, other),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.ValidationProblem(w, "one or more fields are invalid", verr.Fields)
	case errors.Is(err, ErrZeroConfirm):
		httpx.Problem(w, http.StatusConflict, "Confirmation Required", "all counts are zero; confirm before saving")
	case errors.Is(err, ErrOverwriteConfirm):
		httpx.Problem(w, http.StatusConflict, "Confirmation Required", "a draft already exists; confirm before overwriting")
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no form for this ward, date and shift")
	default:
		h.logger.Error("ward form request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
