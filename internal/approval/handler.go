package approval

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wardflow/wardflow/internal/platform/httpx"
	"github.com/wardflow/wardflow/internal/wardform"
)

// Handler exposes the review endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

// Approve marks a finalized form as approved.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	id, err := h.service.Approve(r.Context(), formID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"formId": id, "status": string(wardform.StatusApproved)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject marks a finalized form as rejected, reopening it for editing.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "invalid JSON body")
		return
	}
	if err := h.service.Reject(r.Context(), formID, req.Reason); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"formId": formID, "status": string(wardform.StatusRejected)})
}

// History lists the review trail for one form.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	records, err := h.service.History(r.Context(), formID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []HistoryRecord{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrReasonTooLong):
		httpx.ValidationProblem(w, err.Error(), []string{"reason"})
	case errors.Is(err, ErrNotPermitted):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "this role may not review forms")
	case errors.Is(err, wardform.ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, wardform.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such form")
	default:
		h.logger.Error("approval request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// MountRoutes attaches the review endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{formID}", func(r chi.Router) {
		r.Post("/approve", h.Approve)
		r.Post("/reject", h.Reject)
		r.Get("/history", h.History)
	})
}
