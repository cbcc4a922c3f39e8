package summary

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wardflow/wardflow/internal/directory"
	"github.com/wardflow/wardflow/internal/platform/httpx"
)

// Handler exposes daily summary reads for dashboards and downstream
// consumers.
type Handler struct {
	repo   Repository
	wards  directory.Wards
	logger *slog.Logger
}

// NewHandler constructs the handler. wards may be nil.
func NewHandler(logger *slog.Logger, repo Repository, wards directory.Wards) *Handler {
	return &Handler{repo: repo, wards: wards, logger: logger}
}

type summaryResponse struct {
	DailySummary
	Totals   TotalsBreakdown `json:"totals"`
	WardName string          `json:"wardName,omitempty"`
}

// Get returns the merged day record for ward+date.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	wardID := chi.URLParam(r, "wardID")
	date := chi.URLParam(r, "date")

	s, err := h.repo.Get(r.Context(), wardID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no summary for this ward and date")
			return
		}
		h.logger.Error("load summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	resp := summaryResponse{DailySummary: s, Totals: s.Breakdown()}
	if h.wards != nil {
		if ward, err := h.wards.Get(r.Context(), wardID); err == nil {
			resp.WardName = ward.Name
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// MountRoutes attaches the summary endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{wardID}/summaries/{date}", h.Get)
}
