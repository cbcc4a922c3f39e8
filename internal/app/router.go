package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wardflow/wardflow/internal/approval"
	"github.com/wardflow/wardflow/internal/observability"
	"github.com/wardflow/wardflow/internal/summary"
	"github.com/wardflow/wardflow/internal/wardform"
	"github.com/wardflow/wardflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	WardFormHandler *wardform.Handler
	ApprovalHandler *approval.Handler
	SummaryHandler  *summary.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Wardflow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/wards", func(r chi.Router) {
		params.WardFormHandler.MountRoutes(r)
		if params.SummaryHandler != nil {
			params.SummaryHandler.MountRoutes(r)
		}
	})
	r.Route("/forms", params.ApprovalHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
