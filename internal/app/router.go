package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/schooldesk/schooldesk/internal/listing"
	"github.com/schooldesk/schooldesk/internal/observability"
	"github.com/schooldesk/schooldesk/internal/platform/httpx"
	"github.com/schooldesk/schooldesk/internal/session"
	"github.com/schooldesk/schooldesk/internal/shared"
	"github.com/schooldesk/schooldesk/internal/timetable"
	"github.com/schooldesk/schooldesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	ClientManager    *shared.ClientManager
	CSRFManager      *shared.CSRFManager
	SessionHandler   *session.Handler
	TimetableHandler *timetable.Handler
	ListingHandler   *listing.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with schooldesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:        params.Logger,
			Config:        params.Config,
			ClientManager: params.ClientManager,
			CSRFManager:   params.CSRFManager,
			Metrics:       params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		r.Route("/api/session", params.SessionHandler.MountRoutes)
		if params.TimetableHandler != nil {
			r.Route("/api/timetables", params.TimetableHandler.MountRoutes)
		}
		if params.ListingHandler != nil {
			r.Route("/api/lists", params.ListingHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/api/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
