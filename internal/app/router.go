package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/logiq-bot/logiq/internal/audit"
	"github.com/logiq-bot/logiq/internal/authz"
	"github.com/logiq-bot/logiq/internal/moderation"
	"github.com/logiq-bot/logiq/internal/observability"
	"github.com/logiq-bot/logiq/internal/override"
	"github.com/logiq-bot/logiq/internal/security"
	"github.com/logiq-bot/logiq/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthzHandler    *authz.Handler
	OverrideHandler *override.Handler
	AuditHandler    *audit.Handler
	SanctionHandler *moderation.Handler
	SecurityHandler *security.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
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
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		if params.Config != nil {
			r.Use(BearerAuth(params.Logger, params.Config.APITokenHash))
		}
		if params.AuthzHandler != nil {
			params.AuthzHandler.MountRoutes(r)
		}
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			if params.OverrideHandler != nil {
				r.Route("/overrides", params.OverrideHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				r.Route("/audit", params.AuditHandler.MountRoutes)
			}
			if params.SanctionHandler != nil {
				r.Route("/sanctions", params.SanctionHandler.MountRoutes)
			}
			if params.SecurityHandler != nil {
				r.Route("/security", params.SecurityHandler.MountRoutes)
			}
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
