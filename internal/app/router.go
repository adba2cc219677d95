package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eventreg/eventreg/internal/access"
	"github.com/eventreg/eventreg/internal/auth"
	"github.com/eventreg/eventreg/internal/navigation"
	"github.com/eventreg/eventreg/internal/observability"
	"github.com/eventreg/eventreg/internal/roleswitch"
	"github.com/eventreg/eventreg/internal/shared"
	"github.com/eventreg/eventreg/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	AuthMiddleware    auth.Middleware
	AuthHandler       *auth.Handler
	AccessHandler     *access.Handler
	RoleSwitchHandler *roleswitch.Handler
	Guard             *navigation.Guard
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with eventreg defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		AuthMiddleware: params.AuthMiddleware,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/access/route", params.AccessHandler.HandleRoute)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequirePrincipal)
			r.Get("/me", params.AccessHandler.HandleMe)
			r.Get("/access/actions", params.AccessHandler.HandleActions)
			r.Get("/access/actions/{actionID}", params.AccessHandler.HandleAction)
			if params.RoleSwitchHandler != nil {
				r.Route("/role-switch", params.RoleSwitchHandler.MountSelfRoutes)
				r.Route("/role-requests", func(r chi.Router) {
					r.Use(params.Guard.RequireRoute(navigation.PathRoleRequests))
					params.RoleSwitchHandler.MountAdminRoutes(r)
				})
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
