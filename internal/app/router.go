package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	audithttp "github.com/haulstack/haulstack/internal/audit/http"
	"github.com/haulstack/haulstack/internal/auth"
	"github.com/haulstack/haulstack/internal/customroles"
	"github.com/haulstack/haulstack/internal/observability"
	"github.com/haulstack/haulstack/internal/platform/httpx"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
	"github.com/haulstack/haulstack/internal/users"
	"github.com/haulstack/haulstack/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Pool           *pgxpool.Pool

	AuthHandler        *auth.Handler
	AuthMiddleware     auth.Middleware
	CatalogHandler     *rbac.Handler
	UsersHandler       *users.Handler
	CustomRolesHandler *customroles.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	})

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
	})

	if params.CatalogHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireUser)
			r.Route("/catalog", params.CatalogHandler.MountRoutes)
		})
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.CustomRolesHandler != nil {
		r.Route("/custom-roles", params.CustomRolesHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireAny(rbac.PermTeamRolesManage))
			r.Route("/audit", params.AuditHandler.MountRoutes)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
