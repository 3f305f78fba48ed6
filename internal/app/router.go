package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/auth"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/observability"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/platform/httpx"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/providers"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/roles"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/users"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
	"github.com/EnmanuelOvalles37/consumo-admin/report"
	"github.com/EnmanuelOvalles37/consumo-admin/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Responder        view.Responder
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	Redis            *redis.Client
	RBACMiddleware   rbac.Middleware
	AuthHandler      *auth.Handler
	RolesHandler     *roles.Handler
	UsersHandler     *users.Handler
	ProvidersHandler *providers.Handler
	ReportHandler    *report.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with back-office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthz(params.Redis))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// Static files skip sessions, CSRF and rate limiting.
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
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

		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAuth)
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				params.Responder.Render(w, r, http.StatusOK, "dashboard", "Inicio", nil)
			})
			if params.RolesHandler != nil {
				r.Route(roles.BasePath, params.RolesHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route(users.BasePath, params.UsersHandler.MountRoutes)
			}
			if params.ProvidersHandler != nil {
				r.Route(providers.BasePath, params.ProvidersHandler.MountRoutes)
			}
			if params.ReportHandler != nil {
				r.Route(report.BasePath, params.ReportHandler.MountRoutes)
			}
		})
	})

	// Unknown paths render without the session stack.
	r.NotFound(params.Responder.NotFound)

	return r
}

func healthz(client *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "redis": "skipped"}
		code := http.StatusOK
		if client != nil {
			if err := client.Ping(r.Context()).Err(); err != nil {
				status["status"], status["redis"] = "degraded", "down"
				code = http.StatusServiceUnavailable
			} else {
				status["redis"] = "ok"
			}
		}
		httpx.JSON(w, code, status)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
