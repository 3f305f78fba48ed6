package rbac

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// LoginRoute is where anonymous requests are sent.
const LoginRoute = "/auth/login"

// DenialObserver is told about every request a permission gate refused.
type DenialObserver interface {
	PermissionDenied(route string)
}

// Middleware wires permission checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
	Routes RouteTable
	// Denied renders the screen-level "no access" panel. It must not call the backend.
	Denied   http.HandlerFunc
	Observer DenialObserver
}

// RequireAuth sends anonymous requests to the login screen.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GateFromContext(r.Context()).Authenticated() {
			m.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoute guards a navigable route. A denied operator is redirected to the
// nearest screen they can open instead of a blank page.
func (m Middleware) RequireRoute(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate := GateFromContext(r.Context())
			if !gate.Authenticated() {
				m.redirectToLogin(w, r)
				return
			}
			if HasAny(gate, codes...) {
				next.ServeHTTP(w, r)
				return
			}
			m.logDenied(r, codes)
			target := m.routes().Nearest(gate, r.URL.Path)
			if target == r.URL.Path {
				target = HomeRoute
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// RequireScreen guards a screen that answers denial with a "no access" panel.
func (m Middleware) RequireScreen(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate := GateFromContext(r.Context())
			if !gate.Authenticated() {
				m.redirectToLogin(w, r)
				return
			}
			if HasAny(gate, codes...) {
				next.ServeHTTP(w, r)
				return
			}
			m.logDenied(r, codes)
			if m.Denied != nil {
				m.Denied(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAction guards a mutating endpoint; every listed code is required.
func (m Middleware) RequireAction(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate := GateFromContext(r.Context())
			if !gate.Authenticated() {
				m.redirectToLogin(w, r)
				return
			}
			if HasAll(gate, codes...) {
				next.ServeHTTP(w, r)
				return
			}
			m.logDenied(r, codes)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) routes() RouteTable {
	if m.Routes == nil {
		return DefaultRoutes
	}
	return m.Routes
}

func (m Middleware) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginRoute
	if r.Method == http.MethodGet && r.URL.Path != HomeRoute {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (m Middleware) logDenied(r *http.Request, codes []string) {
	if m.Observer != nil {
		m.Observer.PermissionDenied(deniedRoute(r))
	}
	if m.Logger == nil {
		return
	}
	m.Logger.Warn("permission denied",
		slog.String("path", r.URL.Path),
		slog.Any("required", codes),
		slog.String("user", shared.SessionFromContext(r.Context()).User()),
	)
}

// deniedRoute labels a refusal by its chi pattern so ids stay out of the label.
func deniedRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
