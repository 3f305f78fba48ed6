package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	view           view.Responder
	sessionManager *shared.SessionManager
	routes         rbac.RouteTable
	validator      *validator.Validate
	loginLimit     []func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder view.Responder, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		view:           responder,
		sessionManager: sessions,
		routes:         rbac.DefaultRoutes,
		validator:      validator.New(),
	}
}

// LimitLogin installs middleware, typically a rate limiter, in front of the
// credential check only.
func (h *Handler) LimitLogin(mw ...func(http.Handler) http.Handler) *Handler {
	h.loginLimit = append(h.loginLimit, mw...)
	return h
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.With(h.loginLimit...).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if p := sess.Principal(); p != nil {
		http.Redirect(w, r, h.routes.Landing(rbac.NewGate(p)), http.StatusSeeOther)
		return
	}
	data := loginPageData{Next: safeNext(r.URL.Query().Get("next"))}
	h.view.Render(w, r, http.StatusOK, "auth/login", "Iniciar sesión", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("usuario")),
		Password: r.PostFormValue("contrasena"),
	}
	next := safeNext(r.PostFormValue("next"))
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				switch fieldErr.Field() {
				case "Username":
					errs["Username"] = "Ingrese su usuario."
				case "Password":
					errs["Password"] = "Ingrese su contraseña."
				}
			}
		}
	}

	status := http.StatusBadRequest
	if len(errs) == 0 {
		principal, err := h.service.Authenticate(r.Context(), form.Username, form.Password)
		if err == nil {
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			h.sessionManager.Renew(sess)
			sess.SetPrincipal(principal)
			target := next
			if target == "" {
				target = h.routes.Landing(rbac.NewGate(sess.Principal()))
			}
			h.logger.Info("login", slog.Int64("user_id", principal.UserID), slog.Int("permissions", len(principal.Permissions)))
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Warn("login failed", slog.Any("error", err))
			status = http.StatusBadGateway
		}
		errs["general"] = shared.UserSafeMessage(err)
	}

	form.Password = ""
	h.view.Render(w, r, status, "auth/login", "Iniciar sesión", loginPageData{Form: form, Errors: errs, Next: next})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, rbac.LoginRoute, http.StatusSeeOther)
}

// safeNext keeps only local redirect targets.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	if u.Path == rbac.LoginRoute {
		return ""
	}
	return next
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}
