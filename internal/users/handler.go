package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
)

// BasePath is where the user screens are mounted.
const BasePath = "/usuarios"

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	view    view.Responder
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder view.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, view: responder, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute(rbac.PermViewUsers, rbac.PermAdminUsers))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAction(rbac.PermAdminUsers))
		r.Get("/nuevo", h.showCreateUserForm)
		r.Post("/", h.createUser)
		r.Get("/{id}/editar", h.showEditUserForm)
		r.Post("/{id}/editar", h.updateUser)
	})
}

type listPage struct {
	Users []backend.User
	Error string
}

type formPage struct {
	UserID  int64
	Form    userForm
	Roles   []backend.Role
	Errors  formErrors
	Editing bool
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.view.Render(w, r, statusFor(err), "users/list", "Usuarios", listPage{Error: shared.UserSafeMessage(err)})
		return
	}
	h.view.Render(w, r, http.StatusOK, "users/list", "Usuarios", listPage{Users: list})
}

func (h *Handler) showCreateUserForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, formPage{Form: userForm{Active: true}})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	if _, errs, err := h.service.Create(r.Context(), form); err != nil {
		if errs == nil {
			h.logger.Warn("create user failed", slog.Any("error", err))
			errs = formErrors{"general": shared.UserSafeMessage(err)}
		}
		form.Password = ""
		h.renderForm(w, r, statusFor(err), formPage{Form: form, Errors: errs})
		return
	}
	h.view.RedirectWithFlash(w, r, BasePath, shared.FlashMessage{Kind: "success", Message: "Usuario creado correctamente.", AutoClear: true})
}

func (h *Handler) showEditUserForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.view.NotFound(w, r)
			return
		}
		h.logger.Error("get user failed", slog.Int64("user_id", id), slog.Any("error", err))
		h.view.RedirectWithFlash(w, r, BasePath, shared.FlashMessage{Kind: "danger", Message: shared.UserSafeMessage(err)})
		return
	}
	h.renderForm(w, r, http.StatusOK, formPage{UserID: id, Form: formFromUser(u), Editing: true})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	if errs, err := h.service.Update(r.Context(), id, form); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.view.NotFound(w, r)
			return
		}
		if errs == nil {
			h.logger.Warn("update user failed", slog.Int64("user_id", id), slog.Any("error", err))
			errs = formErrors{"general": shared.UserSafeMessage(err)}
		}
		form.Password = ""
		h.renderForm(w, r, statusFor(err), formPage{UserID: id, Form: form, Errors: errs, Editing: true})
		return
	}
	h.view.RedirectWithFlash(w, r, BasePath, shared.FlashMessage{Kind: "success", Message: "Usuario actualizado correctamente.", AutoClear: true})
}

// renderForm loads the role choices; a failure there is shown inline and
// leaves the form disabled.
func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, data formPage) {
	roles, err := h.service.Roles(r.Context())
	if err != nil {
		h.logger.Warn("list roles for user form", slog.Any("error", err))
		if data.Errors == nil {
			data.Errors = formErrors{}
		}
		if _, ok := data.Errors["general"]; !ok {
			data.Errors["general"] = shared.UserSafeMessage(err)
		}
	}
	data.Roles = roles
	title := "Nuevo usuario"
	if data.Editing {
		title = "Editar usuario"
	}
	h.view.Render(w, r, status, "users/form", title, data)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.view.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func parseForm(r *http.Request) userForm {
	roleID, _ := strconv.ParseInt(r.PostFormValue("rol"), 10, 64)
	active := false
	switch r.PostFormValue("activo") {
	case "on", "1", "true":
		active = true
	}
	return userForm{
		Name:     r.PostFormValue("nombre"),
		Password: r.PostFormValue("contrasena"),
		RoleID:   roleID,
		Active:   active,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}
