package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/screen"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
)

// BasePath is where the role screen is mounted.
const BasePath = "/seguridad/roles"

const pageTemplate = "roles/index"

// Handler manages the role/permission admin screen.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	view      view.Responder
	rbac      rbac.Middleware
	noticeTTL time.Duration
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder view.Responder, rbac rbac.Middleware, noticeTTL time.Duration) *Handler {
	return &Handler{logger: logger, service: service, view: responder, rbac: rbac, noticeTTL: noticeTTL}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireScreen(rbac.PermAdminRoles))
		r.Get("/", h.showEditor)
		r.Post("/{id}/permisos", h.submitPermissions)
	})
}

func (h *Handler) newEditor() *Editor {
	return NewEditor(h.service, WithNoticeTTL(h.noticeTTL))
}

func (h *Handler) showEditor(w http.ResponseWriter, r *http.Request) {
	editor := h.newEditor()
	defer editor.Close()

	preferred, _ := strconv.ParseInt(r.URL.Query().Get("rol"), 10, 64)
	editor.SetQuery(r.URL.Query().Get("q"))
	if err := editor.Load(r.Context(), preferred); err != nil && !errors.Is(err, screen.ErrSuperseded) {
		h.logger.Warn("load role editor", slog.Int64("role_id", preferred), slog.Any("error", err))
	}
	h.render(w, r, http.StatusOK, editor)
}

func (h *Handler) submitPermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || roleID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	query := r.PostFormValue("q")
	action := r.PostFormValue("accion")

	if action == "descartar" {
		http.Redirect(w, r, editorURL(roleID, query), http.StatusSeeOther)
		return
	}

	editor := h.newEditor()
	defer editor.Close()

	if err := editor.Load(r.Context(), roleID); err != nil {
		h.logger.Warn("load role editor", slog.Int64("role_id", roleID), slog.Any("error", err))
		h.render(w, r, http.StatusBadGateway, editor)
		return
	}
	if editor.Snapshot().SelectedRole.ID != roleID {
		h.view.RedirectWithFlash(w, r, BasePath, shared.FlashMessage{Kind: "danger", Message: "El rol seleccionado ya no existe."})
		return
	}

	editor.ApplyDraft(formIDs(r.PostForm["permiso"]))
	editor.SetQuery(query)

	switch action {
	case "", "filtrar":
	case "todos":
		editor.SetFiltered(true)
	case "ninguno":
		editor.SetFiltered(false)
	case "modulo":
		editor.ToggleModule(r.FormValue("modulo"))
	case "guardar":
		h.save(w, r, editor, roleID, query)
		return
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.render(w, r, http.StatusOK, editor)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, editor *Editor, roleID int64, query string) {
	err := editor.Save(r.Context())
	switch {
	case err == nil:
		h.view.RedirectWithFlash(w, r, editorURL(roleID, query), shared.FlashMessage{Kind: "success", Message: SavedNotice, AutoClear: true})
	case errors.Is(err, shared.ErrValidation):
		h.render(w, r, http.StatusUnprocessableEntity, editor)
	default:
		h.logger.Error("save role permissions", slog.Int64("role_id", roleID), slog.Any("error", err))
		h.render(w, r, http.StatusBadGateway, editor)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, editor *Editor) {
	h.view.Render(w, r, status, pageTemplate, "Roles y permisos", editor.Snapshot())
}

func editorURL(roleID int64, query string) string {
	v := url.Values{"rol": {strconv.FormatInt(roleID, 10)}}
	if query != "" {
		v.Set("q", query)
	}
	return BasePath + "?" + v.Encode()
}

func formIDs(values []string) []int64 {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
