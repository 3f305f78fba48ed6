package providers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/screen"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
)

// BasePath is where the provider screens are mounted.
const BasePath = "/proveedores"

const perPage = 20

// Handler serves the provider and store screens.
type Handler struct {
	logger  *slog.Logger
	service *Service
	tracker *screen.Tracker
	view    view.Responder
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance. tracker may be nil, in which case live
// search answers are never marked superseded server side.
func NewHandler(logger *slog.Logger, service *Service, tracker *screen.Tracker, responder view.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, tracker: tracker, view: responder, rbac: rbac}
}

type listPage struct {
	Query      string
	Providers  []backend.Provider
	Pagination shared.Pagination
	Error      string
	ScreenID   string
}

type formPage struct {
	Provider backend.Provider
	Form     providerForm
	Errors   FieldErrors
	Editing  bool
}

type detailPage struct {
	Detail    DetailScreen
	StoreForm storeForm
	EditStore int64
	Errors    FieldErrors
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	page, _ := strconv.Atoi(r.URL.Query().Get("pagina"))

	data := listPage{Query: q, ScreenID: newScreenID()}
	list, err := h.service.List(r.Context(), q)
	if err != nil {
		h.logger.Error("list providers failed", slog.Any("error", err))
		data.Error = shared.UserSafeMessage(err)
		h.view.Render(w, r, statusFor(err), "providers/list", "Proveedores", data)
		return
	}
	data.Pagination = shared.NewPagination(page, perPage, len(list))
	data.Providers = shared.PageOf(list, data.Pagination)
	h.view.Render(w, r, http.StatusOK, "providers/list", "Proveedores", data)
}

// Search answers the live search box. A response that a newer keystroke
// superseded while it was in flight is answered 204 with X-Superseded.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	seq, _ := strconv.ParseUint(r.URL.Query().Get("seq"), 10, 64)
	screenID := r.URL.Query().Get("pantalla")
	sessionID := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sessionID = sess.ID
	}
	tracked := h.tracker != nil && seq > 0 && screenID != "" && sessionID != ""

	if tracked {
		latest, err := h.tracker.Observe(r.Context(), sessionID, screenID, seq)
		if err != nil {
			h.logger.Warn("observe search sequence", slog.Any("error", err))
		} else if !latest {
			superseded(w)
			return
		}
	}

	list, err := h.service.List(r.Context(), q)

	if tracked {
		if latest, lerr := h.tracker.IsLatest(r.Context(), sessionID, screenID, seq); lerr == nil && !latest {
			superseded(w)
			return
		}
	}

	data := listPage{Query: q, ScreenID: screenID}
	status := http.StatusOK
	if err != nil {
		data.Error = shared.UserSafeMessage(err)
		status = statusFor(err)
	} else {
		data.Pagination = shared.NewPagination(1, perPage, len(list))
		data.Providers = shared.PageOf(list, data.Pagination)
	}
	h.view.Render(w, r, status, "providers/results", "Proveedores", data)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.service.Detail(r.Context(), sessionID(r), id)
	if err != nil {
		h.fail(w, r, err, "get provider failed", id)
		return
	}
	h.renderDetail(w, r, http.StatusOK, detailPage{Detail: d, StoreForm: storeForm{Active: true}})
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, "providers/form", "Nuevo proveedor", formPage{Form: providerForm{Active: true}})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseProviderForm(r)
	created, fieldErrs, err := h.service.Create(r.Context(), form)
	if err != nil {
		if fieldErrs == nil {
			fieldErrs = FieldErrors{"general": shared.UserSafeMessage(err)}
		}
		h.view.Render(w, r, statusFor(err), "providers/form", "Nuevo proveedor", formPage{Form: form, Errors: fieldErrs})
		return
	}
	location := BasePath
	if created.ID > 0 {
		location = BasePath + "/" + strconv.FormatInt(created.ID, 10)
	}
	h.view.RedirectWithFlash(w, r, location, shared.FlashMessage{Kind: "success", Message: "Proveedor creado correctamente.", AutoClear: true})
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get provider failed", id)
		return
	}
	h.view.Render(w, r, http.StatusOK, "providers/form", "Editar proveedor", formPage{Provider: p, Form: formFromProvider(p), Editing: true})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseProviderForm(r)
	fieldErrs, err := h.service.Update(r.Context(), id, form)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.view.NotFound(w, r)
			return
		}
		if fieldErrs == nil {
			fieldErrs = FieldErrors{"general": shared.UserSafeMessage(err)}
		}
		data := formPage{Provider: backend.Provider{ID: id, Name: form.Name}, Form: form, Errors: fieldErrs, Editing: true}
		h.view.Render(w, r, statusFor(err), "providers/form", "Editar proveedor", data)
		return
	}
	h.view.RedirectWithFlash(w, r, BasePath+"/"+strconv.FormatInt(id, 10), shared.FlashMessage{Kind: "success", Message: "Proveedor actualizado correctamente.", AutoClear: true})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), sessionID(r), id); err != nil {
		h.logger.Warn("delete provider failed", slog.Int64("provider_id", id), slog.Any("error", err))
		h.view.RedirectWithFlash(w, r, BasePath, shared.FlashMessage{Kind: "danger", Message: shared.UserSafeMessage(err)})
		return
	}
	h.view.RedirectWithFlash(w, r, BasePath, shared.FlashMessage{Kind: "success", Message: "Proveedor eliminado correctamente.", AutoClear: true})
}

func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := storeForm{Name: r.PostFormValue("nombre"), Active: true}
	d, fieldErrs, err := h.service.AddStore(r.Context(), sessionID(r), providerID, form)
	h.afterStoreChange(w, r, d, form, 0, fieldErrs, err, "Tienda creada correctamente.")
}

func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	storeID, ok := h.parseID(w, r, "tid")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := storeForm{Name: r.PostFormValue("nombre"), Active: checkbox(r, "activo")}
	d, fieldErrs, err := h.service.UpdateStore(r.Context(), sessionID(r), providerID, storeID, form)
	editing := int64(0)
	if err != nil {
		editing = storeID
	}
	h.afterStoreChange(w, r, d, form, editing, fieldErrs, err, "Tienda actualizada correctamente.")
}

func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	storeID, ok := h.parseID(w, r, "tid")
	if !ok {
		return
	}
	d, err := h.service.RemoveStore(r.Context(), sessionID(r), providerID, storeID)
	h.afterStoreChange(w, r, d, storeForm{Active: true}, 0, nil, err, "Tienda eliminada correctamente.")
}

// afterStoreChange renders the patched snapshot directly; the provider is not
// fetched again.
func (h *Handler) afterStoreChange(w http.ResponseWriter, r *http.Request, d DetailScreen, form storeForm, editing int64, fieldErrs FieldErrors, err error, success string) {
	if err != nil && d.Provider.ID == 0 {
		h.fail(w, r, err, "store change failed", 0)
		return
	}
	data := detailPage{Detail: d, StoreForm: storeForm{Active: true}, EditStore: editing}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		data.Errors = fieldErrs
		if data.Errors == nil {
			data.Errors = FieldErrors{"general": shared.UserSafeMessage(err)}
		}
		if editing == 0 {
			data.StoreForm = form
		}
		h.logger.Warn("store change failed", slog.Int64("provider_id", d.Provider.ID), slog.Any("error", err))
	} else if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: success, AutoClear: true})
	}
	h.renderDetail(w, r, status, data)
}

func (h *Handler) renderDetail(w http.ResponseWriter, r *http.Request, status int, data detailPage) {
	h.view.Render(w, r, status, "providers/detail", data.Detail.Provider.Name, data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string, id int64) {
	if errors.Is(err, shared.ErrNotFound) {
		h.view.NotFound(w, r)
		return
	}
	h.logger.Error(msg, slog.Int64("provider_id", id), slog.Any("error", err))
	h.view.RedirectWithFlash(w, r, BasePath, shared.FlashMessage{Kind: "danger", Message: shared.UserSafeMessage(err)})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		h.view.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func parseProviderForm(r *http.Request) providerForm {
	return providerForm{
		Name:    r.PostFormValue("nombre"),
		RNC:     r.PostFormValue("rnc"),
		Phone:   r.PostFormValue("telefono"),
		Email:   r.PostFormValue("correo"),
		Address: r.PostFormValue("direccion"),
		Active:  checkbox(r, "activo"),
	}
}

func checkbox(r *http.Request, name string) bool {
	switch r.PostFormValue(name) {
	case "on", "1", "true":
		return true
	default:
		return false
	}
}

func sessionID(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.ID
	}
	return ""
}

func superseded(w http.ResponseWriter) {
	w.Header().Set("X-Superseded", "1")
	w.WriteHeader(http.StatusNoContent)
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
