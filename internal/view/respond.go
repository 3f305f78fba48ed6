package view

import (
	"log/slog"
	"net/http"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// Responder bundles what a screen handler needs to answer with a page.
type Responder struct {
	Logger    *slog.Logger
	Templates *Engine
	CSRF      *shared.CSRFManager
}

// Render writes the named page for r, consuming the pending flash message.
func (rp Responder) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	td := Page(r, title, data)
	if rp.CSRF != nil && sess != nil {
		td.CSRFToken, _ = rp.CSRF.EnsureToken(r.Context(), sess)
	}
	td.Flash = sess.PopFlash()
	if err := rp.Templates.Render(w, status, name, td); err != nil {
		rp.logger().Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// RedirectWithFlash queues msg for the next page and answers 303.
func (rp Responder) RedirectWithFlash(w http.ResponseWriter, r *http.Request, location string, msg shared.FlashMessage) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(msg)
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// Denied renders the "no access" panel with 403. It never calls the backend.
func (rp Responder) Denied(w http.ResponseWriter, r *http.Request) {
	rp.Render(w, r, http.StatusForbidden, "denied", "Sin acceso", nil)
}

// NotFound renders the missing record page with 404.
func (rp Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rp.Render(w, r, http.StatusNotFound, "notfound", "No encontrado", nil)
}

func (rp Responder) logger() *slog.Logger {
	if rp.Logger == nil {
		return slog.Default()
	}
	return rp.Logger
}
