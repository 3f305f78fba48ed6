package report

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/platform/httpx"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
)

// BasePath is where the report screens are mounted.
const BasePath = "/reportes"

// Handler manages report endpoints.
type Handler struct {
	client *Client
	source Source
	view   view.Responder
	rbac   rbac.Middleware
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler creates a report handler. client may be nil, in which case the
// PDF export answers 503.
func NewHandler(client *Client, source Source, responder view.Responder, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, source: source, view: responder, rbac: rbac, logger: logger, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireRoute(rbac.PermViewReports))
	r.Get("/", h.index)
	r.Get("/proveedores.csv", h.providersCSV)
	r.Get("/proveedores.pdf", h.providersPDF)
	r.Get("/ping", h.ping)
}

type indexPage struct {
	Report       ProvidersReport
	Stores       int
	ActiveStores int
	Error        string
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	rep, err := BuildProvidersReport(r.Context(), h.source, h.now())
	if err != nil {
		h.logger.Error("build providers report", slog.Any("error", err))
		h.view.Render(w, r, http.StatusBadGateway, "reports/index", "Reportes", indexPage{Error: shared.UserSafeMessage(err)})
		return
	}
	data := indexPage{Report: rep}
	data.Stores, data.ActiveStores = rep.Totals()
	h.view.Render(w, r, http.StatusOK, "reports/index", "Reportes", data)
}

func (h *Handler) providersCSV(w http.ResponseWriter, r *http.Request) {
	rep, err := BuildProvidersReport(r.Context(), h.source, h.now())
	if err != nil {
		h.logger.Error("build providers csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := rep.WriteCSV(&buf); err != nil {
		h.logger.Error("write providers csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=proveedores.csv")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) providersPDF(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	rep, err := BuildProvidersReport(r.Context(), h.source, h.now())
	if err != nil {
		h.logger.Error("build providers pdf", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	var html bytes.Buffer
	data := indexPage{Report: rep}
	data.Stores, data.ActiveStores = rep.Totals()
	if err := h.view.Templates.Execute(&html, "reports/providers_document", data); err != nil {
		h.logger.Error("render providers document", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), &html)
	if err != nil {
		h.logger.Error("render providers pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=proveedores.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
