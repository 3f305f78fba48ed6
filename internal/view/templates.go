package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/web"
)

// DefaultNoticeTTL is how long auto-clearing notices stay on screen.
const DefaultNoticeTTL = 3 * time.Second

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	noticeTTL time.Duration
}

// Option customises the Engine.
type Option func(*Engine)

// WithNoticeTTL sets the delay after which transient notices hide themselves.
func WithNoticeTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.noticeTTL = ttl
		}
	}
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Principal   *shared.Principal
	Tabs        []rbac.Tab
	SubTabs     []rbac.Tab
	NoticeMS    int64
	Data        any

	gate rbac.Gate
}

// Can reports whether the current operator holds code. Templates use it to
// leave denied controls out of the page.
func (d TemplateData) Can(code string) bool {
	if d.gate == nil {
		return false
	}
	return d.gate.HasPermission(code)
}

// Page builds TemplateData for r with the navigation filtered by the
// operator permissions.
func Page(r *http.Request, title string, data any) TemplateData {
	gate := rbac.GateFromContext(r.Context())
	td := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Principal:   shared.PrincipalFromContext(r.Context()),
		Data:        data,
		gate:        gate,
	}
	if gate.Authenticated() {
		td.Tabs = rbac.VisibleTabs(rbac.MainTabs, gate, r.URL.Path)
		if strings.HasPrefix(r.URL.Path, "/usuarios") || strings.HasPrefix(r.URL.Path, "/seguridad") {
			td.SubTabs = rbac.VisibleTabs(rbac.SecurityTabs, gate, r.URL.Path)
		}
	}
	return td
}

// NewEngine parses templates at build-time.
func NewEngine(opts ...Option) (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"estado": func(active bool) string {
			if active {
				return "Activo"
			}
			return "Inactivo"
		},
		"initial": func(s string) string {
			s = strings.TrimSpace(s)
			if s == "" {
				return "?"
			}
			return strings.ToUpper(string([]rune(s)[:1]))
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	e := &Engine{templates: tpl, noticeTTL: DefaultNoticeTTL}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NoticeTTL exposes the configured notice delay.
func (e *Engine) NoticeTTL() time.Duration {
	if e == nil {
		return DefaultNoticeTTL
	}
	return e.noticeTTL
}

// Render executes a named template with TemplateData and writes it with
// status. Nothing is written when the template fails.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	data.NoticeMS = e.noticeTTL.Milliseconds()
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Execute writes a standalone document, such as the HTML sent to the PDF
// renderer. It takes plain data instead of TemplateData.
func (e *Engine) Execute(w io.Writer, name string, data any) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}
