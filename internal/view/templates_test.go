package view

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

func requestAs(t *testing.T, path string, permissions ...string) (*http.Request, *shared.Session) {
	t.Helper()
	sess := &shared.Session{ID: "sess-view"}
	sess.SetPrincipal(shared.Principal{UserID: 3, Name: "marta", RoleName: "Supervisor", Permissions: permissions})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	assert.Equal(t, DefaultNoticeTTL, engine.NoticeTTL())
}

func TestPageFiltersTabsAndSubTabs(t *testing.T) {
	req, _ := requestAs(t, "/usuarios/4/editar", "ver_usuarios", "ver_reportes")

	td := Page(req, "Usuarios", nil)

	labels := make([]string, 0, len(td.Tabs))
	for _, tab := range td.Tabs {
		labels = append(labels, tab.Label)
		if tab.Label == "Usuarios" {
			assert.True(t, tab.Active)
		}
	}
	assert.Equal(t, []string{"Inicio", "Usuarios", "Reportes"}, labels)
	require.Len(t, td.SubTabs, 1)
	assert.Equal(t, "/usuarios", td.SubTabs[0].Route)
	assert.True(t, td.Can("VER_USUARIOS"))
	assert.False(t, td.Can("admin_usuarios"))
}

func TestPageWithoutPrincipal(t *testing.T) {
	td := Page(httptest.NewRequest(http.MethodGet, "/", nil), "Inicio", nil)

	assert.Empty(t, td.Tabs)
	assert.False(t, td.Can("ver_usuarios"))
}

func TestRenderFailureWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()

	err = engine.Render(rec, http.StatusOK, "missing-page", TemplateData{})

	assert.Error(t, err)
	assert.Zero(t, rec.Body.Len())
}

func TestResponderRenderConsumesFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	responder := Responder{Templates: engine}
	req, sess := requestAs(t, "/", "ver_proveedores")
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Guardado.", AutoClear: true})

	rec := httptest.NewRecorder()
	responder.Render(rec, req, http.StatusOK, "dashboard", "Inicio", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Guardado.")
	assert.Contains(t, body, "data-autoclear")
	assert.Contains(t, body, `href="/proveedores"`)
	assert.NotContains(t, body, `href="/usuarios"`)
	assert.Nil(t, sess.PopFlash())
}

func TestResponderDeniedAndNotFound(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	responder := Responder{Templates: engine}
	req, _ := requestAs(t, "/seguridad/roles")

	rec := httptest.NewRecorder()
	responder.Denied(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sin acceso")

	rec = httptest.NewRecorder()
	responder.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nada", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRedirectWithFlash(t *testing.T) {
	req, sess := requestAs(t, "/usuarios")
	rec := httptest.NewRecorder()

	Responder{}.RedirectWithFlash(rec, req, "/usuarios", shared.FlashMessage{Kind: "success", Message: "Usuario creado correctamente."})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/usuarios", rec.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Usuario creado correctamente.", flash.Message)
}

func TestExecuteStandaloneDocument(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	var buf bytes.Buffer

	var data struct {
		Report struct {
			Rows        []struct{}
			GeneratedAt time.Time
		}
		Stores, ActiveStores int
	}

	err = engine.Execute(&buf, "reports/providers_document", data)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<!DOCTYPE html>")
	assert.Contains(t, buf.String(), "No hay proveedores registrados.")
}
