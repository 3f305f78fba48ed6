package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/auth"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/view"
	_ "github.com/EnmanuelOvalles37/consumo-admin/testing"
)

// loginBackend accepts ana/secreto, answers luis/secreto with a disabled
// account and rejects everything else with 401.
func loginBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["usuario"] == "luis" && body["contrasena"] == "secreto" {
			_, _ = io.WriteString(w, `{"token":"jwt-2","usuario":{"id":6,"nombre":"Luis","rolId":3,"activo":false},"permisos":["ver_usuarios"]}`)
			return
		}
		if body["usuario"] != "ana" || body["contrasena"] != "secreto" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"mensaje":"Credenciales inválidas"}`)
			return
		}
		_, _ = io.WriteString(w, `{"token":"jwt-1","usuario":{"id":4,"nombre":"Ana","rol":{"id":2,"nombre":"Cajero"}},"permisos":["VER_USUARIOS",{"codigo":"admin_roles"}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAuthHandler(t *testing.T) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	srv := loginBackend(t)
	service := auth.NewService(backend.NewClient(srv.URL+"/api", time.Second), nil, nil)
	responder := view.Responder{Templates: templates, CSRF: csrfManager}
	return auth.NewHandler(nil, service, responder, sessionManager), sessionManager
}

func postLogin(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, form url.Values) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/login?next=%2Fusuarios", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "<form") {
		t.Fatalf("expected login form in body")
	}
	if !strings.Contains(body, `name="next" value="/usuarios"`) {
		t.Fatalf("expected next target to be carried, body: %s", body)
	}
	if sess.Get(shared.CSRFSessionKey) == "" {
		t.Fatalf("csrf token not set")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t)

	res, sess := postLogin(t, handler, sessionManager, url.Values{"usuario": {"ana"}, "contrasena": {"mala"}})

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Usuario o contraseña incorrectos.") {
		t.Fatalf("expected error message in response")
	}
	if sess.Principal() != nil {
		t.Fatalf("principal must not be bound on failure")
	}
}

func TestLoginRefusesInactiveUser(t *testing.T) {
	handler, sessionManager := newAuthHandler(t)

	res, sess := postLogin(t, handler, sessionManager, url.Values{"usuario": {"luis"}, "contrasena": {"secreto"}})

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Usuario o contraseña incorrectos.") {
		t.Fatalf("expected invalid credentials message, body: %s", res.Body.String())
	}
	if sess.Principal() != nil {
		t.Fatalf("inactive user must not be bound to the session")
	}
}

func TestLoginRequiresFields(t *testing.T) {
	handler, sessionManager := newAuthHandler(t)

	res, _ := postLogin(t, handler, sessionManager, url.Values{"usuario": {"  "}})

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "Ingrese su usuario.") || !strings.Contains(body, "Ingrese su contraseña.") {
		t.Fatalf("expected field errors, body: %s", body)
	}
}

func TestLoginBindsPrincipalAndLands(t *testing.T) {
	handler, sessionManager := newAuthHandler(t)

	res, sess := postLogin(t, handler, sessionManager, url.Values{"usuario": {"ana"}, "contrasena": {"secreto"}})

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if got := res.Header().Get("Location"); got != "/usuarios" {
		t.Fatalf("expected landing /usuarios, got %q", got)
	}
	p := sess.Principal()
	if p == nil {
		t.Fatalf("principal not bound")
	}
	if p.Token != "jwt-1" || p.UserID != 4 || p.RoleName != "Cajero" {
		t.Fatalf("unexpected principal %+v", p)
	}
	if !p.Has("ver_usuarios") || !p.Has("admin_roles") {
		t.Fatalf("permissions not normalized: %v", p.Permissions)
	}
}

func TestLoginHonoursSafeNext(t *testing.T) {
	cases := map[string]string{
		"/seguridad/roles?rol=2": "/seguridad/roles?rol=2",
		"//evil.example/x":       "/usuarios",
		"https://evil.example":   "/usuarios",
		"/auth/login":            "/usuarios",
	}
	for next, want := range cases {
		t.Run(next, func(t *testing.T) {
			handler, sessionManager := newAuthHandler(t)
			res, _ := postLogin(t, handler, sessionManager, url.Values{"usuario": {"ana"}, "contrasena": {"secreto"}, "next": {next}})
			if got := res.Header().Get("Location"); got != want {
				t.Fatalf("next %q: expected %q, got %q", next, want, got)
			}
		})
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	handler, sessionManager := newAuthHandler(t)
	_, sess := postLogin(t, handler, sessionManager, url.Values{"usuario": {"ana"}, "contrasena": {"secreto"}})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionManager.CookieName(), Value: sess.ID})
	loaded, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.Principal() == nil {
		t.Fatalf("expected persisted principal")
	}
	ctx := shared.ContextWithSession(req.Context(), loaded)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	router.ServeHTTP(res, req)
	if err := sessionManager.Commit(ctx, res, req, loaded); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != "/auth/login" {
		t.Fatalf("unexpected logout answer %d %q", res.Code, res.Header().Get("Location"))
	}

	again, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if again.Principal() != nil {
		t.Fatalf("session survived logout")
	}
}
