package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

func requestAs(path string, perms ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	sess := &shared.Session{ID: "s"}
	if perms != nil {
		sess.SetPrincipal(shared.Principal{UserID: 9, Permissions: perms})
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRouteRedirectsToNearest(t *testing.T) {
	m := Middleware{}
	var called bool
	rr := httptest.NewRecorder()
	m.RequireRoute(PermViewProviders)(okHandler(&called)).ServeHTTP(rr, requestAs("/proveedores", PermAdminRoles))

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/seguridad/roles", rr.Header().Get("Location"))
}

type deniedRoutes []string

func (d *deniedRoutes) PermissionDenied(route string) { *d = append(*d, route) }

func TestDenialsReachObserver(t *testing.T) {
	var denied deniedRoutes
	m := Middleware{Observer: &denied}
	var called bool

	m.RequireRoute(PermViewProviders)(okHandler(&called)).ServeHTTP(httptest.NewRecorder(), requestAs("/proveedores", PermAdminRoles))
	m.RequireAction(PermAdminStores)(okHandler(&called)).ServeHTTP(httptest.NewRecorder(), requestAs("/proveedores/7/tiendas", PermViewProviders))
	m.RequireRoute(PermViewProviders)(okHandler(&called)).ServeHTTP(httptest.NewRecorder(), requestAs("/proveedores"))

	assert.False(t, called)
	assert.Equal(t, deniedRoutes{"unknown", "unknown"}, denied)
}

func TestRequireRouteAllows(t *testing.T) {
	m := Middleware{}
	var called bool
	rr := httptest.NewRecorder()
	m.RequireRoute(PermViewProviders, PermAdminProviders)(okHandler(&called)).ServeHTTP(rr, requestAs("/proveedores", PermAdminProviders))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireRouteAnonymousGoesToLogin(t *testing.T) {
	m := Middleware{}
	var called bool
	rr := httptest.NewRecorder()
	m.RequireRoute(PermViewProviders)(okHandler(&called)).ServeHTTP(rr, requestAs("/proveedores?q=x"))

	assert.False(t, called)
	assert.Equal(t, "/auth/login?next=%2Fproveedores%3Fq%3Dx", rr.Header().Get("Location"))
}

func TestRequireScreenRendersPanel(t *testing.T) {
	var panel bool
	m := Middleware{Denied: func(w http.ResponseWriter, r *http.Request) {
		panel = true
		w.WriteHeader(http.StatusForbidden)
	}}
	var called bool
	rr := httptest.NewRecorder()
	m.RequireScreen(PermAdminRoles)(okHandler(&called)).ServeHTTP(rr, requestAs("/seguridad/roles", "ver_consumos"))

	assert.False(t, called)
	assert.True(t, panel)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireActionNeedsAll(t *testing.T) {
	m := Middleware{}
	var called bool
	rr := httptest.NewRecorder()
	m.RequireAction(PermViewProviders, PermAdminStores)(okHandler(&called)).ServeHTTP(rr, requestAs("/proveedores/1/tiendas", PermViewProviders))

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
