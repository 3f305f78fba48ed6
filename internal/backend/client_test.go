package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveBackendCall(operation, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, operation+":"+outcome)
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithTokenSource(func(context.Context) string { return "tok-123" })}, opts...)
	return NewClient(srv.URL+"/api", 2*time.Second, opts...)
}

func TestListRolesForwardsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/seguridad/roles", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":1,"nombre":"Administrador","descripcion":"Todo"},{"id":"2","nombre":"Cajero"}]`)
	})

	roles, err := client.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, Role{ID: 1, Name: "Administrador", Description: "Todo"}, roles[0])
	assert.Equal(t, Role{ID: 2, Name: "Cajero"}, roles[1])
}

func TestPrincipalTokenUsedByDefault(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	sess := &shared.Session{}
	sess.SetPrincipal(shared.Principal{UserID: 3, Token: "from-session"})
	ctx := shared.ContextWithSession(context.Background(), sess)

	_, err := client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer from-session", got)
}

func TestRolePermissionsDecodesAssignments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/seguridad/roles/4/permisos", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":10,"codigo":"ver_consumos","nombre":"Ver consumos","asignado":true},{"id":11,"codigo":"admin_roles","nombre":"","asignado":false}]`)
	})

	perms, err := client.RolePermissions(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.True(t, perms[0].Assigned)
	assert.Equal(t, "ver_consumos", perms[0].Code)
	assert.Equal(t, "admin_roles", perms[1].Name, "name falls back to code")
}

func TestReplaceRolePermissionsSendsSortedIDs(t *testing.T) {
	var body struct {
		PermisoIDs []int64 `json:"permisoIds"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/seguridad/roles/9/permisos", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.ReplaceRolePermissions(context.Background(), 9, []int64{7, 3, 5}))
	assert.Equal(t, []int64{3, 5, 7}, body.PermisoIDs)
}

func TestUserRoleShapesNormalized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id":1,"nombre":"Ana","rol":"Cajero","rolId":2,"activo":true},
			{"id":2,"nombre":"Luis","rol":{"id":1,"nombre":"Administrador"},"activo":false},
			{"id":3,"nombre":"Eva"}
		]`)
	})

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, Role{ID: 2, Name: "Cajero"}, users[0].Role)
	assert.Equal(t, Role{ID: 1, Name: "Administrador"}, users[1].Role)
	assert.False(t, users[1].Active)
	assert.Equal(t, Role{}, users[2].Role)
	assert.True(t, users[2].Active, "missing activo defaults to active")
}

func TestProviderDefaults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/proveedores/7", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":7,"nombre":"Distribuidora Norte","rnc":null,"tiendas":[{"id":1,"nombre":"Tienda Sur"}]}`)
	})

	p, err := client.GetProvider(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, "", p.RNC)
	require.Len(t, p.Stores, 1)
	assert.Equal(t, Store{ID: 1, Name: "Tienda Sur", Active: true}, p.Stores[0])
}

func TestListProvidersSearchQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "norte sa", r.URL.Query().Get("buscar"))
		_, _ = io.WriteString(w, `{"data":[{"id":1,"nombre":"Norte SA","activo":true}]}`)
	})

	list, err := client.ListProviders(context.Background(), "  norte sa ")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Norte SA", list[0].Name)
}

func TestCreateStoreReturnsRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/proveedores/7/tiendas", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":41,"nombre":"Tienda Centro"}`)
	})

	store, err := client.CreateStore(context.Background(), 7, StoreInput{Name: "Tienda Centro"})
	require.NoError(t, err)
	assert.Equal(t, Store{ID: 41, Name: "Tienda Centro", Active: true}, store)
}

func TestCreateStoreWithoutIDIsBackendError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"nombre":"Tienda Centro"}`)
	})

	_, err := client.CreateStore(context.Background(), 7, StoreInput{Name: "Tienda Centro"})
	require.ErrorIs(t, err, ErrMissingID)
	assert.ErrorIs(t, err, shared.ErrBackend)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
		detail string
	}{
		{"not found", http.StatusNotFound, `{}`, shared.ErrNotFound, ""},
		{"forbidden", http.StatusForbidden, `{}`, shared.ErrForbidden, ""},
		{"unauthorized", http.StatusUnauthorized, ``, shared.ErrForbidden, ""},
		{"validation mensaje", http.StatusBadRequest, `{"mensaje":"El nombre es obligatorio"}`, shared.ErrValidation, "El nombre es obligatorio"},
		{"validation problem", http.StatusUnprocessableEntity, `{"title":"Invalid","status":422,"detail":"RNC duplicado"}`, shared.ErrValidation, "RNC duplicado"},
		{"server", http.StatusInternalServerError, `{"mensaje":"stack trace"}`, shared.ErrBackend, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			err := client.DeleteProvider(context.Background(), 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			var detailed *shared.DetailError
			require.ErrorAs(t, err, &detailed)
			assert.Equal(t, tc.detail, detailed.Detail)
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	client := NewClient(url, time.Second, WithObserver(obs))
	_, err := client.ListRoles(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNetwork)
	assert.Equal(t, []string{"roles.list:network"}, obs.calls)
}

func TestConcurrentIdenticalReadsShareOneRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = io.WriteString(w, `[{"id":1,"nombre":"Administrador"}]`)
	})

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]Role, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roles, err := client.ListRoles(context.Background())
			assert.NoError(t, err)
			results[i] = roles
		}(i)
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, roles := range results {
		assert.Len(t, roles, 1)
	}
}

func TestLoginMapsRejectionToInvalidCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Login(context.Background(), Credentials{Username: "ana", Password: "bad"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginDecodesSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana", body["usuario"])
		_, _ = io.WriteString(w, `{"token":"jwt","usuario":{"id":5,"nombre":"Ana","rol":{"id":2,"nombre":"Cajero"}},"permisos":["VER_CONSUMOS",{"codigo":"ver_proveedores"}]}`)
	})

	sess, err := client.Login(context.Background(), Credentials{Username: "ana", Password: "secreto"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", sess.Token)
	assert.Equal(t, int64(5), sess.User.ID)
	assert.Equal(t, Role{ID: 2, Name: "Cajero"}, sess.User.Role)
	assert.Equal(t, []string{"VER_CONSUMOS", "ver_proveedores"}, sess.Permissions)
	assert.True(t, sess.User.Active)
}

func TestLoginDecodesInactiveUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":"jwt","usuario":{"id":6,"nombre":"Luis","rolId":3,"activo":false},"permisos":[]}`)
	})

	sess, err := client.Login(context.Background(), Credentials{Username: "luis", Password: "secreto"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), sess.User.ID)
	assert.False(t, sess.User.Active)
}
