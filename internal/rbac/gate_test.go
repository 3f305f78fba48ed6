package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

func TestGateMembership(t *testing.T) {
	granted := []string{"ver_consumos", PermViewProviders, "reporte_mensual"}
	gate := NewGate(&shared.Principal{UserID: 1, Permissions: granted})

	for _, code := range granted {
		assert.True(t, gate.HasPermission(code), code)
	}
	for _, code := range []string{PermAdminRoles, PermAdminUsers, "", "ver", "ver_consumos_extra"} {
		assert.False(t, gate.HasPermission(code), code)
	}
}

func TestGateWithoutSessionDeniesEverything(t *testing.T) {
	gate := GateFromContext(context.Background())
	assert.False(t, gate.Authenticated())
	for _, code := range []string{PermAdminRoles, PermViewUsers, PermViewProviders, PermViewReports} {
		assert.False(t, gate.HasPermission(code), code)
	}
}

func TestHasAnyHasAll(t *testing.T) {
	gate := NewGate(&shared.Principal{Permissions: []string{PermViewUsers}})
	assert.True(t, HasAny(gate, PermAdminUsers, PermViewUsers))
	assert.False(t, HasAll(gate, PermAdminUsers, PermViewUsers))
	assert.True(t, HasAll(gate))
	assert.False(t, HasAny(gate))
}

func TestRouteTableLanding(t *testing.T) {
	cases := []struct {
		name  string
		perms []string
		want  string
	}{
		{"providers first", []string{PermAdminRoles, PermViewProviders}, "/proveedores"},
		{"roles only", []string{PermAdminRoles}, "/seguridad/roles"},
		{"reports only", []string{PermViewReports}, "/reportes"},
		{"nothing mapped", []string{"ver_consumos"}, HomeRoute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := NewGate(&shared.Principal{Permissions: tc.perms})
			assert.Equal(t, tc.want, DefaultRoutes.Landing(gate))
		})
	}
}

func TestRouteTableNearestSkipsDeniedRoute(t *testing.T) {
	gate := NewGate(&shared.Principal{Permissions: []string{PermAdminProviders, PermViewUsers}})
	assert.Equal(t, "/usuarios", DefaultRoutes.Nearest(gate, "/proveedores"))
}

func TestModuleOf(t *testing.T) {
	assert.Equal(t, "Administración", ModuleOf("admin_roles"))
	assert.Equal(t, "Consultas", ModuleOf("VER_consumos"))
	assert.Equal(t, "Reportes", ModuleOf("reporte_ventas"))
	assert.Equal(t, OtherModule, ModuleOf("facturar"))
	assert.Equal(t, len(DefaultModules), ModuleOrder(OtherModule))
	assert.Less(t, ModuleOrder("Administración"), ModuleOrder("Consultas"))
}

func TestVisibleTabsHidesDenied(t *testing.T) {
	gate := NewGate(&shared.Principal{Permissions: []string{PermViewProviders}})
	tabs := VisibleTabs(MainTabs, gate, "/proveedores/7")

	labels := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		labels = append(labels, tab.Label)
	}
	assert.Equal(t, []string{"Inicio", "Proveedores"}, labels)
	assert.False(t, tabs[0].Active)
	assert.True(t, tabs[1].Active)
}
