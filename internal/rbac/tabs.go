package rbac

import "strings"

// Tab is a navigation link. An empty Code means every operator sees it.
type Tab struct {
	Label  string
	Route  string
	Code   string
	Active bool
}

// MainTabs is the top navigation.
var MainTabs = []Tab{
	{Label: "Inicio", Route: HomeRoute},
	{Label: "Proveedores", Route: "/proveedores", Code: PermViewProviders},
	{Label: "Usuarios", Route: "/usuarios", Code: PermViewUsers},
	{Label: "Seguridad", Route: "/seguridad/roles", Code: PermAdminRoles},
	{Label: "Reportes", Route: "/reportes", Code: PermViewReports},
}

// SecurityTabs is the tab set shown on user and role screens.
var SecurityTabs = []Tab{
	{Label: "Usuarios", Route: "/usuarios", Code: PermViewUsers},
	{Label: "Roles y permisos", Route: "/seguridad/roles", Code: PermAdminRoles},
}

// VisibleTabs drops the tabs the gate denies and marks the one matching path.
// Denied tabs are not rendered at all.
func VisibleTabs(tabs []Tab, g Gate, path string) []Tab {
	out := make([]Tab, 0, len(tabs))
	best := -1
	for _, t := range tabs {
		if t.Code != "" && !g.HasPermission(t.Code) {
			continue
		}
		t.Active = false
		out = append(out, t)
		if matchesRoute(path, t.Route) && (best < 0 || len(t.Route) > len(out[best].Route)) {
			best = len(out) - 1
		}
	}
	if best >= 0 {
		out[best].Active = true
	}
	return out
}

func matchesRoute(path, route string) bool {
	if route == HomeRoute {
		return path == HomeRoute
	}
	return path == route || strings.HasPrefix(path, route+"/")
}
