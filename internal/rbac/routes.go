package rbac

// RouteEntry maps a permission code to the default screen it opens.
type RouteEntry struct {
	Code  string
	Route string
}

// HomeRoute is the safe default screen every operator can reach.
const HomeRoute = "/"

// RouteTable is the ordered permission-to-route table used for
// redirect-after-login and for denied routes.
type RouteTable []RouteEntry

// DefaultRoutes is the configured permission-to-route table.
var DefaultRoutes = RouteTable{
	{Code: PermViewProviders, Route: "/proveedores"},
	{Code: PermAdminProviders, Route: "/proveedores"},
	{Code: PermViewUsers, Route: "/usuarios"},
	{Code: PermAdminUsers, Route: "/usuarios"},
	{Code: PermAdminRoles, Route: "/seguridad/roles"},
	{Code: PermViewReports, Route: "/reportes"},
}

// Landing returns the first route the gate grants, or HomeRoute.
func (t RouteTable) Landing(g Gate) string {
	for _, e := range t {
		if g.HasPermission(e.Code) {
			return e.Route
		}
	}
	return HomeRoute
}

// Nearest returns the landing route for g, avoiding the route that was just denied.
func (t RouteTable) Nearest(g Gate, denied string) string {
	for _, e := range t {
		if e.Route != denied && g.HasPermission(e.Code) {
			return e.Route
		}
	}
	return HomeRoute
}
