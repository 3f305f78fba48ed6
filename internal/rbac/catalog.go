package rbac

// Permission codes checked by the back-office.
const (
	PermAdminRoles     = "admin_roles"
	PermAdminUsers     = "admin_usuarios"
	PermViewUsers      = "ver_usuarios"
	PermViewProviders  = "ver_proveedores"
	PermAdminProviders = "admin_proveedores"
	PermAdminStores    = "admin_tiendas"
	PermViewReports    = "ver_reportes"
)
