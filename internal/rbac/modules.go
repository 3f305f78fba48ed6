package rbac

import "strings"

// OtherModule labels permissions whose code prefix is not configured.
const OtherModule = "Otros"

// ModulePrefix maps a permission code prefix to its display module.
type ModulePrefix struct {
	Prefix string
	Label  string
}

// DefaultModules is the ordered prefix table; the first match wins.
var DefaultModules = []ModulePrefix{
	{Prefix: "admin_", Label: "Administración"},
	{Prefix: "ver_", Label: "Consultas"},
	{Prefix: "crear_", Label: "Registro"},
	{Prefix: "editar_", Label: "Edición"},
	{Prefix: "eliminar_", Label: "Eliminación"},
	{Prefix: "reporte_", Label: "Reportes"},
}

// ModuleOf returns the module label for code.
func ModuleOf(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, m := range DefaultModules {
		if strings.HasPrefix(code, m.Prefix) {
			return m.Label
		}
	}
	return OtherModule
}

// ModuleOrder returns the display position of label; OtherModule sorts last.
func ModuleOrder(label string) int {
	for i, m := range DefaultModules {
		if m.Label == label {
			return i
		}
	}
	return len(DefaultModules)
}
