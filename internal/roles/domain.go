package roles

import (
	"context"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
)

// Phase is the lifecycle position of the editor.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingRoles
	PhaseRoleSelected
	PhaseLoadingPermissions
	PhasePermissionsReady
	PhaseSaving
)

func (p Phase) String() string {
	switch p {
	case PhaseLoadingRoles:
		return "loading_roles"
	case PhaseRoleSelected:
		return "role_selected"
	case PhaseLoadingPermissions:
		return "loading_permissions"
	case PhasePermissionsReady:
		return "permissions_ready"
	case PhaseSaving:
		return "saving"
	default:
		return "idle"
	}
}

// Source is the backend surface the editor depends on.
type Source interface {
	ListRoles(ctx context.Context) ([]backend.Role, error)
	RolePermissions(ctx context.Context, roleID int64) ([]backend.RolePermission, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// Assignment is one permission of the catalog with its flag for the selected role.
type Assignment struct {
	PermissionID int64
	Code         string
	Name         string
	Module       string
	Assigned     bool
}

// ModuleGroup is the set of visible assignments sharing a module label.
type ModuleGroup struct {
	Label    string
	Items    []Assignment
	Assigned int
}

// Total is the number of visible permissions in the group.
func (g ModuleGroup) Total() int { return len(g.Items) }

// FullyAssigned reports whether every visible permission of the group is assigned.
func (g ModuleGroup) FullyAssigned() bool {
	return len(g.Items) > 0 && g.Assigned == len(g.Items)
}

// State is an immutable snapshot of the editor used for rendering.
type State struct {
	Phase            Phase
	Roles            []backend.Role
	SelectedRole     backend.Role
	Query            string
	Groups           []ModuleGroup
	HiddenAssigned   []int64
	Visible          int
	Total            int
	AssignedCount    int
	RolesError       string
	PermissionsError string
	SaveError        string
	Notice           string
	Empty            bool
	Disabled         bool
	Saving           bool
}
