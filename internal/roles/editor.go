package roles

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/screen"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// SavedNotice is shown after permissions are persisted.
const SavedNotice = "Permisos actualizados correctamente."

// ErrSaveInProgress rejects a second save while one is outstanding.
var ErrSaveInProgress = errors.New("roles: save already in progress")

const (
	keyRoles       = "roles"
	keyPermissions = "permissions"
	keySave        = "save"
)

// Editor is the role/permission admin screen model. It owns its assignment
// list; nothing else reads or writes it.
type Editor struct {
	source    Source
	seq       *screen.Sequencer
	noticeTTL time.Duration
	now       func() time.Time
	fold      cases.Caser

	mu          sync.Mutex
	phase       Phase
	roles       []backend.Role
	selected    int64
	assignments []Assignment
	query       string
	rolesErr    error
	permsErr    error
	saveErr     error
	notice      string
	noticeAt    time.Time
}

// EditorOption customises an Editor.
type EditorOption func(*Editor)

// WithNoticeTTL sets how long the save notice stays visible.
func WithNoticeTTL(ttl time.Duration) EditorOption {
	return func(e *Editor) {
		if ttl > 0 {
			e.noticeTTL = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) EditorOption {
	return func(e *Editor) { e.now = now }
}

// NewEditor returns an Idle editor over source.
func NewEditor(source Source, opts ...EditorOption) *Editor {
	e := &Editor{
		source:    source,
		seq:       screen.NewSequencer(),
		noticeTTL: 3 * time.Second,
		now:       time.Now,
		fold:      cases.Fold(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the role catalog and selects preferred, or the first role when
// preferred is absent from the catalog. A failure leaves the screen usable
// with an inline error.
func (e *Editor) Load(ctx context.Context, preferred int64) error {
	e.mu.Lock()
	e.phase = PhaseLoadingRoles
	e.rolesErr = nil
	tok := e.seq.Begin(keyRoles)
	e.mu.Unlock()

	list, err := e.source.ListRoles(ctx)

	e.mu.Lock()
	if !e.seq.Current(keyRoles, tok) {
		e.mu.Unlock()
		return screen.ErrSuperseded
	}
	if err != nil {
		e.rolesErr = err
		e.roles = nil
		e.phase = PhaseIdle
		e.mu.Unlock()
		return err
	}
	e.roles = append([]backend.Role(nil), list...)
	target := e.pickRole(preferred)
	if target == 0 {
		e.selected = 0
		e.assignments = nil
		e.phase = PhaseIdle
		e.mu.Unlock()
		return nil
	}
	e.phase = PhaseRoleSelected
	e.mu.Unlock()

	return e.SelectRole(ctx, target)
}

func (e *Editor) pickRole(preferred int64) int64 {
	if len(e.roles) == 0 {
		return 0
	}
	for _, candidate := range []int64{preferred, e.selected} {
		if candidate == 0 {
			continue
		}
		for _, r := range e.roles {
			if r.ID == candidate {
				return candidate
			}
		}
	}
	return e.roles[0].ID
}

// SelectRole switches to roleID. The previous grid and any unsaved toggles are
// dropped before the fetch starts, and an outstanding save is superseded.
func (e *Editor) SelectRole(ctx context.Context, roleID int64) error {
	e.mu.Lock()
	e.selected = roleID
	e.assignments = nil
	e.permsErr = nil
	e.saveErr = nil
	e.notice = ""
	e.phase = PhaseLoadingPermissions
	e.seq.Invalidate(keySave)
	tok := e.seq.Begin(keyPermissions)
	e.mu.Unlock()

	perms, err := e.source.RolePermissions(ctx, roleID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seq.Current(keyPermissions, tok) {
		return screen.ErrSuperseded
	}
	if err != nil {
		e.permsErr = err
		e.phase = PhaseRoleSelected
		return err
	}
	e.assignments = make([]Assignment, 0, len(perms))
	for _, p := range perms {
		e.assignments = append(e.assignments, Assignment{
			PermissionID: p.ID,
			Code:         p.Code,
			Name:         p.Name,
			Module:       rbac.ModuleOf(p.Code),
			Assigned:     p.Assigned,
		})
	}
	e.phase = PhasePermissionsReady
	return nil
}

// ApplyDraft overlays assignment flags posted back by the browser: exactly
// the permissions in ids end up assigned.
func (e *Editor) ApplyDraft(ids []int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePermissionsReady {
		return
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range e.assignments {
		_, ok := set[e.assignments[i].PermissionID]
		e.assignments[i].Assigned = ok
	}
}

// Toggle flips a single permission. It reports false when the permission is
// unknown or the grid is not ready.
func (e *Editor) Toggle(permissionID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePermissionsReady {
		return false
	}
	for i := range e.assignments {
		if e.assignments[i].PermissionID == permissionID {
			e.assignments[i].Assigned = !e.assignments[i].Assigned
			return true
		}
	}
	return false
}

// SetQuery sets the grid filter. Matching is a case-insensitive substring
// test on name or code.
func (e *Editor) SetQuery(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = strings.TrimSpace(q)
}

// SetFiltered assigns or unassigns every permission that passes the current
// filter. Hidden permissions keep their flag.
func (e *Editor) SetFiltered(assigned bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePermissionsReady {
		return
	}
	for i := range e.assignments {
		if e.matches(e.assignments[i]) {
			e.assignments[i].Assigned = assigned
		}
	}
}

// ToggleModule sets every visible permission of module to assigned unless all
// of them already are, in which case it clears them.
func (e *Editor) ToggleModule(module string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePermissionsReady {
		return
	}
	total, assigned := 0, 0
	for _, a := range e.assignments {
		if a.Module == module && e.matches(a) {
			total++
			if a.Assigned {
				assigned++
			}
		}
	}
	if total == 0 {
		return
	}
	target := assigned != total
	for i := range e.assignments {
		if e.assignments[i].Module == module && e.matches(e.assignments[i]) {
			e.assignments[i].Assigned = target
		}
	}
}

// Assigned returns the assigned permission IDs in ascending order.
func (e *Editor) Assigned() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assignedIDs()
}

func (e *Editor) assignedIDs() []int64 {
	ids := make([]int64, 0, len(e.assignments))
	for _, a := range e.assignments {
		if a.Assigned {
			ids = append(ids, a.PermissionID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Save replaces the permission set of the selected role with exactly the
// assigned IDs. Success sets a transient notice; failure sets an error that
// stays until dismissed or superseded.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.selected == 0 {
		e.mu.Unlock()
		return shared.Validation("Seleccione un rol antes de guardar.")
	}
	switch e.phase {
	case PhaseSaving:
		e.mu.Unlock()
		return ErrSaveInProgress
	case PhasePermissionsReady:
	default:
		e.mu.Unlock()
		return shared.Validation("Los permisos del rol aún no están cargados.")
	}
	roleID := e.selected
	ids := e.assignedIDs()
	e.phase = PhaseSaving
	e.saveErr = nil
	e.notice = ""
	tok := e.seq.Begin(keySave)
	e.mu.Unlock()

	err := e.source.ReplaceRolePermissions(ctx, roleID, ids)

	e.mu.Lock()
	defer e.mu.Unlock()
	applied := e.seq.Apply(keySave, tok, func() {
		e.phase = PhasePermissionsReady
		if err != nil {
			e.saveErr = err
			return
		}
		e.notice = SavedNotice
		e.noticeAt = e.now()
	})
	if !applied {
		return screen.ErrSuperseded
	}
	return err
}

// DismissError clears the persistent save error.
func (e *Editor) DismissError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saveErr = nil
}

// Close marks the screen unmounted. Responses arriving later are dropped.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq.Close()
}

// Empty reports a loaded role whose permission catalog has no entries.
func (e *Editor) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == PhasePermissionsReady && len(e.assignments) == 0
}

// Disabled reports that no role exists, so role dependent panels are off.
func (e *Editor) Disabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disabled()
}

func (e *Editor) disabled() bool {
	return e.phase != PhaseLoadingRoles && e.rolesErr == nil && len(e.roles) == 0
}

// Snapshot returns the render state.
func (e *Editor) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Phase:            e.phase,
		Roles:            append([]backend.Role(nil), e.roles...),
		Query:            e.query,
		Total:            len(e.assignments),
		RolesError:       shared.UserSafeMessage(e.rolesErr),
		PermissionsError: shared.UserSafeMessage(e.permsErr),
		SaveError:        shared.UserSafeMessage(e.saveErr),
		Empty:            e.phase == PhasePermissionsReady && len(e.assignments) == 0,
		Disabled:         e.disabled(),
		Saving:           e.phase == PhaseSaving,
	}
	for _, r := range e.roles {
		if r.ID == e.selected {
			st.SelectedRole = r
			break
		}
	}
	if e.notice != "" && e.now().Sub(e.noticeAt) < e.noticeTTL {
		st.Notice = e.notice
	}

	index := make(map[string]int)
	for _, a := range e.assignments {
		if a.Assigned {
			st.AssignedCount++
		}
		if !e.matches(a) {
			if a.Assigned {
				st.HiddenAssigned = append(st.HiddenAssigned, a.PermissionID)
			}
			continue
		}
		st.Visible++
		pos, ok := index[a.Module]
		if !ok {
			pos = len(st.Groups)
			index[a.Module] = pos
			st.Groups = append(st.Groups, ModuleGroup{Label: a.Module})
		}
		st.Groups[pos].Items = append(st.Groups[pos].Items, a)
		if a.Assigned {
			st.Groups[pos].Assigned++
		}
	}
	sort.SliceStable(st.Groups, func(i, j int) bool {
		return rbac.ModuleOrder(st.Groups[i].Label) < rbac.ModuleOrder(st.Groups[j].Label)
	})
	return st
}

func (e *Editor) matches(a Assignment) bool {
	if e.query == "" {
		return true
	}
	q := e.fold.String(e.query)
	return strings.Contains(e.fold.String(a.Name), q) || strings.Contains(e.fold.String(a.Code), q)
}
