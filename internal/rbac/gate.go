package rbac

import (
	"context"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

// Gate decides whether a feature is rendered or an action allowed.
type Gate interface {
	HasPermission(code string) bool
}

// PrincipalGate answers permission checks from the session principal. It
// performs no I/O; a nil principal denies everything.
type PrincipalGate struct {
	principal *shared.Principal
}

// NewGate returns a gate over the given principal.
func NewGate(p *shared.Principal) PrincipalGate {
	return PrincipalGate{principal: p}
}

// HasPermission reports whether code belongs to the principal permission set.
func (g PrincipalGate) HasPermission(code string) bool {
	return g.principal.Has(code)
}

// Authenticated reports whether a principal is present.
func (g PrincipalGate) Authenticated() bool {
	return g.principal != nil
}

// GateFromContext returns the gate of the current request.
func GateFromContext(ctx context.Context) PrincipalGate {
	return NewGate(shared.PrincipalFromContext(ctx))
}

// HasAny reports whether the gate grants at least one of codes.
func HasAny(g Gate, codes ...string) bool {
	for _, c := range codes {
		if g.HasPermission(c) {
			return true
		}
	}
	return false
}

// HasAll reports whether the gate grants every code.
func HasAll(g Gate, codes ...string) bool {
	for _, c := range codes {
		if !g.HasPermission(c) {
			return false
		}
	}
	return true
}
