package shared

import (
	"sort"
	"strings"
)

// Principal is the authenticated operator together with the permission
// codes resolved for their role at login.
type Principal struct {
	UserID      int64    `json:"user_id"`
	Name        string   `json:"name"`
	RoleID      int64    `json:"role_id"`
	RoleName    string   `json:"role_name"`
	Token       string   `json:"token"`
	Permissions []string `json:"permissions"`
}

// Has reports whether code is part of the principal permission set.
func (p *Principal) Has(code string) bool {
	if p == nil {
		return false
	}
	code = NormalizeCode(code)
	if code == "" {
		return false
	}
	for _, granted := range p.Permissions {
		if NormalizeCode(granted) == code {
			return true
		}
	}
	return false
}

// NormalizeCode trims and lower-cases a permission code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// normalizeCodes returns the sorted, deduplicated set of codes.
func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = NormalizeCode(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
