package model

import "strings"

// Role is the application role held in a role record.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleApprover  Role = "approver"  // Wakil
	RoleSubmitter Role = "submitter" // Guru Piket
)

// AllRoles lists every recognized role.
var AllRoles = []Role{RoleAdmin, RoleApprover, RoleSubmitter}

// legacyRoles maps the role names written by the first dashboard release.
var legacyRoles = map[string]Role{
	"wakil":     RoleApprover,
	"gurupiket": RoleSubmitter,
}

// ParseRole normalizes a stored role value. The second result is false for
// missing or unrecognized roles.
func ParseRole(raw string) (Role, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch Role(v) {
	case RoleAdmin, RoleApprover, RoleSubmitter:
		return Role(v), true
	}
	if r, ok := legacyRoles[v]; ok {
		return r, true
	}
	return "", false
}

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	return r.In(AllRoles...)
}

// In reports whether r is contained in roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// RoleRecord is the value stored at users/{identityId}.
type RoleRecord struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
