package domain

import dErrors "jwelary/pkg/domain-errors"

// Role is the authorization role carried on user records and token claims.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) String() string { return string(r) }

// IsAdmin reports whether r grants access to privileged operations.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool { return r == RoleUser || r == RoleAdmin }

// ParseRole accepts exactly "USER" or "ADMIN".
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return r, nil
}
