package domain

import "strings"

// Role is the side of the marketplace a viewer acts on.
type Role string

const (
	RoleClient     Role = "client"
	RoleContractor Role = "contractor"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleContractor
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}
