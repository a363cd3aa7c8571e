package auth

import "strings"

// Role is the user's role
type Role string

const (
	// RoleUser is the role given to every new registration
	RoleUser Role = "USER"
	// RoleAdmin is the administrative role
	RoleAdmin Role = "ADMIN"
)

// GrantedRolePrefix is prepended to a Role to build its granted role name
const GrantedRolePrefix = "ROLE_"

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// GrantedRoles derives the authorization roles of an identity from its
// stored role. Unknown roles grant nothing.
func GrantedRoles(role Role) []string {
	if !role.IsValid() {
		return nil
	}
	return []string{GrantedRolePrefix + string(role)}
}

// HasAnyRole checks granted roles against the wanted ones. Wanted roles may
// be given with or without the ROLE_ prefix.
func HasAnyRole(granted []string, wanted ...Role) bool {
	for _, w := range wanted {
		name := string(w)
		if !strings.HasPrefix(name, GrantedRolePrefix) {
			name = GrantedRolePrefix + name
		}
		for _, g := range granted {
			if g == name {
				return true
			}
		}
	}
	return false
}
