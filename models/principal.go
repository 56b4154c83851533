package models

import "fmt"

// Role is the closed set of roles known to the system, ordered by
// increasing scope breadth.
type Role string

// Roles
const (
	RoleCitizen  Role = "citizen"
	RoleLeader   Role = "leader"
	RoleOfficial Role = "official"
	RoleAdmin    Role = "admin"
)

// Rank returns the breadth ordering of the role, or -1 for an unknown role.
func (r Role) Rank() int {
	switch r {
	case RoleCitizen:
		return 0
	case RoleLeader:
		return 1
	case RoleOfficial:
		return 2
	case RoleAdmin:
		return 3
	}
	return -1
}

// ParseRole converts a raw role string into a Role. Unknown strings are an
// error; nothing falls through as a raw string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCitizen, RoleLeader, RoleOfficial, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Principal is the authorization context of the acting user. It is threaded
// explicitly into every core call; nothing reads it from ambient state.
//
// ScopeID meaning depends on the role: a citizen carries their household id,
// a leader a neighborhood-group id, an official a ward id. Admins carry an
// empty scope and are unrestricted.
type Principal struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	ScopeID  string `json:"scopeID"`
}
