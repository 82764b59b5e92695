package shared

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles known to the system. Authorization rules
// consult the policy functions in this package instead of comparing raw
// role strings at call sites.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleEngineer    Role = "engineer"
	RoleStaff       Role = "staff"
	RoleStorekeeper Role = "storekeeper"
	RoleApprentice  Role = "apprentice"
)

// ParseRole normalises and validates a stored role value.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleEngineer:
		return RoleEngineer, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleStorekeeper:
		return RoleStorekeeper, nil
	case RoleApprentice:
		return RoleApprentice, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor describes the authenticated user performing a request.
type Actor struct {
	ID   int64
	Name string
	Role Role
}

// IsAdmin reports whether the actor holds administrative privilege.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
