package users

import (
	"time"

	"github.com/sfv-tech/sfv-ops/internal/shared"
)

// User represents an account in the user directory. Credentials are owned by
// the upstream identity provider; this service only tracks profile and role.
type User struct {
	ID        int64       `json:"id"`
	FullName  string      `json:"full_name"`
	Email     string      `json:"email"`
	Phone     *string     `json:"phone,omitempty"`
	Role      shared.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Actor converts the user into the authorization actor view.
func (u User) Actor() shared.Actor {
	return shared.Actor{ID: u.ID, Name: u.FullName, Role: u.Role}
}
