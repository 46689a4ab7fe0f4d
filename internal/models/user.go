package models

import "time"

// Role is the RBAC level of a principal
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAnalyst Role = "analyst"
)

// Valid reports whether r is one of the declared roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleAnalyst
}

// User is a principal with a role. Soft-immutable: created once, never
// edited through the API.
type User struct {
	ID           string    `json:"id" badgerhold:"key"`
	Email        string    `json:"email" badgerhold:"unique"`
	SecretHash   string    `json:"-"` // bcrypt hash, never serialized
	Role         Role      `json:"role"`
	SupervisorID string    `json:"supervisor_id,omitempty"` // Manager's user ID for analysts
	CreatedAt    time.Time `json:"created_at"`
}
