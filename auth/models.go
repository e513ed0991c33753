package auth

import "time"

type Role string

const (
	RoleAnalyst   Role = "analyst"
	RoleDealAdmin Role = "deal_admin"
	RoleViewer    Role = "viewer"
)

// CanWaive reports whether the role may waive closing conditions or request
// lifecycle transitions. Analysts may satisfy conditions manually; only deal
// admins may waive or terminate.
func (r Role) CanWaive() bool {
	return r == RoleDealAdmin
}

// User is the domain representation of an authenticated actor. It mirrors
// the users table and carries no JSON annotations so it can be reused by
// different presentation layers.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
