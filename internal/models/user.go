package models

import "time"

// Role distinguishes the two identity kinds the app knows about.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// User captures application-facing fields for an authenticated identity.
// Parents own child accounts and allowance plans; children log in only to
// view their own account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
