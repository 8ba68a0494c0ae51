package models

import (
	"time"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleProctor UserRole = "proctor"
	RoleAdmin   UserRole = "admin"
)

// User is resolved from the identity provider and never persisted by this service.
type User struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	AvatarURL *string  `json:"avatar_url"`

	EmailVerified bool `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is the caller of an engine operation.
type Principal struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanGrade reports whether the role may grade at all; ownership is checked separately.
func (p Principal) CanGrade() bool {
	return p.Role == RoleTeacher || p.Role == RoleAdmin
}

func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}
