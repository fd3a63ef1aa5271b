package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleStaff     Role = "staff"
	RoleViewer    Role = "viewer"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string    `bun:"id,pk" json:"id"`
	DisplayName string    `bun:"display_name,notnull" json:"display_name"`
	Email       string    `bun:"email,unique,notnull" json:"email"`
	Role        Role      `bun:"role,notnull" json:"role"`
	Permissions []string  `bun:"-" json:"permissions"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	LastLoginAt time.Time `bun:"last_login_at,nullzero" json:"last_login_at"`
}

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
