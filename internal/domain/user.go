package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSchool Role = "school"
)

// User is an API caller. School users are scoped to a single school and
// may only read or act on orders whose school_id matches their own; admins
// see everything.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:255" json:"name"`
	Role         Role      `gorm:"size:16;not null;default:'school'" json:"role"`
	SchoolID     string    `gorm:"index;size:64" json:"school_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Caller is the already-verified identity attached to a request by the
// auth middleware. Tenant checks go through CanAccessSchool so "denied"
// stays distinguishable from "no data".
type Caller struct {
	UserID   int64
	Role     Role
	SchoolID string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

func (c Caller) CanAccessSchool(schoolID string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.SchoolID != "" && c.SchoolID == schoolID
}
