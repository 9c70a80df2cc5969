package models

import (
	"database/sql"
	"time"
)

// Profile represents an authenticated identity
type Profile struct {
	ID        string         `gorm:"type:varchar(64);primaryKey;column:id"`
	FullName  sql.NullString `gorm:"type:varchar(255);column:full_name"`
	Handle    sql.NullString `gorm:"type:varchar(64);uniqueIndex:profiles_handle_ux;column:handle"`
	AvatarURL sql.NullString `gorm:"type:varchar(1024);column:avatar_url"`
	Email     string         `gorm:"type:varchar(320);not null;default:'';index:profiles_email_ix;column:email"`
	Role      string         `gorm:"type:varchar(16);not null;default:'user';column:role"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt time.Time      `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// Profile roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdmin reports whether the profile carries the admin role
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
