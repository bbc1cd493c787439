package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User roles. The set is closed: superadmin is a platform-level
// identity and never carries a tenant; admin and member always belong
// to exactly one church.
const (
	RoleMember     = "member"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// User represents the user model stored in the database.
// ChurchID is nullable only during the two-step signup flow and for
// superadmins; once assigned it changes only through the privileged
// reassignment path.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	FirstName string         `json:"first_name" gorm:"type:varchar(150)"`
	LastName  string         `json:"last_name" gorm:"type:varchar(150)"`
	ChurchID  *string        `json:"church_id,omitempty" gorm:"type:uuid;index"`
	Role      string         `json:"role" gorm:"type:varchar(16);not null;default:'member';index"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Church *Tenant `json:"church,omitempty" gorm:"foreignKey:ChurchID"`
}

// BeforeSave normalizes the email address
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// IsAdmin reports whether the user is an admin of their church
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsSuperAdmin reports whether the user is a platform operator
func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
