package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents a church tenant stored in the database.
// This is the core of the multi-tenant architecture: every scoped
// record carries a foreign key to exactly one tenant. The UUID primary
// key never changes; the human-facing code may be rotated.
type Tenant struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name           string         `json:"name" gorm:"type:varchar(255);not null"`
	Code           string         `json:"code" gorm:"type:varchar(16);uniqueIndex;not null"`
	Active         bool           `json:"active" gorm:"default:false;index"`
	LogoPath       string         `json:"-" gorm:"type:varchar(500)"`
	CoverImagePath string         `json:"-" gorm:"type:varchar(500)"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName keeps the table name explicit
func (Tenant) TableName() string { return "tenants" }

// BeforeCreate assigns a UUID primary key and normalizes the code
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.Code = NormalizeTenantCode(t.Code)
	return nil
}

// BeforeUpdate keeps the code normalized across rotations
func (t *Tenant) BeforeUpdate(tx *gorm.DB) error {
	t.Code = NormalizeTenantCode(t.Code)
	return nil
}

// NormalizeTenantCode upper-cases and trims a church code so lookups
// are case and whitespace insensitive.
func NormalizeTenantCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
