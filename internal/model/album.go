package model

import (
	"time"

	"gorm.io/gorm"
)

// Album groups related photos within a church.
// ChurchID is set once at creation from the request's tenant context
// and is never reassignable; the enforcement layer strips any attempt.
type Album struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ChurchID    string         `json:"church_id" gorm:"type:uuid;not null;index:idx_albums_church_created,priority:1;uniqueIndex:idx_albums_church_title,priority:1"`
	Title       string         `json:"title" gorm:"type:varchar(200);not null;uniqueIndex:idx_albums_church_title,priority:2"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedByID uint           `json:"created_by" gorm:"index;not null"`
	IsPublic    bool           `json:"is_public" gorm:"default:false"`
	IsFeatured  bool           `json:"is_featured" gorm:"default:false"`
	EventDate   *time.Time     `json:"event_date,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index:idx_albums_church_created,priority:2"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TenantID implements isolation.TenantOwned
func (a *Album) TenantID() string { return a.ChurchID }
