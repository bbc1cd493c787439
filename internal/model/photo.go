package model

import (
	"time"

	"gorm.io/gorm"
)

// Photo stores media metadata within a church. The file itself lives
// in the shared object store under a tenant-namespaced key; StorageKey
// is only ever handed to the scoped storage service, which re-validates
// ownership before granting access.
type Photo struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ChurchID    string         `json:"church_id" gorm:"type:uuid;not null;index:idx_photos_church_created,priority:1;index:idx_photos_church_album,priority:1"`
	AlbumID     *uint          `json:"album_id,omitempty" gorm:"index:idx_photos_church_album,priority:2"`
	Title       string         `json:"title" gorm:"type:varchar(200);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Filename    string         `json:"filename" gorm:"type:varchar(255);not null"`
	StorageKey  string         `json:"-" gorm:"type:varchar(500)"`
	FileSize    int64          `json:"file_size"`
	ContentType string         `json:"content_type" gorm:"type:varchar(100);default:'image/jpeg'"`
	Width       int            `json:"width,omitempty"`
	Height      int            `json:"height,omitempty"`
	UploadedByID uint          `json:"uploaded_by" gorm:"index;not null"`
	IsPublic    bool           `json:"is_public" gorm:"default:false"`
	IsFeatured  bool           `json:"is_featured" gorm:"default:false"`
	TakenAt     *time.Time     `json:"taken_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index:idx_photos_church_created,priority:2"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TenantID implements isolation.TenantOwned
func (p *Photo) TenantID() string { return p.ChurchID }

// HasFile reports whether the photo has an uploaded object behind it
func (p *Photo) HasFile() bool { return p.StorageKey != "" }
