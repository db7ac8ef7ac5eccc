package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a business profile owned by a user. Ads and news posts may be
// published on its behalf.
type Company struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Slug        string         `gorm:"size:120;not null;uniqueIndex" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Website     string         `gorm:"size:255" json:"website,omitempty"`
	City        string         `gorm:"size:100;index" json:"city,omitempty"`
	LogoURL     string         `gorm:"size:500" json:"logo_url,omitempty"`
	Verified    bool           `gorm:"default:false" json:"verified"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Company) BeforeCreate(_ *gorm.DB) error { assignID(&c.ID); return nil }
