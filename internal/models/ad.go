package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AdActive   = "active"
	AdSold     = "sold"
	AdArchived = "archived"
)

// Ad is a classified listing.
type Ad struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	CompanyID   *uuid.UUID                  `gorm:"type:uuid;index" json:"company_id,omitempty"`
	Title       string                      `gorm:"size:120;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Category    string                      `gorm:"size:50;not null;index" json:"category"`
	City        string                      `gorm:"size:100;index" json:"city"`
	PriceCents  int64                       `gorm:"not null;default:0" json:"price_cents"`
	Currency    string                      `gorm:"size:3;default:'EUR'" json:"currency"`
	Status      string                      `gorm:"size:20;not null;default:'active';index" json:"status"`
	ViewCount   int                         `gorm:"default:0" json:"view_count"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	CreatedAt   time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
	DeletedAt   gorm.DeletedAt              `gorm:"index" json:"-"`
}

type Favorite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_ad" json:"user_id"`
	AdID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_ad" json:"ad_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Ad) BeforeCreate(_ *gorm.DB) error       { assignID(&a.ID); return nil }
func (f *Favorite) BeforeCreate(_ *gorm.DB) error { assignID(&f.ID); return nil }
