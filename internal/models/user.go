package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password    string         `gorm:"not null" json:"-"`
	DisplayName string         `gorm:"size:100" json:"display_name"`
	Phone       string         `gorm:"size:40" json:"phone,omitempty"`
	City        string         `gorm:"size:100;index" json:"city,omitempty"`
	Bio         string         `gorm:"size:1000" json:"bio,omitempty"`
	AvatarURL   string         `gorm:"size:500" json:"avatar_url,omitempty"`
	Role        string         `gorm:"size:20;default:'user'" json:"role"`
	Banned      bool           `gorm:"default:false;index" json:"banned"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
