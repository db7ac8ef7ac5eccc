package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NewsPost struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	CompanyID    *uuid.UUID     `gorm:"type:uuid;index" json:"company_id,omitempty"`
	Body         string         `gorm:"type:text;not null" json:"body"`
	ImageURL     string         `gorm:"size:500" json:"image_url,omitempty"`
	LikeCount    int            `gorm:"default:0" json:"like_count"`
	CommentCount int            `gorm:"default:0" json:"comment_count"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewsComment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID  uuid.UUID      `gorm:"type:uuid;not null" json:"author_id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewsLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_news_likes_post_user" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_news_likes_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *NewsPost) BeforeCreate(_ *gorm.DB) error    { assignID(&p.ID); return nil }
func (c *NewsComment) BeforeCreate(_ *gorm.DB) error { assignID(&c.ID); return nil }
func (l *NewsLike) BeforeCreate(_ *gorm.DB) error    { assignID(&l.ID); return nil }
