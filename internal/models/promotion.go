package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PromotionPending   = "pending"
	PromotionActive    = "active"
	PromotionExpired   = "expired"
	PromotionCancelled = "cancelled"

	TargetAd      = "ad"
	TargetCompany = "company"
)

// Promotion is a paid visibility boost for an ad or a company profile.
type Promotion struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TargetType      string     `gorm:"size:20;not null;index:idx_promotions_target,priority:1" json:"target_type"`
	TargetID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_promotions_target,priority:2" json:"target_id"`
	PlanID          string     `gorm:"size:50;not null" json:"plan_id"`
	DurationDays    int        `gorm:"not null" json:"duration_days"`
	AmountCents     int64      `gorm:"not null" json:"amount_cents"`
	Currency        string     `gorm:"size:3;not null" json:"currency"`
	StripeSessionID *string    `gorm:"size:255;uniqueIndex" json:"-"`
	Status          string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Active          bool       `gorm:"default:false;index" json:"active"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	EndsAt          *time.Time `gorm:"index" json:"ends_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
