package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EmailSent   = "sent"
	EmailFailed = "failed"
)

// EmailLog records every outbound email attempt.
type EmailLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Recipient string    `gorm:"size:255;not null;index" json:"recipient"`
	Template  string    `gorm:"size:50;not null" json:"template"`
	Subject   string    `gorm:"size:255" json:"subject"`
	Status    string    `gorm:"size:20;not null;index" json:"status"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
