package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a private thread between two users, optionally about an ad.
// UserA always holds the lexically smaller ID so a pair maps to one row per ad,
// plus at most one direct thread without an ad.
type Conversation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserAID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_pair_ad,priority:1,where:ad_id IS NOT NULL;uniqueIndex:idx_conversations_pair_direct,priority:1,where:ad_id IS NULL" json:"user_a_id"`
	UserBID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_pair_ad,priority:2;uniqueIndex:idx_conversations_pair_direct,priority:2;index" json:"user_b_id"`
	AdID          *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_conversations_pair_ad,priority:3" json:"ad_id,omitempty"`
	LastMessageAt time.Time  `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasParticipant reports whether userID is one of the two sides.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"sender_id"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (c *Conversation) BeforeCreate(_ *gorm.DB) error { assignID(&c.ID); return nil }
func (m *Message) BeforeCreate(_ *gorm.DB) error      { assignID(&m.ID); return nil }
