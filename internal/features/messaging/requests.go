package messaging

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
)

type StartConversationRequest struct {
	RecipientID uuid.UUID  `json:"recipient_id"`
	AdID        *uuid.UUID `json:"ad_id"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

type ConversationSummary struct {
	models.Conversation
	Other       dto.PublicProfile `json:"other"`
	LastMessage *models.Message   `json:"last_message,omitempty"`
	Unread      int64             `json:"unread"`
}

type ReadReceipt struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	ReaderID       uuid.UUID `json:"reader_id"`
	Count          int64     `json:"count"`
}
