package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not part of this conversation")
	ErrSelfMessage          = errors.New("you cannot message yourself")
	ErrBlocked              = errors.New("messaging between these users is blocked")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrAdNotFound           = errors.New("ad not found")
)

const (
	maxBodyLength = 2000
	previewLength = 140
)

// Membership checks conversation participation. It backs the realtime join.
type Membership struct {
	db *gorm.DB
}

func NewMembership(db *gorm.DB) *Membership {
	return &Membership{db: db}
}

func (m *Membership) IsParticipant(conversationID, userID uuid.UUID) bool {
	var count int64
	m.db.Model(&models.Conversation{}).
		Where("id = ? AND (user_a_id = ? OR user_b_id = ?)", conversationID, userID, userID).
		Count(&count)
	return count > 0
}

type MessagingService struct {
	db         *gorm.DB
	moderation *services.ModerationService
	mail       *services.MailService
	realtime   realtime.Publisher
}

func NewMessagingService(db *gorm.DB, moderation *services.ModerationService, mail *services.MailService, publisher realtime.Publisher) *MessagingService {
	return &MessagingService{db: db, moderation: moderation, mail: mail, realtime: publisher}
}

// orderedPair puts the lexically smaller ID first.
func orderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}

// Start returns the conversation between the caller and recipient about the
// given ad, creating it when needed. created reports whether it is new.
func (s *MessagingService) Start(userID uuid.UUID, req *StartConversationRequest) (*models.Conversation, bool, error) {
	if req.RecipientID == uuid.Nil {
		return nil, false, &services.ValidationError{Field: "recipient_id", Message: "is required"}
	}
	if req.RecipientID == userID {
		return nil, false, ErrSelfMessage
	}

	var recipient models.User
	if err := s.db.Select("id", "banned").First(&recipient, "id = ?", req.RecipientID).Error; err != nil || recipient.Banned {
		return nil, false, ErrRecipientNotFound
	}
	if req.AdID != nil {
		var count int64
		s.db.Model(&models.Ad{}).Where("id = ?", *req.AdID).Count(&count)
		if count == 0 {
			return nil, false, ErrAdNotFound
		}
	}

	blocked, err := s.moderation.EitherBlocked(userID, req.RecipientID)
	if err != nil {
		return nil, false, err
	}
	if blocked {
		return nil, false, ErrBlocked
	}

	a, b := orderedPair(userID, req.RecipientID)
	if existing, err := s.findPair(a, b, req.AdID); err == nil {
		return existing, false, nil
	}

	conv := models.Conversation{
		UserAID:       a,
		UserBID:       b,
		AdID:          req.AdID,
		LastMessageAt: time.Now().UTC(),
	}
	if err := s.db.Create(&conv).Error; err != nil {
		// A concurrent start for the same pair won the unique index.
		if existing, findErr := s.findPair(a, b, req.AdID); findErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, true, nil
}

func (s *MessagingService) findPair(a, b uuid.UUID, adID *uuid.UUID) (*models.Conversation, error) {
	query := s.db.Where("user_a_id = ? AND user_b_id = ?", a, b)
	if adID != nil {
		query = query.Where("ad_id = ?", *adID)
	} else {
		query = query.Where("ad_id IS NULL")
	}
	var conv models.Conversation
	if err := query.First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *MessagingService) participantOf(userID, conversationID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return &conv, nil
}

// List returns the caller's conversations, most recent activity first.
func (s *MessagingService) List(userID uuid.UUID) ([]ConversationSummary, error) {
	var convs []models.Conversation
	if err := s.db.
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := ConversationSummary{Conversation: conv}

		var other models.User
		if err := s.db.Unscoped().First(&other, "id = ?", conv.Other(userID)).Error; err == nil {
			summary.Other = services.ToPublicProfile(&other)
		}

		var last models.Message
		if err := s.db.Where("conversation_id = ?", conv.ID).Order("created_at DESC").First(&last).Error; err == nil {
			summary.LastMessage = &last
		}

		s.db.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conv.ID, userID).
			Count(&summary.Unread)

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Messages returns up to limit messages older than before, oldest first.
func (s *MessagingService) Messages(userID, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	if _, err := s.participantOf(userID, conversationID); err != nil {
		return nil, err
	}

	query := s.db.Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", before.UTC())
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Send stores a message, relays it to connected clients and emails the
// recipient when they have no live connection.
func (s *MessagingService) Send(ctx context.Context, userID, conversationID uuid.UUID, req *SendMessageRequest) (*models.Message, error) {
	body := strings.TrimSpace(req.Body)
	if n := len([]rune(body)); n == 0 || n > maxBodyLength {
		return nil, &services.ValidationError{Field: "body", Message: "must be 1-2000 characters"}
	}
	if s.moderation.ContainsProfanity(body) {
		return nil, &services.ValidationError{Field: "body", Message: services.RejectionMessage("inappropriate_language")}
	}

	conv, err := s.participantOf(userID, conversationID)
	if err != nil {
		return nil, err
	}
	recipientID := conv.Other(userID)

	blocked, err := s.moderation.EitherBlocked(userID, recipientID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}

	msg := models.Message{ConversationID: conv.ID, SenderID: userID, Body: body}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(conv).Update("last_message_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.relay(ctx, conv, realtime.EventMessage, msg)

	if !s.realtime.Online(ctx, recipientID) {
		s.notifyOffline(userID, recipientID, conv.ID, body)
	}
	return &msg, nil
}

func (s *MessagingService) relay(ctx context.Context, conv *models.Conversation, eventType string, data any) {
	ev, err := realtime.NewEvent(eventType, conv.ID, data)
	if err != nil {
		slog.Error("failed to encode realtime event", "error", err)
		return
	}
	convID := conv.ID
	env := realtime.Envelope{
		Users:        []uuid.UUID{conv.UserAID, conv.UserBID},
		Conversation: &convID,
		Event:        ev,
	}
	if err := s.realtime.Publish(ctx, env); err != nil {
		slog.Warn("realtime publish failed", "conversation_id", conv.ID.String(), "error", err)
	}
}

func (s *MessagingService) notifyOffline(senderID, recipientID, conversationID uuid.UUID, body string) {
	var sender, recipient models.User
	if err := s.db.Select("id", "display_name").First(&sender, "id = ?", senderID).Error; err != nil {
		return
	}
	if err := s.db.Select("id", "email").First(&recipient, "id = ?", recipientID).Error; err != nil {
		return
	}

	preview := []rune(body)
	if len(preview) > previewLength {
		preview = append(preview[:previewLength], '…')
	}
	s.mail.Dispatch(recipient.Email, services.TemplateNewMessage, map[string]any{
		"SenderName":     sender.DisplayName,
		"Preview":        string(preview),
		"ConversationID": conversationID.String(),
	})
}

// MarkRead marks the other participant's unread messages as read and tells
// both sides.
func (s *MessagingService) MarkRead(ctx context.Context, userID, conversationID uuid.UUID) (*ReadReceipt, error) {
	conv, err := s.participantOf(userID, conversationID)
	if err != nil {
		return nil, err
	}

	result := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conv.ID, userID).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return nil, result.Error
	}

	receipt := &ReadReceipt{ConversationID: conv.ID, ReaderID: userID, Count: result.RowsAffected}
	if receipt.Count > 0 {
		s.relay(ctx, conv, realtime.EventRead, receipt)
	}
	return receipt, nil
}
