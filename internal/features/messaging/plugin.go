package messaging

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type MessagingModule struct {
	handler *MessagingHandler
}

func New() *MessagingModule {
	return &MessagingModule{}
}

func (m *MessagingModule) ID() string { return "messaging" }

func (m *MessagingModule) Models() []interface{} {
	return []interface{}{
		&models.Conversation{},
		&models.Message{},
	}
}

func (m *MessagingModule) handlerFor(deps *features.Deps) *MessagingHandler {
	if m.handler == nil {
		m.handler = NewMessagingHandler(NewMessagingService(deps.DB, deps.Moderation, deps.Mail, deps.Realtime))
	}
	return m.handler
}

func (m *MessagingModule) RegisterRoutes(api fiber.Router, deps *features.Deps) {
	h := m.handlerFor(deps)

	convs := api.Group("/conversations")
	convs.Get("/", deps.Auth, h.List)
	convs.Post("/", deps.Auth, h.Start)
	convs.Get("/:id/messages", deps.Auth, h.Messages)
	convs.Post("/:id/messages", deps.Auth, h.Send)
	convs.Post("/:id/read", deps.Auth, h.MarkRead)
}
