package news

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type NewsModule struct {
	handler *NewsHandler
}

func New() *NewsModule {
	return &NewsModule{}
}

func (m *NewsModule) ID() string { return "news" }

func (m *NewsModule) Models() []interface{} {
	return []interface{}{
		&models.NewsPost{},
		&models.NewsComment{},
		&models.NewsLike{},
	}
}

func (m *NewsModule) handlerFor(deps *features.Deps) *NewsHandler {
	if m.handler == nil {
		m.handler = NewNewsHandler(NewNewsService(deps.DB, deps.Moderation))
	}
	return m.handler
}

func (m *NewsModule) RegisterRoutes(api fiber.Router, deps *features.Deps) {
	h := m.handlerFor(deps)

	news := api.Group("/news")
	news.Get("/", deps.OptionalAuth, h.List)
	news.Post("/", deps.Auth, h.Create)
	news.Delete("/comments/:id", deps.Auth, h.DeleteComment)
	news.Delete("/:id", deps.Auth, h.Delete)
	news.Post("/:id/like", deps.Auth, h.ToggleLike)
	news.Get("/:id/comments", h.Comments)
	news.Post("/:id/comments", deps.Auth, h.AddComment)
}
