package ads

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type AdsModule struct {
	handler *AdHandler
}

func New() *AdsModule {
	return &AdsModule{}
}

func (m *AdsModule) ID() string { return "ads" }

func (m *AdsModule) Models() []interface{} {
	return []interface{}{
		&models.Ad{},
		&models.Favorite{},
	}
}

func (m *AdsModule) handlerFor(deps *features.Deps) *AdHandler {
	if m.handler == nil {
		m.handler = NewAdHandler(NewAdService(deps.DB, deps.Moderation, deps.Store))
	}
	return m.handler
}

func (m *AdsModule) RegisterRoutes(api fiber.Router, deps *features.Deps) {
	h := m.handlerFor(deps)

	ads := api.Group("/ads")
	ads.Get("/", h.List)
	ads.Get("/favorites/mine", deps.Auth, h.MyFavorites)
	ads.Get("/:id", h.Get)
	ads.Post("/", deps.Auth, h.Create)
	ads.Put("/:id", deps.Auth, h.Update)
	ads.Delete("/:id", deps.Auth, h.Delete)
	ads.Post("/:id/images", deps.Auth, h.UploadImage)
	ads.Post("/:id/favorite", deps.Auth, h.ToggleFavorite)
}

func (m *AdsModule) RegisterAdminRoutes(admin fiber.Router, deps *features.Deps) {
	h := m.handlerFor(deps)
	admin.Delete("/ads/:id", h.AdminDelete)
}
