package companies

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type CompaniesModule struct {
	handler *CompanyHandler
}

func New() *CompaniesModule {
	return &CompaniesModule{}
}

func (m *CompaniesModule) ID() string { return "companies" }

func (m *CompaniesModule) Models() []interface{} {
	return []interface{}{
		&models.Company{},
	}
}

func (m *CompaniesModule) handlerFor(deps *features.Deps) *CompanyHandler {
	if m.handler == nil {
		m.handler = NewCompanyHandler(NewCompanyService(deps.DB, deps.Moderation))
	}
	return m.handler
}

func (m *CompaniesModule) RegisterRoutes(api fiber.Router, deps *features.Deps) {
	h := m.handlerFor(deps)

	companies := api.Group("/companies")
	companies.Get("/", h.List)
	companies.Get("/mine", deps.Auth, h.Mine)
	companies.Get("/:slug", h.Get)
	companies.Post("/", deps.Auth, h.Create)
	companies.Put("/:id", deps.Auth, h.Update)
	companies.Delete("/:id", deps.Auth, h.Delete)
}

func (m *CompaniesModule) RegisterAdminRoutes(admin fiber.Router, deps *features.Deps) {
	h := m.handlerFor(deps)
	admin.Put("/companies/:id/verify", h.Verify)
}
