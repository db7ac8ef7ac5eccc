// Package features defines the contract every feature module implements and
// the shared dependencies handed to it at startup.
package features

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps carries shared infrastructure into feature modules.
type Deps struct {
	DB         *gorm.DB
	Config     *config.Config
	Moderation *services.ModerationService
	Mail       *services.MailService
	Realtime   realtime.Publisher

	// Store is nil when object storage is not configured.
	Store storage.ObjectStore

	// Auth rejects requests without a valid token. OptionalAuth accepts
	// anonymous callers but still reads the token when one is sent.
	Auth         fiber.Handler
	OptionalAuth fiber.Handler
}

// Module is a self-contained feature mounted under /api.
type Module interface {
	// ID names the module in logs.
	ID() string

	// Models returns the GORM models the module owns, for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts the module on the /api group. Middleware is
	// attached per route from Deps.Auth / Deps.OptionalAuth.
	RegisterRoutes(api fiber.Router, deps *Deps)
}

// AdminModule is a Module that also exposes admin-only routes.
type AdminModule interface {
	Module

	// RegisterAdminRoutes mounts routes on /api/admin, which already
	// requires an authenticated admin.
	RegisterAdminRoutes(admin fiber.Router, deps *Deps)
}

// PageParams reads page (1-based) and limit query parameters.
func PageParams(c *fiber.Ctx, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
